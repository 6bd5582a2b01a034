package actions

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/taskchain/taskchain/pkg/chain"
	"github.com/taskchain/taskchain/pkg/record"
)

const helpIntro = `# taskchain

Usage: taskchain [base args] -action1 [args] [key=value] -action2 ...

Actions run left to right. Each one receives the tasks left by the
previous action; filters narrow the list, mutations queue changes that
are pushed with -commit. Base args before the first action: -v (more
output), -y (do not ask before committing), -q (warnings only).
`

func registerMeta(t Table) {
	t.Add(Action{
		Name:    "verbose",
		Usage:   "-verbose",
		Summary: "Increase log output; repeat for more.",
		Handler: func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
			s.SetVerbosity(s.Verbosity + 1)
			return tasks, nil
		},
		Offline: true,
	}, "v")
	t.Add(Action{
		Name:    "yes",
		Usage:   "-yes",
		Summary: "Do not ask for confirmation before committing.",
		Handler: func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
			s.AssumeYes = true
			return tasks, nil
		},
		Offline: true,
	}, "y", "no-prompt")
	t.Add(Action{
		Name:    "help",
		Usage:   "-help [action|operators]",
		Summary: "Show this help, the help of one action, or the filter operators.",
		Handler: helpAction,
		Offline: true,
	}, "h")
}

func helpAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	topic := strings.TrimPrefix(inv.Arg(0, ""), "-")
	var doc string
	switch {
	case topic == "":
		doc = s.overallHelp()
	case topic == "operators" || topic == "ops":
		doc = s.operatorHelp()
	default:
		a, ok := s.Table[topic]
		if !ok {
			s.Log.Warnf("No action named %q", topic)
			doc = s.overallHelp()
			break
		}
		doc = actionHelp(a)
	}
	if err := s.render(s.Out, doc); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Session) overallHelp() string {
	var b strings.Builder
	b.WriteString(helpIntro)
	b.WriteString("\n## Actions\n\n")
	seen := map[string]bool{}
	for _, name := range s.Table.Names() {
		a := s.Table[name]
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		fmt.Fprintf(&b, "- `%s`: %s\n", a.Usage, a.Summary)
	}
	b.WriteString("\nRun `taskchain -help <action>` for details, `taskchain -help operators` for filter operators.\n")
	return b.String()
}

func actionHelp(a Action) string {
	return fmt.Sprintf("## -%s\n\n`%s`\n\n%s\n", a.Name, a.Usage, a.Summary)
}

func (s *Session) operatorHelp() string {
	var b strings.Builder
	b.WriteString("## Filter operators\n\n")
	b.WriteString("Use with `-filter <key> <op> <value>`. Prefix an operator with `i` for a case-insensitive match.\n\n")
	for _, name := range s.Filter.Operators.Names() {
		fmt.Fprintf(&b, "- `%s`\n", name)
	}
	b.WriteString("\n## Value transforms\n\n")
	b.WriteString("Use as `transform=<name>` to convert the value before comparing.\n\n")
	for _, name := range s.Filter.Transforms.Names() {
		fmt.Fprintf(&b, "- `%s`\n", name)
	}
	return b.String()
}

// render writes markdown to w, styled when the session writes to a
// terminal.
func (s *Session) render(w io.Writer, doc string) error {
	if !s.Styled {
		_, err := io.WriteString(w, doc)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(doc)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
