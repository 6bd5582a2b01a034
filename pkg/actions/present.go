package actions

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/taskchain/taskchain/pkg/chain"
	"github.com/taskchain/taskchain/pkg/filter"
	"github.com/taskchain/taskchain/pkg/format"
	"github.com/taskchain/taskchain/pkg/record"
	"github.com/taskchain/taskchain/pkg/tui"
	"gopkg.in/yaml.v3"
)

// DefaultTableColumns are shown by -table without arguments.
var DefaultTableColumns = []string{"id", "project_name", "due_date_pretty_safe", "priority_str", "checked_str", "content"}

const tableCellWidth = 60

func registerPresentation(t Table) {
	t.Add(Action{
		Name:    "sort",
		Usage:   "-sort [key1,key2,...] [ascending|descending]",
		Summary: "Sort tasks by one or more attributes (stable).",
		Handler: sortAction,
	})
	t.Add(Action{
		Name:    "print",
		Usage:   "-print [template|pprint|yaml] [header] [separator]",
		Summary: "Print tasks using a {field:spec} template, or dump them as YAML.",
		Handler: printAction,
	})
	t.Add(Action{
		Name:    "table",
		Usage:   "-table [key1,key2,...]",
		Summary: "Print tasks as a table with the given columns.",
		Handler: tableAction,
	})
	t.Add(Action{
		Name:    "browse",
		Usage:   "-browse",
		Summary: "Browse tasks in an interactive, read-only view.",
		Handler: func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
			if s.Browse == nil {
				return nil, fmt.Errorf("browsing is not available")
			}
			return tasks, s.Browse(s, tasks)
		},
	})
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func argOrKwarg(inv chain.Invocation, i int, name string) string {
	if v, ok := inv.Kwargs[name]; ok {
		return v
	}
	v := inv.Arg(i, "")
	if filter.IsPlaceholder(v) {
		return ""
	}
	return v
}

func sortAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	keys := splitKeys(argOrKwarg(inv, 0, "keys"))
	if len(keys) == 0 && s.Config != nil {
		keys = s.Config.SortKeys
	}
	var descending bool
	switch order := argOrKwarg(inv, 1, "order"); strings.ToLower(order) {
	case "":
		descending = s.Config != nil && s.Config.Descending()
	case "asc", "ascending":
	case "desc", "descending":
		descending = true
	default:
		return nil, &filter.UsageError{Msg: fmt.Sprintf("sort order must be ascending or descending, not %q", order)}
	}
	order := "ascending"
	if descending {
		order = "descending"
	}

	s.Log.Infof("Sorting %d tasks by %s (%s)", len(tasks), strings.Join(keys, ","), order)
	return SortTasks(tasks, keys, descending), nil
}

// SortTasks returns a stably sorted copy of tasks. Keys are resolved like
// filter attributes and null sorts first. Descending reverses the
// ascending result.
func SortTasks(tasks []*record.Record, keys []string, descending bool) []*record.Record {
	out := slices.Clone(tasks)
	if out == nil {
		out = []*record.Record{}
	}
	slices.SortStableFunc(out, func(a, b *record.Record) int {
		for _, k := range keys {
			if c := compareForSort(a.Resolve(k), b.Resolve(k)); c != 0 {
				return c
			}
		}
		return 0
	})
	if descending {
		slices.Reverse(out)
	}
	return out
}

func compareForSort(a, b record.Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}
	if c, ok := record.Compare(a, b); ok {
		return c
	}
	if a.Kind() != b.Kind() {
		return int(a.Kind()) - int(b.Kind())
	}
	return strings.Compare(a.String(), b.String())
}

var unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

func printAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	tmpl := argOrKwarg(inv, 0, "fmt")
	if tmpl == "" && s.Config != nil {
		tmpl = s.Config.PrintFormat
	}
	if tmpl == "" {
		tmpl = format.DefaultTemplate
	}
	header := unescaper.Replace(argOrKwarg(inv, 1, "header"))
	sep := "\n"
	if v := argOrKwarg(inv, 2, "sep"); v != "" {
		sep = unescaper.Replace(v)
	}

	s.Log.Infof("Printing %d tasks", len(tasks))
	s.Log.Debugf("Print template: %q", tmpl)
	if header != "" {
		fmt.Fprintln(s.Out, header)
	}

	switch tmpl {
	case "pprint", "repr", "yaml":
		plain := make([]map[string]any, len(tasks))
		for i, t := range tasks {
			plain[i] = t.Plain()
		}
		enc := yaml.NewEncoder(s.Out)
		enc.SetIndent(2)
		if err := enc.Encode(plain); err != nil {
			return nil, fmt.Errorf("dumping tasks: %w", err)
		}
		return tasks, enc.Close()
	}

	t, err := format.Parse(tmpl)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(tasks))
	for i, task := range tasks {
		if lines[i], err = t.Execute(task.View()); err != nil {
			return nil, fmt.Errorf("task %s: %w", task.ID(), err)
		}
	}
	if len(lines) > 0 {
		fmt.Fprintln(s.Out, strings.Join(lines, sep))
	}
	return tasks, nil
}

func tableAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	columns := splitKeys(argOrKwarg(inv, 0, "keys"))
	if len(columns) == 0 {
		columns = DefaultTableColumns
	}
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = runewidth.Truncate(t.Resolve(c).String(), tableCellWidth, "…")
		}
		rows[i] = row
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tui.TableBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tui.TableHeaderStyle
			}
			return tui.TableCellStyle
		}).
		Headers(columns...).
		Rows(rows...)
	fmt.Fprintln(s.Out, tbl.Render())
	fmt.Fprintf(s.Out, "%d tasks\n", len(tasks))
	return tasks, nil
}
