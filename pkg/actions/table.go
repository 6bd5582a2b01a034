package actions

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/taskchain/taskchain/pkg/chain"
	"github.com/taskchain/taskchain/pkg/record"
)

// Handler runs one action. It receives the working list and returns the
// new one; it must never return a nil list without an error.
type Handler func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error)

// Action is an entry of the action table.
type Action struct {
	Name    string
	Usage   string
	Summary string
	Handler Handler
	// Offline actions do not need the task list, so a chain made only of
	// them never contacts the backend.
	Offline bool
}

// Table maps action names to actions. Aliases share the same Action.
type Table map[string]Action

// Add registers a under its name and the given aliases.
func (t Table) Add(a Action, aliases ...string) {
	t[a.Name] = a
	for _, alias := range aliases {
		t[alias] = a
	}
}

// Names returns all registered names, sorted.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Validate checks every action name against the table. All unknown names
// are reported together.
func (t Table) Validate(actions []chain.Invocation) error {
	var unknown []string
	for _, inv := range actions {
		if _, ok := t[inv.Name]; !ok {
			unknown = append(unknown, inv.Name)
		}
	}
	if len(unknown) > 0 {
		return &UnknownActionError{Names: unknown}
	}
	return nil
}

func (t Table) offline(actions []chain.Invocation) bool {
	for _, inv := range actions {
		if !t[inv.Name].Offline {
			return false
		}
	}
	return true
}

// Run folds actions over tasks. An empty chain runs help.
func (s *Session) Run(actions []chain.Invocation, tasks []*record.Record) ([]*record.Record, error) {
	if err := s.Table.Validate(actions); err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		actions = []chain.Invocation{{Name: "help", Args: []string{}, Kwargs: map[string]string{}}}
	}
	if tasks == nil {
		tasks = []*record.Record{}
	}
	for _, inv := range actions {
		action := s.Table[inv.Name]
		s.Log.Debugf("Invoking -%s on %d tasks with %q", inv.Name, len(tasks), inv.Tokens()[1:])
		out, err := action.Handler(s, tasks, inv)
		if err != nil {
			return nil, &ActionError{Action: inv.Name, Err: err}
		}
		if out == nil {
			return nil, &InternalError{Action: inv.Name, Msg: "action returned no task list"}
		}
		tasks = out
	}
	return tasks, nil
}

// Execute is the entry point for a parsed command line: it applies the
// base arguments, expands aliases, validates the chain and only then loads
// the tasks and runs it.
func (s *Session) Execute(parsed chain.Parsed) ([]*record.Record, error) {
	s.applyBaseArgs(parsed.BaseArgs)

	actions := parsed.Actions
	if s.Config != nil && len(s.Config.Aliases) > 0 {
		var err error
		if actions, err = chain.ExpandAliases(actions, s.Config.Aliases); err != nil {
			return nil, err
		}
	}
	if err := s.Table.Validate(actions); err != nil {
		return nil, err
	}

	tasks := []*record.Record{}
	if !s.Table.offline(actions) {
		snap, err := s.Backend.Load(s.Ctx)
		if err != nil {
			return nil, fmt.Errorf("loading tasks: %w", err)
		}
		tasks = s.records(snap)
		s.Log.Debugf("Loaded %d tasks", len(tasks))
	}
	return s.Run(actions, tasks)
}

func (s *Session) applyBaseArgs(args []string) {
	for _, arg := range args {
		switch arg {
		case "v", "verbose":
			s.SetVerbosity(s.Verbosity + 1)
		case "y", "yes", "no-prompt":
			s.AssumeYes = true
		case "q", "quiet":
			s.Log.SetLevel(logrus.WarnLevel)
		default:
			s.Log.Warnf("Ignoring argument %q before the first action", arg)
		}
	}
}

// DefaultTable returns the built-in actions.
func DefaultTable() Table {
	t := Table{}
	registerFilters(t)
	registerPresentation(t)
	registerMutations(t)
	registerLifecycle(t)
	registerMeta(t)
	return t
}
