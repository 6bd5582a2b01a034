package actions

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/taskchain/taskchain/pkg/chain"
	"github.com/taskchain/taskchain/pkg/dates"
	"github.com/taskchain/taskchain/pkg/derive"
	"github.com/taskchain/taskchain/pkg/filter"
	"github.com/taskchain/taskchain/pkg/record"
)

const filterOptsUsage = "[missing] [default] [transform] [negate]"

func registerFilters(t Table) {
	t.Add(Action{
		Name:    "filter",
		Usage:   "-filter <key> <op> <value> " + filterOptsUsage,
		Summary: "Keep tasks whose attribute <key> compares true against <value> with operator <op>.",
		Handler: filterAction,
	}, "has")
	t.Add(Action{
		Name:    "is",
		Usage:   "-is [not] due [before|on|after] <when> | overdue | checked | unchecked | in <project> | recurring",
		Summary: "Keep tasks matching a predefined predicate.",
		Handler: func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
			return s.is(tasks, inv.Args)
		},
	})
	t.Add(Action{
		Name:    "not",
		Usage:   "-not <predicate>",
		Summary: "Same as -is not <predicate>.",
		Handler: func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
			return s.is(tasks, append([]string{"not"}, inv.Args...))
		},
	})
	t.Add(Action{
		Name:    "due",
		Usage:   "-due [before|on|after] [when]",
		Summary: "Same as -is due [when].",
		Handler: func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
			return s.is(tasks, append([]string{"due"}, inv.Args...))
		},
	})

	for _, op := range []string{"contains", "startswith", "endswith", "glob", "iglob", "eq", "ieq"} {
		t.Add(Action{
			Name:    op,
			Usage:   fmt.Sprintf("-%s <value> %s", op, filterOptsUsage),
			Summary: fmt.Sprintf("Keep tasks whose content %s <value>.", op),
			Handler: pinned("content", op, "", ""),
		})
	}

	t.Add(Action{
		Name:    "content",
		Usage:   "-content [not] [op] <value> " + filterOptsUsage,
		Summary: "Filter on task content, by default with iglob.",
		Handler: shortcut("content", "iglob", ""),
	}, "name")
	t.Add(Action{
		Name:    "project",
		Usage:   "-project [not] [op] <value> " + filterOptsUsage,
		Summary: "Filter on project name, by default with iglob.",
		Handler: shortcut("project_name", "iglob", ""),
	})
	t.Add(Action{
		Name:    "label",
		Usage:   "-label <name> " + filterOptsUsage,
		Summary: "Keep tasks carrying label <name> (case-insensitive). Prefix with ! to exclude.",
		Handler: pinned("label_names", "icontains", "", ""),
	})
	t.Add(Action{
		Name:    "priority",
		Usage:   "-priority [not] [op] <value> " + filterOptsUsage,
		Summary: "Filter on raw priority (4 is p1), by default with eq.",
		Handler: shortcut("priority", "eq", "int"),
	})
	t.Add(Action{
		Name:    "priority-eq",
		Usage:   "-priority-eq <value> " + filterOptsUsage,
		Summary: "Keep tasks with raw priority equal to <value>.",
		Handler: pinned("priority", "eq", "", "int"),
	})
	t.Add(Action{
		Name:    "priority-ge",
		Usage:   "-priority-ge <value> " + filterOptsUsage,
		Summary: "Keep tasks with raw priority of at least <value>.",
		Handler: pinned("priority", "ge", "", "int"),
	})
	t.Add(Action{
		Name:    "priority-str",
		Usage:   "-priority-str [not] [op] <value> " + filterOptsUsage,
		Summary: "Filter on priority label (p1 to p4), by default with eq.",
		Handler: shortcut("priority_str", "eq", ""),
	})
	t.Add(Action{
		Name:    "priority-str-eq",
		Usage:   "-priority-str-eq <value> " + filterOptsUsage,
		Summary: "Keep tasks with priority label <value>.",
		Handler: pinned("priority_str", "eq", "", ""),
	})
	for _, p := range []string{"p1", "p2", "p3", "p4"} {
		t.Add(Action{
			Name:    p,
			Usage:   fmt.Sprintf("-%s %s", p, filterOptsUsage),
			Summary: fmt.Sprintf("Keep tasks with priority %s.", p),
			Handler: pinned("priority_str", "eq", p, ""),
		})
	}
}

func filterAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	spec, err := filter.SpecFromArgs(inv.Args, inv.Kwargs)
	if err != nil {
		return nil, err
	}
	return s.Filter.Apply(tasks, spec)
}

// pinned filters key with op. With a fixed value every argument is an
// option; otherwise the first argument is the value.
func pinned(key, op, value, transform string) Handler {
	return func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
		args, val := inv.Args, value
		if val == "" {
			if len(args) == 0 {
				return nil, &filter.UsageError{Msg: fmt.Sprintf("-%s requires a value", inv.Name)}
			}
			val, args = args[0], args[1:]
		}
		spec := filter.Spec{Key: key, Op: op, Value: record.String(val), Transform: transform}
		return s.applyOptions(tasks, spec, args, inv.Kwargs)
	}
}

// shortcut filters key, inferring the operator from the arity: one
// argument uses defaultOp, two or more start with the operator. A leading
// "not" negates.
func shortcut(key, defaultOp, transform string) Handler {
	return func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
		args := inv.Args
		negate := false
		if len(args) > 0 && args[0] == "not" {
			negate, args = true, args[1:]
		}
		var op, value string
		switch len(args) {
		case 0:
			return nil, &filter.UsageError{Msg: fmt.Sprintf("-%s requires a value", inv.Name)}
		case 1:
			op, value, args = defaultOp, args[0], nil
		default:
			op, value, args = args[0], args[1], args[2:]
		}
		spec := filter.Spec{Key: key, Op: op, Value: record.String(value), Transform: transform, Negate: negate}
		return s.applyOptions(tasks, spec, args, inv.Kwargs)
	}
}

func (s *Session) applyOptions(tasks []*record.Record, spec filter.Spec, args []string, kwargs map[string]string) ([]*record.Record, error) {
	opts, err := filter.DecodeOptions(kwargs)
	if err != nil {
		return nil, err
	}
	opts.Merge(args).Apply(&spec)
	return s.Filter.Apply(tasks, spec)
}

// is evaluates the -is predicates.
func (s *Session) is(tasks []*record.Record, args []string) ([]*record.Record, error) {
	negate := false
	if len(args) > 0 && args[0] == "not" {
		negate, args = true, args[1:]
	}
	if len(args) == 0 {
		return nil, &filter.UsageError{Msg: "-is requires a predicate"}
	}

	switch args[0] {
	case "due", "overdue":
		return s.isDue(tasks, args, negate)
	case "checked", "unchecked", "complete", "incomplete", "completed", "done":
		checked := int64(1)
		if strings.HasPrefix(args[0], "un") || strings.HasPrefix(args[0], "in") {
			checked = 0
		}
		return s.Filter.Apply(tasks, filter.Spec{Key: "checked", Op: "eq", Value: record.Int(checked), Negate: negate})
	case "in":
		if len(args) < 2 {
			return nil, &filter.UsageError{Msg: "-is in requires a project name"}
		}
		return s.Filter.Apply(tasks, filter.Spec{Key: "project_name", Op: "eq", Value: record.String(args[1]), Negate: negate})
	case "recurring":
		kind := "recurring"
		if negate {
			kind = "non-recurring"
		}
		s.Log.Infof("Filtering %d tasks, keeping %s tasks", len(tasks), kind)
		out := make([]*record.Record, 0, len(tasks))
		for _, r := range tasks {
			if derive.IsRecurring(r) != negate {
				out = append(out, r)
			}
		}
		return out, nil
	}
	return nil, &filter.UsageError{Msg: fmt.Sprintf("-is predicate %q not recognized", args[0])}
}

func (s *Session) isDue(tasks []*record.Record, args []string, negate bool) ([]*record.Record, error) {
	if len(args) >= 3 && (slices.Equal(args[:3], []string{"due", "or", "overdue"}) ||
		slices.Equal(args[:3], []string{"overdue", "or", "due"})) {
		args = append([]string{"due", "before", "tomorrow"}, args[3:]...)
	}

	var (
		op      string
		when    string
		onDay   bool
		convert func(t time.Time) time.Time
	)
	switch {
	case args[0] == "overdue":
		op, when, convert = "lt", "today", dates.StartOfDay
	case len(args) > 1 && (args[1] == "before" || args[1] == "on" || args[1] == "after"):
		if len(args) < 3 {
			return nil, &filter.UsageError{Msg: fmt.Sprintf("-is due %s requires a date", args[1])}
		}
		when = strings.Join(args[2:], " ")
		switch args[1] {
		case "before":
			op, convert = "lt", dates.StartOfDay
		case "on":
			onDay = true
		case "after":
			op, convert = "gt", dates.EndOfDay
		}
	case len(args) > 1:
		when, onDay = strings.Join(args[1:], " "), true
	default:
		op, when, convert = "le", "today", dates.EndOfDay
	}

	res, err := s.Dates.Parse(when, s.now())
	if err != nil {
		return nil, err
	}
	t := res.Time
	if convert != nil && !res.HasTime {
		t = convert(t)
	}

	// Completed tasks are never due.
	tasks, err = s.Filter.Apply(tasks, filter.Spec{
		Key: "checked", Op: "eq", Value: record.Int(0), Missing: filter.PolicyInclude,
	})
	if err != nil {
		return nil, err
	}
	if onDay {
		return s.Filter.Apply(tasks, filter.Spec{
			Key: "due_date_iso", Op: "startswith", Value: record.String(t.Format("2006-01-02")),
			Missing: filter.PolicyExclude, Negate: negate,
		})
	}
	return s.Filter.Apply(tasks, filter.Spec{
		Key: "due_date_dt", Op: op, Value: record.Time(t),
		Missing: filter.PolicyExclude, Negate: negate,
	})
}
