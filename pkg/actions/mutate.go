package actions

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskchain/taskchain/pkg/chain"
	"github.com/taskchain/taskchain/pkg/dates"
	"github.com/taskchain/taskchain/pkg/derive"
	"github.com/taskchain/taskchain/pkg/filter"
	"github.com/taskchain/taskchain/pkg/record"
	"github.com/taskchain/taskchain/pkg/todoist"
)

const commitReminder = "Remember to -commit the changes (not -sync)"

func registerMutations(t Table) {
	t.Add(Action{
		Name:    "reschedule",
		Usage:   "-reschedule <date>",
		Summary: "Reschedule tasks. Recurring tasks keep their schedule and get a new due date.",
		Handler: rescheduleAction,
	})
	t.Add(Action{
		Name:    "reschedule-due-date",
		Usage:   "-reschedule-due-date <date>",
		Summary: "Set due.date on every task, leaving due.string as is.",
		Handler: rescheduleDueDateAction,
	})
	t.Add(Action{
		Name:    "reschedule-by-string",
		Usage:   "-reschedule-by-string <due string>",
		Summary: "Set due.string on every task and let the server parse it.",
		Handler: rescheduleByStringAction,
	})
	t.Add(Action{
		Name:    "reschedule-fixed-timezone",
		Usage:   "-reschedule-fixed-timezone <due string> <timezone>",
		Summary: "Reschedule with a due date pinned to a timezone.",
		Handler: rescheduleFixedTimezoneAction,
	})
	t.Add(Action{
		Name:    "rename",
		Usage:   "-rename <content>",
		Summary: "Change the content of every task.",
		Handler: renameAction,
	})
	t.Add(Action{
		Name:    "mark-completed",
		Usage:   "-mark-completed [close|complete]",
		Summary: "Mark tasks completed, by default with close.",
		Handler: markCompletedAction,
	}, "mark-as-done")
	t.Add(Action{
		Name:    "close",
		Usage:   "-close",
		Summary: "Close tasks like the official clients do: recurring tasks move to their next date.",
		Handler: eachTask("Closing", todoist.ItemClose),
	})
	t.Add(Action{
		Name:    "reopen",
		Usage:   "-reopen",
		Summary: "Re-open completed tasks.",
		Handler: eachTask("Re-opening", todoist.ItemUncomplete),
	}, "uncomplete")
	t.Add(Action{
		Name:    "archive",
		Usage:   "-archive",
		Summary: "Archive tasks.",
		Handler: eachTask("Archiving", todoist.ItemArchive),
	})
	t.Add(Action{
		Name:    "delete",
		Usage:   "-delete",
		Summary: "Delete tasks.",
		Handler: eachTask("Deleting", todoist.ItemDelete),
	})
	t.Add(Action{
		Name:    "complete-and-update",
		Usage:   "-complete-and-update [date] [due string]",
		Summary: "Complete one occurrence of recurring tasks, optionally moving them.",
		Handler: completeAndUpdateAction,
	})
	t.Add(Action{
		Name:    "add-task",
		Usage:   "-add-task <content> [project=<name>] [due=<string>] [priority=<p1..p4>] [labels=<a,b>]",
		Summary: "Queue a new task.",
		Handler: addTaskAction,
	})
}

func (s *Session) requireArgs(inv chain.Invocation, n int) error {
	if len(inv.Args) < n {
		return &filter.UsageError{Msg: fmt.Sprintf("-%s requires %d argument(s); usage: %s",
			inv.Name, n, s.Table[inv.Name].Usage)}
	}
	return nil
}

// eachTask queues cmd for every task.
func eachTask(verb string, cmd func(id string) todoist.Command) Handler {
	return func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
		s.Log.Infof("%s %d tasks", verb, len(tasks))
		for _, t := range tasks {
			s.Enqueue(cmd(t.ID()))
		}
		s.Log.Info(commitReminder)
		return tasks, nil
	}
}

// dueDate parses expr into the date string the due API expects.
func (s *Session) dueDate(expr string) (string, error) {
	r, err := s.Dates.Parse(expr, s.now())
	if err != nil {
		return "", err
	}
	return dates.DateString(r), nil
}

func rescheduleAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if err := s.requireArgs(inv, 1); err != nil {
		return nil, err
	}
	when := strings.Join(inv.Args, " ")
	s.Log.Infof("Rescheduling %d tasks for %q", len(tasks), when)

	var date string
	for _, t := range tasks {
		if !derive.IsRecurring(t) {
			s.Log.Debugf("Rescheduling %q with due.string=%q", t.Content(), when)
			s.Enqueue(todoist.ItemUpdate(t.ID(), map[string]any{"due": map[string]any{"string": when}}))
			continue
		}
		if date == "" {
			var err error
			if date, err = s.dueDate(when); err != nil {
				return nil, err
			}
		}
		due := map[string]any{"date": date, "is_recurring": true}
		if str := t.Resolve("due_string_safe"); !str.IsNull() {
			due["string"] = str.String()
		}
		s.Log.Debugf("Rescheduling recurring %q with due.date=%s", t.Content(), date)
		s.Enqueue(todoist.ItemUpdate(t.ID(), map[string]any{"due": due}))
	}
	s.Log.Info(commitReminder)
	return tasks, nil
}

func rescheduleDueDateAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if err := s.requireArgs(inv, 1); err != nil {
		return nil, err
	}
	date, err := s.dueDate(strings.Join(inv.Args, " "))
	if err != nil {
		return nil, err
	}
	s.Log.Infof("Rescheduling %d tasks for %s", len(tasks), date)
	for _, t := range tasks {
		s.Enqueue(todoist.ItemUpdate(t.ID(), map[string]any{"due": map[string]any{"date": date}}))
	}
	s.Log.Info(commitReminder)
	return tasks, nil
}

func rescheduleByStringAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if err := s.requireArgs(inv, 1); err != nil {
		return nil, err
	}
	str := strings.Join(inv.Args, " ")
	s.Log.Infof("Rescheduling %d tasks for %q", len(tasks), str)
	for _, t := range tasks {
		if derive.IsRecurring(t) {
			s.Log.Warnf("%q is a recurring task (%s); its schedule will be replaced",
				t.Content(), t.Resolve("due_string_safe"))
		}
		s.Enqueue(todoist.ItemUpdate(t.ID(), map[string]any{"due": map[string]any{"string": str}}))
	}
	s.Log.Info(commitReminder)
	return tasks, nil
}

func rescheduleFixedTimezoneAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if err := s.requireArgs(inv, 2); err != nil {
		return nil, err
	}
	str, tz := inv.Args[0], inv.Args[1]
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	s.Log.Infof("Rescheduling %d tasks for %q in %s", len(tasks), str, tz)
	for _, t := range tasks {
		s.Enqueue(todoist.ItemUpdate(t.ID(), map[string]any{"due": map[string]any{"string": str, "timezone": tz}}))
	}
	s.Log.Info(commitReminder)
	return tasks, nil
}

func renameAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if err := s.requireArgs(inv, 1); err != nil {
		return nil, err
	}
	content := strings.Join(inv.Args, " ")
	s.Log.Infof("Renaming %d tasks to %q", len(tasks), content)
	for _, t := range tasks {
		s.Log.Debugf("Renaming %q -> %q", t.Content(), content)
		s.Enqueue(todoist.ItemUpdate(t.ID(), map[string]any{"content": content}))
	}
	s.Log.Info(commitReminder)
	return tasks, nil
}

func markCompletedAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	method := inv.Arg(0, inv.Kwarg("method", "close"))
	var cmd func(string) todoist.Command
	switch method {
	case "close", "item_close":
		cmd = todoist.ItemClose
	case "complete", "item_complete":
		cmd = todoist.ItemComplete
	case "item_update_date_complete", "complete_recurring":
		return nil, &filter.UsageError{Msg: fmt.Sprintf("method %q: use -complete-and-update or -close instead", method)}
	default:
		return nil, &filter.UsageError{Msg: fmt.Sprintf("method %q not recognized (close, complete)", method)}
	}
	return eachTask("Completing", cmd)(s, tasks, inv)
}

func completeAndUpdateAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	due := map[string]any{}
	if when := inv.Arg(0, ""); when != "" && !filter.IsPlaceholder(when) {
		date, err := s.dueDate(when)
		if err != nil {
			return nil, err
		}
		due["date"] = date
	}
	if str := inv.Arg(1, ""); str != "" && !filter.IsPlaceholder(str) {
		due["string"] = str
	}
	s.Log.Infof("Completing %d recurring tasks", len(tasks))
	for _, t := range tasks {
		if !derive.IsRecurring(t) {
			s.Log.Warnf("%q is not a recurring task", t.Content())
		}
		s.Enqueue(todoist.ItemUpdateDateComplete(t.ID(), due))
	}
	s.Log.Info(commitReminder)
	return tasks, nil
}

func addTaskAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if err := s.requireArgs(inv, 1); err != nil {
		return nil, err
	}
	content := strings.Join(inv.Args, " ")
	fields := map[string]any{}
	for k, v := range inv.Kwargs {
		switch k {
		case "project":
			if s.Snapshot == nil {
				return nil, &filter.UsageError{Msg: "project lookup needs loaded tasks"}
			}
			id, ok := s.Snapshot.ProjectID(v)
			if !ok {
				return nil, &filter.UsageError{Msg: fmt.Sprintf("no project named %q", v)}
			}
			fields["project_id"] = id
		case "due":
			fields["due"] = map[string]any{"string": v}
		case "priority":
			p, err := derive.ParsePriority(v)
			if err != nil {
				return nil, err
			}
			fields["priority"] = p
		case "labels":
			labels := splitKeys(v)
			for _, name := range labels {
				if s.Snapshot == nil {
					break
				}
				if _, ok := s.Snapshot.LabelID(name); !ok {
					s.Log.Warnf("No label named %q yet; Todoist creates it on commit", name)
				}
			}
			fields["labels"] = labels
		case "description":
			fields["description"] = v
		default:
			return nil, &filter.UsageError{Msg: fmt.Sprintf("-add-task does not accept %s=", k)}
		}
	}
	s.Log.Infof("Adding task %q", content)
	s.Enqueue(todoist.ItemAdd(content, fields))
	s.Log.Info(commitReminder)
	return tasks, nil
}
