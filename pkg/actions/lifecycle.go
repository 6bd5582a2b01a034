package actions

import (
	"fmt"

	"github.com/taskchain/taskchain/pkg/chain"
	"github.com/taskchain/taskchain/pkg/record"
	"github.com/taskchain/taskchain/pkg/todoist"
	"gopkg.in/yaml.v3"
)

func registerLifecycle(t Table) {
	t.Add(Action{
		Name:    "sync",
		Usage:   "-sync",
		Summary: "Fetch all tasks from the server. Uncommitted changes are discarded.",
		Handler: syncAction,
	}, "update")
	t.Add(Action{
		Name:    "commit",
		Usage:   "-commit",
		Summary: "Push queued changes to the server, then sync.",
		Handler: commitAction,
	})
	t.Add(Action{
		Name:    "show-queue",
		Usage:   "-show-queue",
		Summary: "Print the changes queued so far.",
		Handler: showQueueAction,
		Offline: true,
	}, "print-queue")
	t.Add(Action{
		Name:    "delete-cache",
		Usage:   "-delete-cache",
		Summary: "Remove the local cache; the next run syncs from scratch.",
		Handler: deleteCacheAction,
		Offline: true,
	})
}

func syncAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if n := len(s.Queue); n > 0 {
		s.Log.Warnf("Discarding %d uncommitted changes", n)
		s.Queue = nil
	}
	s.Log.Info("Syncing")
	snap, err := s.Backend.Refresh(s.Ctx)
	if err != nil {
		return nil, err
	}
	return s.records(snap), nil
}

func commitAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	n := len(s.Queue)
	if n > 0 && !s.AssumeYes {
		if s.Confirm == nil {
			return nil, ErrNotInteractive
		}
		ok, err := s.Confirm(fmt.Sprintf("Commit %d changes?", n))
		if err != nil {
			return nil, err
		}
		if !ok {
			s.Log.Info("Commit cancelled; changes stay queued")
			return tasks, nil
		}
	}
	snap, err := s.Backend.Commit(s.Ctx, s.Queue)
	if err != nil {
		s.Queue = todoist.Pending(err, s.Queue)
		if n := len(s.Queue); n > 0 {
			s.Log.Warnf("%d changes were not applied and stay queued", n)
		}
		return nil, err
	}
	s.Queue = nil
	return s.records(snap), nil
}

func showQueueAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if len(s.Queue) == 0 {
		fmt.Fprintln(s.Out, "(empty)")
		return tasks, nil
	}
	enc := yaml.NewEncoder(s.Out)
	enc.SetIndent(2)
	if err := enc.Encode(s.Queue); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func deleteCacheAction(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
	if err := s.Backend.DeleteCache(); err != nil {
		return nil, err
	}
	s.Log.Info("Deleted the local cache")
	return tasks, nil
}
