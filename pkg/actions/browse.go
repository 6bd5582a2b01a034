package actions

import (
	"fmt"
	"path/filepath"

	"github.com/taskchain/taskchain/pkg/record"
	"github.com/taskchain/taskchain/pkg/store"
	"github.com/taskchain/taskchain/pkg/tui"
)

// TerminalBrowser opens the full-screen browser on tasks. Reloading keeps
// the same tasks in the same order, with fresh data from the cache.
func TerminalBrowser(s *Session, tasks []*record.Record) error {
	opts := tui.Options{
		Title:  fmt.Sprintf("taskchain (%d tasks)", len(tasks)),
		Reload: s.reloader(tasks),
	}
	if s.Config != nil && s.Config.DataDir != "" {
		opts.WatchPath = filepath.Join(s.Config.DataDir, store.SnapshotFile)
	}
	return tui.Run(tasks, opts)
}

// reloader returns a function that reloads the snapshot and picks out the
// records of tasks, in order. Tasks that disappeared are dropped.
func (s *Session) reloader(tasks []*record.Record) tui.ReloadFunc {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID()
	}
	return func() ([]*record.Record, error) {
		snap, err := s.Backend.Load(s.Ctx)
		if err != nil {
			return nil, err
		}
		byID := map[string]*record.Record{}
		for _, r := range s.records(snap) {
			byID[r.ID()] = r
		}
		out := make([]*record.Record, 0, len(ids))
		for _, id := range ids {
			if r, ok := byID[id]; ok {
				out = append(out, r)
			}
		}
		return out, nil
	}
}
