// Package sync keeps the local cache in step with the remote task store.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/taskchain/taskchain/pkg/store"
	"github.com/taskchain/taskchain/pkg/todoist"
)

// Remote is the part of the Todoist client the syncer needs.
type Remote interface {
	Sync(ctx context.Context) (*todoist.SyncResult, error)
	Commit(ctx context.Context, cmds []todoist.Command) (*todoist.SyncResult, error)
}

// Syncer serves snapshots from the cache and refreshes it from Remote.
type Syncer struct {
	Remote Remote
	Store  *store.Store
	Log    *logrus.Logger
	Now    func() time.Time
}

// New returns a Syncer logging to log.
func New(remote Remote, st *store.Store, log *logrus.Logger) *Syncer {
	return &Syncer{Remote: remote, Store: st, Log: log, Now: time.Now}
}

// Load returns the cached snapshot, syncing first if there is no cache yet.
func (s *Syncer) Load(ctx context.Context) (*store.Snapshot, error) {
	snap, err := s.Store.Load()
	if err != nil {
		return nil, err
	}
	if snap != nil {
		s.log().Debugf("Loaded %d tasks from %s", len(snap.Items), s.Store.SnapshotPath())
		return snap, nil
	}
	s.log().Info("No local cache, syncing")
	return s.Refresh(ctx)
}

// Refresh performs a full sync and replaces the cache.
func (s *Syncer) Refresh(ctx context.Context) (*store.Snapshot, error) {
	res, err := s.Remote.Sync(ctx)
	if err != nil {
		return nil, err
	}
	snap := &store.Snapshot{
		Updated:   s.now(),
		SyncToken: res.SyncToken,
		Items:     nonNil(res.Items),
		Projects:  nonNil(res.Projects),
		Labels:    nonNil(res.Labels),
	}
	if err := s.Store.Save(snap); err != nil {
		return nil, fmt.Errorf("saving cache: %w", err)
	}
	s.log().Infof("Synced %d tasks", len(snap.Items))
	return snap, nil
}

// Commit pushes cmds and refreshes the cache. When the push fails the cache
// is still refreshed and the push error is returned; todoist.Pending tells
// which commands it left unapplied.
func (s *Syncer) Commit(ctx context.Context, cmds []todoist.Command) (*store.Snapshot, error) {
	if len(cmds) == 0 {
		s.log().Info("Nothing to commit")
		return s.Load(ctx)
	}
	s.log().Infof("Committing %d changes", len(cmds))
	_, commitErr := s.Remote.Commit(ctx, cmds)
	snap, err := s.Refresh(ctx)
	if commitErr != nil {
		return snap, commitErr
	}
	return snap, err
}

// DeleteCache removes the local cache.
func (s *Syncer) DeleteCache() error {
	s.log().Infof("Deleting %s", s.Store.SnapshotPath())
	return s.Store.Delete()
}

func (s *Syncer) log() *logrus.Logger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Syncer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func nonNil(items []map[string]any) []map[string]any {
	if items == nil {
		return []map[string]any{}
	}
	return items
}
