// Package actions holds the action table and the executor that folds a
// parsed chain over the working list of tasks.
package actions

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/dates"
	"github.com/taskchain/taskchain/pkg/derive"
	"github.com/taskchain/taskchain/pkg/filter"
	"github.com/taskchain/taskchain/pkg/ops"
	"github.com/taskchain/taskchain/pkg/record"
	"github.com/taskchain/taskchain/pkg/store"
	"github.com/taskchain/taskchain/pkg/todoist"
)

// Backend provides snapshots of the remote store and pushes changes to it.
type Backend interface {
	Load(ctx context.Context) (*store.Snapshot, error)
	Refresh(ctx context.Context) (*store.Snapshot, error)
	Commit(ctx context.Context, cmds []todoist.Command) (*store.Snapshot, error)
	DeleteCache() error
}

// Confirmer asks a yes/no question.
type Confirmer func(prompt string) (bool, error)

// Browser shows tasks interactively until the user quits.
type Browser func(s *Session, tasks []*record.Record) error

// Session is the state shared by the actions of one invocation.
type Session struct {
	Ctx context.Context
	Out io.Writer
	Log *logrus.Logger

	Verbosity int
	AssumeYes bool
	// Styled enables terminal rendering for help output.
	Styled bool

	Now     func() time.Time
	Dates   dates.Parser
	Filter  *filter.Evaluator
	Deriver *derive.Deriver
	Backend Backend
	Confirm Confirmer
	Browse  Browser
	Config  *config.Config
	Table   Table

	// Snapshot is the last snapshot loaded from Backend; it supplies the
	// project and label lists.
	Snapshot *store.Snapshot
	// Queue holds mutations not yet committed.
	Queue []todoist.Command
}

// NewSession returns a session with the default table and collaborators.
func NewSession(ctx context.Context, cfg *config.Config, backend Backend, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	parser := dates.NewNaturalParser()
	s := &Session{
		Ctx:     ctx,
		Out:     os.Stdout,
		Log:     log,
		Now:     time.Now,
		Dates:   parser,
		Deriver: derive.New(time.Local),
		Backend: backend,
		Confirm: TerminalConfirm(os.Stdin),
		Browse:  TerminalBrowser,
		Config:  cfg,
		Table:   DefaultTable(),
	}
	s.Filter = &filter.Evaluator{
		Operators:  ops.Default(),
		Transforms: filter.NewTransforms(parser, s.now),
		Log:        log,
	}
	s.Deriver.ParseContent = cfg.ParseContent
	if cfg.Quiet {
		log.SetLevel(logrus.WarnLevel)
	}
	return s
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// SetVerbosity sets the verbosity and the matching log level: 0 is Info,
// 1 Debug, 2 or more Trace.
func (s *Session) SetVerbosity(v int) {
	s.Verbosity = v
	switch {
	case v <= 0:
		s.Log.SetLevel(logrus.InfoLevel)
	case v == 1:
		s.Log.SetLevel(logrus.DebugLevel)
	default:
		s.Log.SetLevel(logrus.TraceLevel)
	}
}

// Enqueue adds mutations to the pending queue.
func (s *Session) Enqueue(cmds ...todoist.Command) {
	for _, c := range cmds {
		s.Log.Debugf("Queued %s", c)
	}
	s.Queue = append(s.Queue, cmds...)
}

// records replaces the snapshot and returns its freshly derived records.
func (s *Session) records(snap *store.Snapshot) []*record.Record {
	s.Snapshot = snap
	tasks := snap.Records()
	s.Deriver.Derive(tasks, snap.SideData())
	return tasks
}
