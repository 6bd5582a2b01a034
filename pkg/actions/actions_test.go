package actions

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskchain/taskchain/pkg/chain"
	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/derive"
	"github.com/taskchain/taskchain/pkg/filter"
	"github.com/taskchain/taskchain/pkg/record"
	"github.com/taskchain/taskchain/pkg/store"
	"github.com/taskchain/taskchain/pkg/todoist"
)

type fakeBackend struct {
	snap      *store.Snapshot
	loadErr   error
	commitErr func(cmds []todoist.Command) error

	loads     int
	refreshes int
	deletes   int
	committed [][]todoist.Command
}

func (b *fakeBackend) Load(ctx context.Context) (*store.Snapshot, error) {
	b.loads++
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.snap, nil
}

func (b *fakeBackend) Refresh(ctx context.Context) (*store.Snapshot, error) {
	b.refreshes++
	return b.snap, nil
}

func (b *fakeBackend) Commit(ctx context.Context, cmds []todoist.Command) (*store.Snapshot, error) {
	b.committed = append(b.committed, cmds)
	if b.commitErr != nil {
		return b.snap, b.commitErr(cmds)
	}
	return b.snap, nil
}

func (b *fakeBackend) DeleteCache() error {
	b.deletes++
	return nil
}

func fixture() *store.Snapshot {
	return &store.Snapshot{
		Items: []map[string]any{
			{"id": "1", "content": "Buy milk", "project_id": "p1", "checked": false, "labels": []any{"habit"}},
			{"id": "2", "content": "Ship report", "project_id": "p2", "checked": false, "priority": 4,
				"due": map[string]any{"date": "2024-01-01", "string": "jan 1"}},
			{"id": "3", "content": "Pay rent", "project_id": "p1", "checked": false, "priority": 3,
				"due": map[string]any{"date": "2023-12-30", "string": "every month", "is_recurring": true}},
			{"id": "4", "content": "Water plants", "checked": false, "priority": 2,
				"due": map[string]any{"date": "2024-01-02", "string": "jan 2"}},
			{"id": "5", "content": "Old chore", "checked": true,
				"due": map[string]any{"date": "2023-12-31"}},
		},
		Projects: []map[string]any{
			{"id": "p1", "name": "Home"},
			{"id": "p2", "name": "Work"},
		},
		Labels: []map[string]any{
			{"id": "l1", "name": "errand"},
		},
	}
}

func setupSession(t *testing.T) (*Session, *fakeBackend, *bytes.Buffer) {
	t.Helper()
	log, _ := test.NewNullLogger()
	backend := &fakeBackend{snap: fixture()}
	cfg := &config.Config{
		SortKeys:  []string{"id"},
		SortOrder: "ascending",
		Aliases:   map[string]string{},
	}
	s := NewSession(context.Background(), cfg, backend, log)
	out := &bytes.Buffer{}
	s.Out = out
	s.Now = func() time.Time { return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) }
	s.Deriver = derive.New(time.UTC)
	s.Confirm = func(string) (bool, error) { return true, nil }
	s.Browse = nil
	return s, backend, out
}

func execute(t *testing.T, s *Session, tokens ...string) ([]*record.Record, error) {
	t.Helper()
	return s.Execute(chain.Parse(tokens))
}

func ids(tasks []*record.Record) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID()
	}
	return out
}

func TestFilterChains(t *testing.T) {
	tests := []struct {
		name  string
		chain string
		want  []string
	}{
		{"priority with default and transform", "-filter priority ge 2 default 1 int", []string{"2", "3", "4"}},
		{"content startswith", "-filter content startswith Buy", []string{"1"}},
		{"due before tomorrow", "-is due before tomorrow", []string{"2", "3"}},
		{"negated label", "-label !habit", []string{"2", "3", "4", "5"}},
		{"label", "-label HABIT", []string{"1"}},
		{"overdue", "-is overdue", []string{"3"}},
		{"due today", "-is due", []string{"2", "3"}},
		{"due on date", "-is due on 2024-01-02", []string{"4"}},
		{"due after today", "-is due after today", []string{"4"}},
		{"due shortcut", "-due before tomorrow", []string{"2", "3"}},
		{"due or overdue", "-is due or overdue", []string{"2", "3"}},
		{"not due before tomorrow", "-is not due before tomorrow", []string{"4"}},
		{"checked", "-is checked", []string{"5"}},
		{"unchecked", "-is unchecked", []string{"1", "2", "3", "4"}},
		{"not checked", "-not checked", []string{"1", "2", "3", "4"}},
		{"recurring", "-is recurring", []string{"3"}},
		{"not recurring", "-is not recurring", []string{"1", "2", "4", "5"}},
		{"in project", "-is in Home", []string{"1", "3"}},
		{"p1", "-p1", []string{"2"}},
		{"p4 defaults", "-p4", []string{"1", "5"}},
		{"priority-ge", "-priority-ge 3", []string{"2", "3"}},
		{"priority shortcut with op", "-priority gt 2", []string{"2", "3"}},
		{"project iglob", "-project work", []string{"2"}},
		{"contains", "-contains milk", []string{"1"}},
		{"content not", "-content not *report*", []string{"1", "3", "4", "5"}},
		{"chained", "-is unchecked -project Home", []string{"1", "3"}},
		{"sort descending", "-is unchecked -sort priority descending", []string{"2", "3", "4", "1"}},
		{"sort ascending nulls first", "-is unchecked -sort priority", []string{"1", "4", "3", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := setupSession(t)
			got, err := execute(t, s, strings.Fields(tt.chain)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestUnknownActionRejectedBeforeLoad(t *testing.T) {
	s, backend, out := setupSession(t)
	_, err := execute(t, s, "-p1", "-frobnicate", "-print", "-bogus")

	var unknown *UnknownActionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"frobnicate", "bogus"}, unknown.Names)
	assert.Contains(t, err.Error(), "-frobnicate, -bogus")
	assert.Zero(t, backend.loads)
	assert.Empty(t, out.String())
}

func TestLoadError(t *testing.T) {
	s, backend, _ := setupSession(t)
	backend.loadErr = errors.New("offline")
	_, err := execute(t, s, "-p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading tasks: offline")
}

func TestUsageErrorsAreWrapped(t *testing.T) {
	s, _, _ := setupSession(t)
	_, err := execute(t, s, "-filter", "content")

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "filter", actionErr.Action)
	var usage *filter.UsageError
	assert.ErrorAs(t, err, &usage)
	assert.True(t, strings.HasPrefix(err.Error(), "-filter: "))
}

func TestNilResultIsInternalError(t *testing.T) {
	s, _, _ := setupSession(t)
	s.Table.Add(Action{
		Name: "broken",
		Handler: func(s *Session, tasks []*record.Record, inv chain.Invocation) ([]*record.Record, error) {
			return nil, nil
		},
	})
	_, err := execute(t, s, "-broken")
	var internal *InternalError
	require.ErrorAs(t, err, &internal)
	assert.Equal(t, "broken", internal.Action)
}

func TestSortTasksIsStable(t *testing.T) {
	tasks := record.FromRaw([]map[string]any{
		{"id": "a", "priority": 1},
		{"id": "b", "priority": 2},
		{"id": "c", "priority": 1},
		{"id": "d"},
	})
	assert.Equal(t, []string{"d", "a", "c", "b"}, ids(SortTasks(tasks, []string{"priority"}, false)))
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(SortTasks(tasks, []string{"priority"}, true)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(tasks), "input untouched")
}

func TestSortRejectsBadOrder(t *testing.T) {
	s, _, _ := setupSession(t)
	_, err := execute(t, s, "-sort", "priority", "sideways")
	var usage *filter.UsageError
	assert.ErrorAs(t, err, &usage)
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{"template", []string{"-is", "in", "Home", "-print", "{id}:{content}"}, "1:Buy milk\n3:Pay rent\n"},
		{"header and separator", []string{"-is", "in", "Home", "-print", "{id}", "Home:", ", "}, "Home:\n1, 3\n"},
		{"kwargs", []string{"-p1", "-print", "fmt={priority_str} {content:>12}"}, "p1  Ship report\n"},
		{"nothing to print", []string{"-is", "in", "Nowhere", "-print", "{content}"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, out := setupSession(t)
			_, err := execute(t, s, tt.tokens...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestPrintDefaultTemplate(t *testing.T) {
	s, _, out := setupSession(t)
	_, err := execute(t, s, "-p1", "-print")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Ship report (due jan 1)")
	assert.Contains(t, out.String(), "2024-01-01")
}

func TestPrintYAML(t *testing.T) {
	s, _, out := setupSession(t)
	_, err := execute(t, s, "-p1", "-print", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "content: Ship report")
	assert.Contains(t, out.String(), "project_name: Work")
}

func TestTable(t *testing.T) {
	s, _, out := setupSession(t)
	_, err := execute(t, s, "-is", "in", "Home", "-table", "id,content")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "content")
	assert.Contains(t, out.String(), "Buy milk")
	assert.Contains(t, out.String(), "Pay rent")
	assert.Contains(t, out.String(), "2 tasks")
}

func TestMutationsQueueWithoutChangingTasks(t *testing.T) {
	s, backend, _ := setupSession(t)
	got, err := execute(t, s, "-p1", "-rename", "Ship", "it")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ship report", got[0].Content())

	require.Len(t, s.Queue, 1)
	assert.Equal(t, todoist.TypeItemUpdate, s.Queue[0].Type)
	assert.Equal(t, "2", s.Queue[0].Args["id"])
	assert.Equal(t, "Ship it", s.Queue[0].Args["content"])
	assert.Empty(t, backend.committed)
}

func TestReschedule(t *testing.T) {
	s, _, _ := setupSession(t)
	_, err := execute(t, s, "-is", "unchecked", "-filter", "id", "in", "2,3", "-reschedule", "2024-02-01")
	require.NoError(t, err)
	require.Len(t, s.Queue, 2)
	assert.Equal(t, map[string]any{"string": "2024-02-01"}, s.Queue[0].Args["due"])
	assert.Equal(t, map[string]any{
		"date":         "2024-02-01",
		"string":       "every month",
		"is_recurring": true,
	}, s.Queue[1].Args["due"])
}

func TestMutationCommands(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		typ    string
		args   map[string]any
	}{
		{"close", []string{"-p1", "-close"}, todoist.TypeItemClose, map[string]any{"id": "2"}},
		{"mark completed default", []string{"-p1", "-mark-completed"}, todoist.TypeItemClose, map[string]any{"id": "2"}},
		{"mark as done complete", []string{"-p1", "-mark-as-done", "complete"}, todoist.TypeItemComplete, map[string]any{"id": "2"}},
		{"reopen", []string{"-is", "checked", "-reopen"}, todoist.TypeItemUncomplete, map[string]any{"id": "5"}},
		{"archive", []string{"-p1", "-archive"}, todoist.TypeItemArchive, map[string]any{"id": "2"}},
		{"delete", []string{"-p1", "-delete"}, todoist.TypeItemDelete, map[string]any{"id": "2"}},
		{"due date", []string{"-p1", "-reschedule-due-date", "tomorrow"}, todoist.TypeItemUpdate,
			map[string]any{"id": "2", "due": map[string]any{"date": "2024-01-02"}}},
		{"by string", []string{"-p1", "-reschedule-by-string", "every", "day"}, todoist.TypeItemUpdate,
			map[string]any{"id": "2", "due": map[string]any{"string": "every day"}}},
		{"fixed timezone", []string{"-p1", "-reschedule-fixed-timezone", "tomorrow 9am", "Europe/Berlin"}, todoist.TypeItemUpdate,
			map[string]any{"id": "2", "due": map[string]any{"string": "tomorrow 9am", "timezone": "Europe/Berlin"}}},
		{"complete and update", []string{"-is", "recurring", "-complete-and-update", "2024-02-01", "every 2 months"},
			todoist.TypeItemUpdateDateComplete,
			map[string]any{"id": "3", "due": map[string]any{"date": "2024-02-01", "string": "every 2 months"}}},
		{"complete and update in place", []string{"-is", "recurring", "-complete-and-update"},
			todoist.TypeItemUpdateDateComplete, map[string]any{"id": "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := setupSession(t)
			_, err := execute(t, s, tt.tokens...)
			require.NoError(t, err)
			require.Len(t, s.Queue, 1)
			assert.Equal(t, tt.typ, s.Queue[0].Type)
			assert.Equal(t, tt.args, s.Queue[0].Args)
		})
	}
}

func TestMutationErrors(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
	}{
		{"rename without content", []string{"-p1", "-rename"}},
		{"unsupported completion method", []string{"-p1", "-mark-completed", "item_update_date_complete"}},
		{"unknown completion method", []string{"-p1", "-mark-completed", "vaporize"}},
		{"bad timezone", []string{"-p1", "-reschedule-fixed-timezone", "tomorrow", "Mars/Olympus"}},
		{"unknown project", []string{"-add-task", "Buy bread", "project=Garden"}},
		{"unknown add-task option", []string{"-add-task", "Buy bread", "color=red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := setupSession(t)
			_, err := execute(t, s, tt.tokens...)
			var actionErr *ActionError
			require.ErrorAs(t, err, &actionErr)
			assert.Empty(t, s.Queue)
		})
	}
}

func TestAddTask(t *testing.T) {
	s, _, _ := setupSession(t)
	hook := test.NewLocal(s.Log)
	got, err := execute(t, s, "-add-task", "Buy bread", "project=Home", "priority=p1", "labels=errand, food", "due=friday")
	require.NoError(t, err)
	assert.Len(t, got, 5)

	require.Len(t, s.Queue, 1)
	cmd := s.Queue[0]
	assert.Equal(t, todoist.TypeItemAdd, cmd.Type)
	assert.NotEmpty(t, cmd.TempID)
	assert.Equal(t, map[string]any{
		"content":    "Buy bread",
		"project_id": "p1",
		"priority":   int64(4),
		"labels":     []string{"errand", "food"},
		"due":        map[string]any{"string": "friday"},
	}, cmd.Args)

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = append(warned, e.Message)
		}
	}
	assert.Equal(t, []string{`No label named "food" yet; Todoist creates it on commit`}, warned)
}

func TestSortUsesConfiguredOrder(t *testing.T) {
	s, _, _ := setupSession(t)
	s.Config.SortOrder = "desc"
	got, err := execute(t, s, "-is", "unchecked", "-sort", "priority")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "4", "1"}, ids(got))

	got, err = execute(t, s, "-is", "unchecked", "-sort", "priority", "ascending")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4", "3", "2"}, ids(got))
}

func TestCommit(t *testing.T) {
	s, backend, _ := setupSession(t)
	s.Confirm = func(string) (bool, error) {
		t.Fatal("confirmation asked despite -yes")
		return false, nil
	}
	got, err := execute(t, s, "yes", "-p1", "-close", "-commit")
	require.NoError(t, err)
	assert.Len(t, got, 5, "commit returns the refreshed task list")
	require.Len(t, backend.committed, 1)
	assert.Len(t, backend.committed[0], 1)
	assert.Empty(t, s.Queue)
}

func TestFailedCommitKeepsQueue(t *testing.T) {
	tests := []struct {
		name    string
		err     func(cmds []todoist.Command) error
		pending []string
	}{
		{
			name: "push failed",
			err: func([]todoist.Command) error {
				return &todoist.ExternalStoreError{Op: "commit", Status: 500, Err: errors.New("boom")}
			},
			pending: []string{"2", "4"},
		},
		{
			name: "one command rejected",
			err: func(cmds []todoist.Command) error {
				return &todoist.ExternalStoreError{Op: "commit", Err: multierror.Append(nil,
					&todoist.CommandError{Command: cmds[1], Status: "Item not found"})}
			},
			pending: []string{"4"},
		},
		{
			name: "refresh after push failed",
			err: func([]todoist.Command) error {
				return &todoist.ExternalStoreError{Op: "sync", Status: 502, Err: errors.New("bad gateway")}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend, _ := setupSession(t)
			backend.commitErr = tt.err
			_, err := execute(t, s, "yes", "-priority-ge", "2", "-is", "not", "recurring", "-rename", "x", "-commit")
			var storeErr *todoist.ExternalStoreError
			require.ErrorAs(t, err, &storeErr)
			require.Len(t, backend.committed, 1)
			var pending []string
			for _, cmd := range s.Queue {
				pending = append(pending, cmd.Args["id"].(string))
			}
			assert.Equal(t, tt.pending, pending)
		})
	}
}

func TestCommitAsksFirst(t *testing.T) {
	s, backend, _ := setupSession(t)
	var prompt string
	s.Confirm = func(p string) (bool, error) {
		prompt = p
		return false, nil
	}
	got, err := execute(t, s, "-p1", "-close", "-commit")
	require.NoError(t, err)
	assert.Equal(t, "Commit 1 changes?", prompt)
	assert.Equal(t, []string{"2"}, ids(got))
	assert.Empty(t, backend.committed)
	assert.Len(t, s.Queue, 1)
}

func TestCommitWithoutTerminal(t *testing.T) {
	s, backend, _ := setupSession(t)
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	s.Confirm = TerminalConfirm(f)

	_, err = execute(t, s, "-p1", "-close", "-commit")
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.Empty(t, backend.committed)
}

func TestSyncDiscardsQueue(t *testing.T) {
	s, backend, _ := setupSession(t)
	got, err := execute(t, s, "-p1", "-close", "-sync")
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Empty(t, s.Queue)
	assert.Equal(t, 1, backend.refreshes)
}

func TestShowQueue(t *testing.T) {
	s, backend, out := setupSession(t)
	_, err := execute(t, s, "-show-queue")
	require.NoError(t, err)
	assert.Equal(t, "(empty)\n", out.String())
	assert.Zero(t, backend.loads)

	out.Reset()
	_, err = execute(t, s, "-p1", "-delete", "-print-queue")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "type: item_delete")
	assert.Contains(t, out.String(), "id: \"2\"")
}

func TestDeleteCacheIsOffline(t *testing.T) {
	s, backend, _ := setupSession(t)
	_, err := execute(t, s, "-delete-cache")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.deletes)
	assert.Zero(t, backend.loads)
}

func TestHelp(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{"empty chain", nil, []string{"# taskchain", "`-filter <key> <op> <value>", "`-commit`"}},
		{"overview", []string{"-help"}, []string{"## Actions", "`-sort [key1,key2,...] [ascending|descending]`"}},
		{"one action", []string{"-h", "reschedule"}, []string{"## -reschedule", "Recurring tasks keep their schedule"}},
		{"alias of an action", []string{"-help", "mark-as-done"}, []string{"## -mark-completed"}},
		{"operators", []string{"-help", "operators"}, []string{"`ieq`", "`glob`", "`int`", "`human_date_to_iso`"}},
		{"unknown topic", []string{"-help", "frobnicate"}, []string{"## Actions"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend, out := setupSession(t)
			_, err := execute(t, s, tt.tokens...)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
			assert.Zero(t, backend.loads)
		})
	}
}

func TestHelpListsEachActionOnce(t *testing.T) {
	s, _, out := setupSession(t)
	_, err := execute(t, s, "-help")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "`-mark-completed [close|complete]`"))
}

func TestBaseArgs(t *testing.T) {
	s, _, _ := setupSession(t)
	_, err := execute(t, s, "v", "v", "y", "-help")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Verbosity)
	assert.Equal(t, logrus.TraceLevel, s.Log.GetLevel())
	assert.True(t, s.AssumeYes)
}

func TestIgnoredBaseArgWarns(t *testing.T) {
	log, hook := test.NewNullLogger()
	s, _, _ := setupSession(t)
	s.Log = log
	_, err := execute(t, s, "bogus", "-help")
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "bogus")
}

func TestAliases(t *testing.T) {
	s, _, out := setupSession(t)
	s.Config.Aliases = map[string]string{
		"today": "-is due before tomorrow",
		"home":  "-is in Home -print {content}",
	}
	got, err := execute(t, s, "-today")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(got))

	_, err = execute(t, s, "-home")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk\nPay rent\n", out.String())
}

func TestBrowseUsesBrowser(t *testing.T) {
	s, _, _ := setupSession(t)
	var shown []string
	s.Browse = func(s *Session, tasks []*record.Record) error {
		shown = ids(tasks)
		return nil
	}
	got, err := execute(t, s, "-is", "recurring", "-browse")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, shown)
	assert.Equal(t, []string{"3"}, ids(got))
}

func TestReloaderKeepsSelection(t *testing.T) {
	s, backend, _ := setupSession(t)
	got, err := execute(t, s, "-is", "in", "Home")
	require.NoError(t, err)

	reload := s.reloader(got)
	backend.snap = fixture()
	backend.snap.Items[0]["content"] = "Buy oat milk"
	backend.snap.Items = backend.snap.Items[:2]

	tasks, err := reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(tasks))
	assert.Equal(t, "Buy oat milk", tasks[0].Content())
}
