package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/taskchain/taskchain/pkg/derive"
	"github.com/taskchain/taskchain/pkg/record"
)

// FileChangedMsg reports that the watched cache file was rewritten.
type FileChangedMsg struct{}

// ReloadFunc returns fresh copies of the tasks being browsed.
type ReloadFunc func() ([]*record.Record, error)

type pane int

const (
	paneList pane = iota
	paneDetail
)

// Model is the Bubble Tea model for browsing a task list.
type Model struct {
	title        string
	keys         KeyMap
	help         help.Model
	reloadTasks  ReloadFunc
	now          func() time.Time
	width        int
	height       int
	tasks        []*record.Record
	items        []ListItem
	visibleItems []ListItem
	cursor       int
	focused      pane
	detailScroll int

	showHelp  bool
	searching bool
	query     string

	status      string
	statusUntil time.Time

	mdRenderer *glamour.TermRenderer
	mdWidth    int
}

// NewModel creates a model over tasks. reload may be nil.
func NewModel(title string, tasks []*record.Record, reload ReloadFunc) Model {
	m := Model{
		title:       title,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		reloadTasks: reload,
		now:         time.Now,
	}
	m.setTasks(tasks)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.markdown(m.detailWidth())
		return m, tea.ClearScreen

	case FileChangedMsg:
		if m.reload() {
			m.setStatus("Cache changed, reloaded")
		}
		return m, nil

	case WatchErrorMsg:
		m.setStatus("Watch error: " + msg.Err.Error())
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.searching:
		m.editQuery(msg)
		return m, nil
	case m.showHelp:
		m.showHelp = !isDismiss(msg) && !key.Matches(msg, m.keys.Help, m.keys.Quit)
		return m, nil
	case m.query != "" && isDismiss(msg):
		id := m.currentID()
		m.query = ""
		m.rebuildVisible()
		m.moveCursorTo(id)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.scroll(-1)
	case key.Matches(msg, m.keys.Down):
		m.scroll(1)
	case key.Matches(msg, m.keys.PageUp):
		m.scroll(-m.halfPage())
	case key.Matches(msg, m.keys.PageDown):
		m.scroll(m.halfPage())
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.moveCursor(0)
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = len(m.visibleItems) - 1
		m.moveCursor(0)
	case key.Matches(msg, m.keys.Pane):
		m.focused = 1 - m.focused
	case key.Matches(msg, m.keys.Reload):
		if m.reload() {
			m.setStatus("Reloaded")
		}
	case key.Matches(msg, m.keys.Search):
		m.searching = true
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	}
	return m, nil
}

func isDismiss(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter
}

// editQuery applies a keystroke to the search query. Esc drops the filter;
// enter, down and tab keep it and return to the list.
func (m *Model) editQuery(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.query = ""
	case tea.KeyEnter, tea.KeyDown, tea.KeyTab:
		m.searching = false
		return
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.query += string(msg.Runes)
	default:
		return
	}
	m.rebuildVisible()
}

// scroll moves the cursor in the list pane or the text in the details pane.
func (m *Model) scroll(delta int) {
	if m.focused == paneList {
		m.moveCursor(delta)
		return
	}
	m.detailScroll = max(0, m.detailScroll+delta)
}

func (m Model) halfPage() int {
	return max(1, (m.height-4)/2)
}

// moveCursor moves by delta, skipping section headers and clamping to the
// list.
func (m *Model) moveCursor(delta int) {
	n := len(m.visibleItems)
	if n == 0 {
		m.cursor = 0
		return
	}
	dir := delta
	if dir == 0 {
		dir = 1
	}
	next := m.cursor + delta
	for next >= 0 && next < n && m.visibleItems[next].IsSectionHeader {
		next += dir
	}
	if next < 0 || next >= n {
		// Nothing selectable that way; search back the other way.
		next = m.cursor
		for next >= 0 && next < n && m.visibleItems[next].IsSectionHeader {
			next -= dir
		}
		if next < 0 || next >= n {
			return
		}
	}
	m.cursor = next
	m.detailScroll = 0
}

func (m *Model) moveCursorTo(id string) {
	for i, item := range m.visibleItems {
		if !item.IsSectionHeader && item.ID == id {
			m.cursor = i
			return
		}
	}
	m.cursor = 0
	m.moveCursor(0)
}

func (m Model) currentID() string {
	if t := m.Selected(); t != nil {
		return t.ID()
	}
	return ""
}

// Selected returns the task under the cursor, or nil.
func (m Model) Selected() *record.Record {
	if m.cursor < 0 || m.cursor >= len(m.visibleItems) {
		return nil
	}
	return m.visibleItems[m.cursor].Task
}

func (m *Model) setTasks(tasks []*record.Record) {
	curID := m.currentID()
	m.tasks = tasks
	m.items = BuildItems(tasks)
	m.rebuildVisible()
	m.moveCursorTo(curID)
}

func (m *Model) rebuildVisible() {
	m.visibleItems = FilterItems(m.items, m.query)
	if m.cursor >= len(m.visibleItems) {
		m.cursor = len(m.visibleItems) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.moveCursor(0)
}

func (m *Model) reload() bool {
	if m.reloadTasks == nil {
		return false
	}
	tasks, err := m.reloadTasks()
	if err != nil {
		m.setStatus("Load error: " + err.Error())
		return false
	}
	m.setTasks(tasks)
	return true
}

func (m Model) detailWidth() int {
	return max(m.width-m.width/3-3, 20)
}

// markdown returns a renderer wrapping at width, rebuilding it only when the
// width changes.
func (m *Model) markdown(width int) *glamour.TermRenderer {
	if m.mdRenderer == nil || m.mdWidth != width {
		r, err := glamour.NewTermRenderer(glamour.WithStylePath("dark"), glamour.WithWordWrap(width))
		if err != nil {
			return nil
		}
		m.mdRenderer, m.mdWidth = r, width
	}
	return m.mdRenderer
}

func (m *Model) setStatus(msg string) {
	m.status = msg
	m.statusUntil = m.now().Add(3 * time.Second)
}

// TaskMarkdown renders the details of a task as markdown.
func TaskMarkdown(t *record.Record) string {
	var md strings.Builder
	md.WriteString("# " + t.Content() + "\n\n")

	var meta []string
	if p := t.Resolve("project_name"); !p.IsNull() {
		meta = append(meta, "**Project:** "+p.String())
	}
	meta = append(meta, "**Priority:** "+derive.PriorityString(derive.Priority(t)))
	if d := t.Resolve("due_date_pretty_safe"); !d.IsNull() {
		meta = append(meta, "**Due:** "+d.String())
	}
	if s := t.Resolve("due_string_safe"); !s.IsNull() && s.String() != "" {
		meta = append(meta, "**Repeats:** "+s.String())
	}
	md.WriteString(strings.Join(meta, " | ") + "\n\n")

	if l := t.Resolve("labels_str"); !l.IsNull() && l.String() != "" {
		md.WriteString("**Labels:** " + l.String() + "\n\n")
	}
	if d := t.Resolve("description"); !d.IsNull() && d.String() != "" {
		md.WriteString(d.String() + "\n\n")
	}

	keys := make([]string, 0, len(t.Fields))
	for k := range t.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	md.WriteString("| field | value |\n|---|---|\n")
	for _, k := range keys {
		v := strings.ReplaceAll(t.Fields[k].String(), "|", "\\|")
		md.WriteString(fmt.Sprintf("| %s | %s |\n", k, v))
	}
	return md.String()
}
