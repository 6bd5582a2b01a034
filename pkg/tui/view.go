package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/taskchain/taskchain/pkg/dates"
	"github.com/taskchain/taskchain/pkg/derive"
	"github.com/taskchain/taskchain/pkg/record"
)

const minWidth = 40
const minHeight = 10

// View implements tea.Model.
func (m Model) View() string {
	w, h := max(m.width, minWidth), max(m.height, minHeight)

	if m.showHelp {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, m.renderHelpModal())
	}

	rule := strings.Repeat("─", w)
	top := []string{m.renderHeader(w), rule}
	if m.searching || m.query != "" {
		top = append(top, m.renderSearchBar(w))
	}
	contentHeight := h - len(top) - 2

	leftWidth := max(w/3, 20)
	rightWidth := max(w-leftWidth-1, 20)

	leftPanel := m.renderListPanel(leftWidth, contentHeight)
	rightPanel := m.renderDetailPanel(rightWidth, contentHeight)

	sepColor := ColorFaint
	if m.focused == paneDetail {
		sepColor = ColorAccent
	}
	divider := lipgloss.NewStyle().Foreground(sepColor).
		Render(strings.TrimSuffix(strings.Repeat("│\n", contentHeight), "\n"))
	panel := func(content string, width int) string {
		return lipgloss.NewStyle().Width(width).Height(contentHeight).MaxHeight(contentHeight).Render(content)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panel(leftPanel, leftWidth), divider, panel(rightPanel, rightWidth))

	return strings.Join(append(top, body, rule, m.renderFooter()), "\n")
}

func (m Model) renderHeader(width int) string {
	title := HeaderStyle.Render(m.title)

	checked := 0
	for _, t := range m.tasks {
		if t.Get("checked").Truthy() {
			checked++
		}
	}
	stats := CountStyle.Render(fmt.Sprintf("%d tasks, %d done", len(m.tasks), checked))

	status := ""
	if m.status != "" && m.now().Before(m.statusUntil) {
		status = "  " + lipgloss.NewStyle().Foreground(ColorSection).Render(m.status)
	}

	return spread(width, title, status+stats)
}

// spread places left and right at the two edges of a line of width cells.
func spread(width int, left, right string) string {
	gap := max(1, width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderSearchBar(width int) string {
	cursor := ""
	if m.searching {
		cursor = "█"
	}
	bar := SearchBarStyle.Render("/ " + m.query + cursor)
	matches := 0
	for _, item := range m.visibleItems {
		if !item.IsSectionHeader {
			matches++
		}
	}
	return spread(width, bar, CountStyle.Render(fmt.Sprintf("%d matches", matches)))
}

func (m Model) renderListPanel(width, height int) string {
	if len(m.visibleItems) == 0 {
		return FooterStyle.Render(" No tasks.")
	}
	from, to := window(m.cursor, len(m.visibleItems), height)
	lines := make([]string, 0, to-from)
	for i, item := range m.visibleItems[from:to] {
		if item.IsSectionHeader {
			lines = append(lines, m.renderSectionHeader(item, width))
		} else {
			lines = append(lines, m.renderTaskItem(item, from+i == m.cursor, width))
		}
	}
	return strings.Join(lines, "\n")
}

// window returns the range of n rows to show in height lines, keeping
// cursor near the middle.
func window(cursor, n, height int) (int, int) {
	if n <= height {
		return 0, n
	}
	from := min(max(cursor-height/2, 0), n-height)
	return from, from + height
}

func (m Model) renderSectionHeader(item ListItem, width int) string {
	label := SectionStyle.Render("── " + item.Name + " ")
	remaining := width - lipgloss.Width(label)
	if remaining > 0 {
		label += lipgloss.NewStyle().Foreground(ColorFaint).Render(strings.Repeat("─", remaining))
	}
	return label
}

func (m Model) renderTaskItem(item ListItem, isSelected bool, width int) string {
	t := item.Task

	statusIcon := UncheckedStyle.Render(IconUnchecked)
	if t.Get("checked").Truthy() {
		statusIcon = CheckedStyle.Render(IconChecked)
	}

	prio := derive.PriorityString(derive.Priority(t))
	prioText := prio
	if style, ok := PriorityStyles[prio]; ok {
		prioText = style.Render(prio)
	}

	name := item.Name
	if derive.IsRecurring(t) {
		name += " " + IconRecurring
	}
	if m.query != "" {
		if isSelected {
			name = highlightMatch(name, m.query, SearchCharSelectedStyle, SelectedStyle)
		} else {
			name = highlightMatch(name, m.query, SearchCharStyle, SearchRowStyle)
		}
	}

	line := " " + statusIcon + " " + prioText + " " + name
	if due := m.dueLabel(t); due != "" {
		line += " " + due
	}

	if isSelected {
		return SelectedStyle.Width(width).Render(line)
	}
	return line
}

// dueLabel is the short due date shown next to a task, red when overdue.
func (m Model) dueLabel(t *record.Record) string {
	due, ok := t.Resolve("due_date_dt").AsTime()
	if !ok {
		return ""
	}
	label := t.Resolve("due_date").String()
	if due.Before(dates.StartOfDay(m.now())) && !t.Get("checked").Truthy() {
		return OverdueStyle.Render(label)
	}
	return DueStyle.Render(label)
}

func (m Model) renderDetailPanel(width, height int) string {
	t := m.Selected()
	if t == nil {
		return FooterStyle.Render(" Select a task to view details")
	}

	doc := TaskMarkdown(t)
	if r := m.mdRenderer; r != nil {
		if out, err := r.Render(doc); err == nil {
			doc = out
		}
	}
	lines := strings.Split(strings.TrimRight(doc, "\n "), "\n")
	lines = lines[min(m.detailScroll, len(lines)-1):]
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	var help string
	switch {
	case m.searching:
		help = "type to search  enter/↓ keep filter  esc clear"
	case m.query != "":
		help = "esc/enter clear filter  ↑↓ nav"
	case m.focused == paneDetail:
		help = "↑↓ scroll details  pgup/pgdn page  tab tasks  ? help"
	default:
		return m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return FooterStyle.Render(help)
}

func (m Model) renderHelpModal() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(ColorInfo).Width(16)
	descStyle := lipgloss.NewStyle().Foreground(ColorText)

	for _, column := range m.keys.FullHelp() {
		for _, kb := range column {
			h := kb.Help()
			b.WriteString(keyStyle.Render(h.Key))
			b.WriteString(descStyle.Render(h.Desc))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("Press Esc or ? to close"))

	return ModalStyle.Render(b.String())
}

// highlightMatch splits name into before/match/after and styles the match portion
// with charStyle, and the rest with rowStyle. The match is case-insensitive.
func highlightMatch(name, query string, charStyle, rowStyle lipgloss.Style) string {
	lower := strings.ToLower(name)
	idx := strings.Index(lower, strings.ToLower(query))
	if idx < 0 || len(lower) != len(name) {
		return rowStyle.Render(name)
	}
	before := name[:idx]
	match := name[idx : idx+len(query)]
	after := name[idx+len(query):]

	var result string
	if before != "" {
		result += rowStyle.Render(before)
	}
	result += charStyle.Render(match)
	if after != "" {
		result += rowStyle.Render(after)
	}
	return result
}
