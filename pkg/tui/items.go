package tui

import (
	"strings"

	"github.com/taskchain/taskchain/pkg/record"
)

// ListItem is one row of the task list.
type ListItem struct {
	ID              string
	Name            string
	Project         string
	Task            *record.Record
	IsSectionHeader bool // project name row starting a run of tasks
}

// BuildItems turns tasks into list rows, keeping their order. A section
// header is inserted whenever the project changes from one task to the
// next, so a list sorted by project reads as grouped.
func BuildItems(tasks []*record.Record) []ListItem {
	var items []ListItem
	prev := "\x00"
	for _, t := range tasks {
		project := t.Resolve("project_name").String()
		if project != prev {
			items = append(items, ListItem{ID: "project:" + project, Name: project, IsSectionHeader: true})
			prev = project
		}
		items = append(items, ListItem{
			ID:      t.ID(),
			Name:    t.Content(),
			Project: project,
			Task:    t,
		})
	}
	return items
}

// FilterItems keeps the tasks whose content contains query
// (case-insensitive) along with the headers of their sections.
func FilterItems(items []ListItem, query string) []ListItem {
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	var result []ListItem
	var header *ListItem
	for i := range items {
		item := items[i]
		if item.IsSectionHeader {
			header = &items[i]
			continue
		}
		if !strings.Contains(strings.ToLower(item.Name), q) {
			continue
		}
		if header != nil {
			result = append(result, *header)
			header = nil
		}
		result = append(result, item)
	}
	return result
}
