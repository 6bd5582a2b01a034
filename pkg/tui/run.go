package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/taskchain/taskchain/pkg/record"
)

// Options configure Run.
type Options struct {
	Title string
	// WatchPath is the cache file to watch; empty disables watching.
	WatchPath string
	Reload    ReloadFunc
}

// Run shows tasks in a full-screen browser until the user quits.
func Run(tasks []*record.Record, opts Options) error {
	title := opts.Title
	if title == "" {
		title = "Tasks"
	}
	p := tea.NewProgram(NewModel(title, tasks, opts.Reload), tea.WithAltScreen())
	if opts.WatchPath != "" && opts.Reload != nil {
		stop, err := StartWatcher(opts.WatchPath, p.Send)
		if err != nil {
			return err
		}
		defer stop()
	}
	_, err := p.Run()
	return err
}
