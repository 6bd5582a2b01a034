package tui

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// WatchErrorMsg carries an error from the file watcher.
type WatchErrorMsg struct {
	Err error
}

// StartWatcher sends FileChangedMsg to send whenever the file at path is
// written or replaced. The parent directory is watched because the cache is
// replaced by renaming a temporary file over it. The returned func stops
// watching.
func StartWatcher(path string, send func(tea.Msg)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	name := filepath.Base(path)
	done := make(chan struct{})

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() { send(FileChangedMsg{}) })
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				send(WatchErrorMsg{Err: err})
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
