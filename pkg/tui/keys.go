package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the browser's bindings. It implements help.KeyMap.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Pane     key.Binding
	Reload   key.Binding
	Search   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func binding(keys []string, label, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

// DefaultKeyMap returns vim-style bindings with arrow-key equivalents.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       binding([]string{"up", "k"}, "↑/k", "up"),
		Down:     binding([]string{"down", "j"}, "↓/j", "down"),
		PageUp:   binding([]string{"pgup", "ctrl+u"}, "pgup", "half page up"),
		PageDown: binding([]string{"pgdown", "ctrl+d"}, "pgdn", "half page down"),
		Top:      binding([]string{"home", "g"}, "g", "first task"),
		Bottom:   binding([]string{"end", "G"}, "G", "last task"),
		Pane:     binding([]string{"tab"}, "tab", "tasks / details"),
		Reload:   binding([]string{"R"}, "R", "reload cache"),
		Search:   binding([]string{"/"}, "/", "search"),
		Help:     binding([]string{"?"}, "?", "help"),
		Quit:     binding([]string{"q", "ctrl+c"}, "q", "quit"),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Pane, k.Search, k.Reload, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Pane, k.Search, k.Reload, k.Help, k.Quit},
	}
}
