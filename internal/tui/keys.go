package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Collapse key.Binding
	Remove   key.Binding
	Reload   key.Binding
	Export   key.Binding
	Open     key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " ", "right", "l"),
			key.WithHelp("enter/→", "expand"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "collapse"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "remove"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "library"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// screenKeys exposes the bindings relevant to one screen to the help bubble.
type screenKeys struct {
	keys    keyMap
	screen  screen
	library bool // esc returns to the library
}

func (s screenKeys) ShortHelp() []key.Binding {
	if s.screen == screenLibrary {
		return []key.Binding{s.keys.Up, s.keys.Down, s.keys.Open, s.keys.Quit}
	}
	return []key.Binding{s.keys.Toggle, s.keys.Remove, s.keys.Help, s.keys.Quit}
}

func (s screenKeys) FullHelp() [][]key.Binding {
	if s.screen == screenLibrary {
		return [][]key.Binding{
			{s.keys.Up, s.keys.Down},
			{s.keys.Open, s.keys.Reload},
			{s.keys.Help, s.keys.Quit},
		}
	}
	nav := []key.Binding{s.keys.Up, s.keys.Down, s.keys.Toggle, s.keys.Collapse}
	edit := []key.Binding{s.keys.Remove, s.keys.Reload, s.keys.Export}
	app := []key.Binding{s.keys.Help, s.keys.Quit}
	if s.library {
		app = append([]key.Binding{s.keys.Back}, app...)
	}
	return [][]key.Binding{nav, edit, app}
}
