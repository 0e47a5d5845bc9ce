package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding

	Quit     key.Binding
	Filter   key.Binding
	Sync     key.Binding
	Play     key.Binding
	Download key.Binding
	Cancel   key.Binding
	Delete   key.Binding
	Bookmark key.Binding
	Test     key.Binding
	Help     key.Binding

	Option1 key.Binding
	Option2 key.Binding
	Option3 key.Binding
	Option4 key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", "l", "right"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "h", "left", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sync"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "cancel download"),
		),
		Delete: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "delete download"),
		),
		Bookmark: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bookmark"),
		),
		Test: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "take test"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Option1: key.NewBinding(key.WithKeys("1"), key.WithHelp("1-4", "answer")),
		Option2: key.NewBinding(key.WithKeys("2")),
		Option3: key.NewBinding(key.WithKeys("3")),
		Option4: key.NewBinding(key.WithKeys("4")),
	}
}

// Keys is the global key bindings instance
var Keys = DefaultKeyMap()
