package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the board view.
type KeyMap struct {
	// Navigation
	Left  key.Binding
	Right key.Binding
	Up    key.Binding
	Down  key.Binding

	// Actions
	MoveCard   key.Binding
	MoveList   key.Binding
	Drop       key.Binding
	Cancel     key.Binding
	AddCard    key.Binding
	AddList    key.Binding
	DeleteCard key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous list"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next list"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous card"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next card"),
		),
		MoveCard: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "pick up card"),
		),
		MoveList: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "pick up list"),
		),
		Drop: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "drop / open card"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		AddCard: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add card"),
		),
		AddList: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "add list"),
		),
		DeleteCard: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete card"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns key bindings to be shown in the mini help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.MoveCard, k.MoveList, k.Drop, k.Cancel},
		{k.AddCard, k.AddList, k.DeleteCard, k.Refresh},
		{k.Help, k.Quit},
	}
}
