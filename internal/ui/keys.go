package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Messages   key.Binding
	Logs       key.Binding
	Logout     key.Binding
	Escape     key.Binding

	// Grid navigation
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Booking
	Toggle     key.Binding
	CycleSkill key.Binding

	// Filters
	Upcoming     key.Binding
	CycleVenue   key.Binding
	ClearFilters key.Binding

	// Virtual clock
	Back15    key.Binding
	Forward15 key.Binding
	Back5     key.Binding
	Forward5  key.Binding
	ResetTime key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Messages: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Message board"),
		),
		Logs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Client log"),
		),
		Logout: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Log out"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to grid"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Earlier slot"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Later slot"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/left", "Previous venue"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/right", "Next venue"),
		),

		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "Book or cancel"),
		),
		CycleSkill: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Cycle skill level"),
		),

		Upcoming: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Next upcoming slot"),
		),
		CycleVenue: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Cycle venue filter"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Clear filters"),
		),

		Back15: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "-15 min"),
		),
		Forward15: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "+15 min"),
		),
		Back5: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "-5 min"),
		),
		Forward5: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "+5 min"),
		),
		ResetTime: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "Real time"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Upcoming, k.Messages, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Toggle, k.CycleSkill, k.Messages, k.Escape},
		{k.Upcoming, k.CycleVenue, k.ClearFilters},
		{k.Back15, k.Forward15, k.Back5, k.Forward5, k.ResetTime},
		{k.Logs, k.Logout, k.CycleTheme, k.Help, k.Quit},
	}
}
