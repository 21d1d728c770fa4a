package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit     key.Binding
	Help     key.Binding
	NextPage key.Binding

	// Calibration
	FontUp      key.Binding
	FontDown    key.Binding
	CursorUp    key.Binding
	CursorDown  key.Binding
	CycleWeight key.Binding
	Preview     key.Binding
	Save        key.Binding
	Revert      key.Binding
	RevertClear key.Binding
	Capture     key.Binding
	ClearSnap   key.Binding

	// Break reminder
	TogglePause key.Binding
	BreakNow    key.Binding
	Snooze      key.Binding
	Dismiss     key.Binding
	ResetStats  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch page"),
		),

		FontUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "font larger"),
		),
		FontDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "font smaller"),
		),
		CursorUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "wider cursor"),
		),
		CursorDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "narrower cursor"),
		),
		CycleWeight: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "font weight"),
		),
		Preview: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "preview"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save"),
		),
		Revert: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "revert"),
		),
		RevertClear: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "revert + clear"),
		),
		Capture: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "recapture snapshot"),
		),
		ClearSnap: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete snapshot"),
		),

		TogglePause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p/space", "reminder on/off"),
		),
		BreakNow: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "break now"),
		),
		Snooze: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "snooze"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss"),
		),
		ResetStats: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "reset stats"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FontUp, k.FontDown, k.Save, k.Revert, k.BreakNow, k.NextPage, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.FontUp, k.FontDown, k.CursorUp, k.CursorDown, k.CycleWeight},
		{k.Preview, k.Save, k.Revert, k.RevertClear, k.Capture, k.ClearSnap},
		{k.TogglePause, k.BreakNow, k.Snooze, k.Dismiss, k.ResetStats},
		{k.NextPage, k.Help, k.Quit},
	}
}
