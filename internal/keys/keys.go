package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding
	Next key.Binding
	Prev key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Views
	Dashboard key.Binding
	Rules     key.Binding
	Search    key.Binding
	AutoReply key.Binding
	History   key.Binding

	// Scans
	Analyze key.Binding
	Process key.Binding
	Days    key.Binding

	// Rules
	AddRule key.Binding

	// Session
	Connect key.Binding
	Export  key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous view"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		Rules: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "rules"),
		),
		Search: key.NewBinding(
			key.WithKeys("3", "/"),
			key.WithHelp("3 or /", "search"),
		),
		AutoReply: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "auto-reply"),
		),
		History: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "history"),
		),
		Analyze: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "analyze"),
		),
		Process: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "process unseen"),
		),
		Days: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "cycle period"),
		),
		AddRule: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new rule"),
		),
		Connect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "connect"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export xlsx"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Analyze, k.Process, k.Search, k.Next,
		k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Dashboard, k.Rules, k.Search, k.AutoReply, k.History, k.Next, k.Prev},
		{k.Analyze, k.Process, k.Days, k.Export},
		{k.AddRule, k.Connect, k.Command, k.Help},
	}
}
