// Package rules lists the routing rules in evaluation order.
package rules

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mail-organizer/internal/keys"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/theme"
)

// AddRequestMsg asks the app to open the new-rule form.
type AddRequestMsg struct{}

// Item wraps a rule for the list.
type Item struct {
	Rule  model.Rule
	Order int
}

// FilterValue returns the string used for filtering.
func (i Item) FilterValue() string { return i.Rule.Name }

// Delegate renders one rule per line.
type Delegate struct{}

// Height returns the number of lines each item takes.
func (Delegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (Delegate) Spacing() int { return 0 }

// Update handles per-item messages.
func (Delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

// Render draws a rule as: order, name, condition, value and target folder.
func (Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	r := it.Rule
	line := fmt.Sprintf("%2d. %-20s %s %q → %s",
		it.Order,
		r.Name,
		theme.ConditionStyle(string(r.Type)).Render(string(r.Type)),
		r.Value,
		r.Folder,
	)
	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}

// Model is the rule list view.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	width  int
	height int
}

// New creates an empty rule list.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, Delegate{}, width, height-2)
	l.Title = "Rules (first match wins)"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{list: l, keys: k, width: width, height: height}
}

// SetRules replaces the displayed rules.
func (m *Model) SetRules(rules []model.Rule) tea.Cmd {
	items := make([]list.Item, len(rules))
	for i, r := range rules {
		items[i] = Item{Rule: r, Order: i + 1}
	}
	return m.list.SetItems(items)
}

// Update handles navigation and the add key.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.AddRule) {
		return m, func() tea.Msg { return AddRequestMsg{} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the rule list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No rules yet.\n\nPress n to add one.")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
