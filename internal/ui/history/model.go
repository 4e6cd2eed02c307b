// Package history lists recorded analysis, processing and search runs.
package history

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xeonx/timeago"

	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/theme"
)

// RefreshMsg asks the app to reload the history.
type RefreshMsg struct{}

// Item wraps a run for the list.
type Item struct {
	Run model.Run
	now func() time.Time
}

// FilterValue returns the string used for filtering.
func (i Item) FilterValue() string { return string(i.Run.Kind) }

// Describe summarizes a run in one line, e.g. "12 scanned, 3 moved".
func Describe(r model.Run) string {
	if r.Failed() {
		return "failed: " + r.Error
	}
	switch r.Kind {
	case model.RunProcessing:
		parts := []string{
			fmt.Sprintf("%d scanned", r.Messages),
			fmt.Sprintf("%d moved", r.Moved),
		}
		if r.Replied > 0 {
			parts = append(parts, fmt.Sprintf("%d replied", r.Replied))
		}
		if r.ReplyFailed > 0 {
			parts = append(parts, fmt.Sprintf("%d replies failed", r.ReplyFailed))
		}
		return strings.Join(parts, ", ")
	case model.RunSearch:
		return fmt.Sprintf("%d hits", r.Messages)
	default:
		return fmt.Sprintf("%d messages", r.Messages)
	}
}

// Ago formats t relative to now, e.g. "5 minutes ago".
func Ago(t, now time.Time) string {
	return timeago.English.FormatReference(t, now)
}

// Delegate renders one run per line.
type Delegate struct{}

// Height returns the number of lines each item takes.
func (Delegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (Delegate) Spacing() int { return 0 }

// Update handles per-item messages.
func (Delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

// Render draws a run line.
func (Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	r := it.Run
	line := fmt.Sprintf("%-16s %s %s %s",
		Ago(r.StartedAt, it.now()),
		theme.RunKindStyle(string(r.Kind)).Width(12).Render(string(r.Kind)),
		theme.OutcomeStyle(r.Failed()).Render(Describe(r)),
		theme.DimmedStyle.Render(r.Duration().Round(time.Millisecond).String()),
	)
	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}

// Model is the run history view.
type Model struct {
	list   list.Model
	now    func() time.Time
	width  int
	height int
}

// New creates an empty history view.
func New(width, height int) Model {
	l := list.New([]list.Item{}, Delegate{}, width, height-2)
	l.Title = "History"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{list: l, now: time.Now, width: width, height: height}
}

// SetRuns replaces the displayed runs.
func (m *Model) SetRuns(runs []model.Run) tea.Cmd {
	items := make([]list.Item, len(runs))
	for i, r := range runs {
		items[i] = Item{Run: r, now: m.now}
	}
	return m.list.SetItems(items)
}

// Update handles navigation and manual refresh.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "r" {
		return m, func() tea.Msg { return RefreshMsg{} }
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the history list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No runs recorded yet.")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
