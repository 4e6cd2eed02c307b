// Package search is the subject search view: a query input over a
// result table.
package search

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/theme"
)

// RequestMsg asks the app to run a search.
type RequestMsg struct {
	Query string
}

// Model is the search view.
type Model struct {
	input   textinput.Model
	table   table.Model
	query   string
	results []model.SearchHit
	loading bool
	width   int
	height  int
}

// New creates a search view with a focused query input.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "subject contains..."
	ti.Prompt = "/ "
	ti.Width = width - 4
	ti.Focus()

	t := table.New(
		table.WithColumns(columns(width)),
		table.WithHeight(max(height-4, 1)),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true).Foreground(theme.ColorBlue)
	st.Selected = st.Selected.Foreground(theme.ColorWhite).Background(theme.ColorSubtle)
	t.SetStyles(st)

	return Model{input: ti, table: t, width: width, height: height}
}

func columns(width int) []table.Column {
	dateW, senderW := 19, 28
	subjectW := max(width-dateW-senderW-8, 20)
	return []table.Column{
		{Title: "Date", Width: dateW},
		{Title: "Sender", Width: senderW},
		{Title: "Subject", Width: subjectW},
	}
}

// SetQuery prefills and submits a query, as from the command palette.
func (m *Model) SetQuery(q string) tea.Msg {
	m.input.SetValue(q)
	return m.submit()
}

// SetLoading marks a search in progress.
func (m *Model) SetLoading(loading bool) { m.loading = loading }

// SetResults shows hits for the last submitted query.
func (m *Model) SetResults(hits []model.SearchHit) {
	m.loading = false
	m.results = hits
	rows := make([]table.Row, len(hits))
	for i, h := range hits {
		date := h.Date
		if date == "" {
			date = "-"
		}
		rows[i] = table.Row{date, h.Sender, h.Subject}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Focus gives the query input focus.
func (m *Model) Focus() tea.Cmd {
	m.table.Blur()
	return m.input.Focus()
}

// Typing reports whether key presses go to the query input.
func (m Model) Typing() bool { return m.input.Focused() }

func (m *Model) submit() tea.Msg {
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		return nil
	}
	m.query = q
	m.input.Blur()
	m.table.Focus()
	return RequestMsg{Query: q}
}

// Update handles query entry and result navigation.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.input.Focused() {
			switch msg.String() {
			case "enter":
				req := m.submit()
				if req == nil {
					return m, nil
				}
				return m, func() tea.Msg { return req }
			case "esc":
				if len(m.results) > 0 {
					m.input.Blur()
					m.table.Focus()
				}
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		if msg.String() == "/" || msg.String() == "i" {
			return m, m.Focus()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the input, a result count and the result table.
func (m Model) View() string {
	status := theme.DimmedStyle.Render("enter a subject fragment and press enter")
	switch {
	case m.loading:
		status = theme.DimmedStyle.Render(fmt.Sprintf("searching for %q...", m.query))
	case m.query != "" && len(m.results) == 0:
		status = theme.DimmedStyle.Render(fmt.Sprintf("no messages match %q", m.query))
	case m.query != "":
		status = theme.DimmedStyle.Render(fmt.Sprintf("%d messages match %q", len(m.results), m.query))
	}

	input := lipgloss.NewStyle().Padding(0, 1).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left,
		input,
		lipgloss.NewStyle().Padding(0, 1).Render(status),
		m.table.View(),
	)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 4
	m.table.SetColumns(columns(width))
	m.table.SetHeight(max(height-4, 1))
}
