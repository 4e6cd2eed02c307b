package app

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nhle/mail-organizer/internal/analytics"
	"github.com/nhle/mail-organizer/internal/engine"
	"github.com/nhle/mail-organizer/internal/jobs"
	"github.com/nhle/mail-organizer/internal/keys"
	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/rules"
	"github.com/nhle/mail-organizer/internal/ui"
	"github.com/nhle/mail-organizer/internal/ui/command"
	configview "github.com/nhle/mail-organizer/internal/ui/config"
	"github.com/nhle/mail-organizer/internal/ui/dashboard"
	helpview "github.com/nhle/mail-organizer/internal/ui/help"
	"github.com/nhle/mail-organizer/internal/ui/history"
	rulesview "github.com/nhle/mail-organizer/internal/ui/rules"
	searchview "github.com/nhle/mail-organizer/internal/ui/search"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewRules
	ViewSearch
	ViewAutoReply
	ViewHistory
	ViewHelp
	ViewCommand
	ViewForm
)

var tabs = []string{"1 Dashboard", "2 Rules", "3 Search", "4 Auto-reply", "5 History"}

// kindConnect labels the login job; it is never recorded in history.
const kindConnect model.RunKind = "connect"

// periods are the analysis windows cycled with the days key.
var periods = []int{7, 30, 90}

// Deps carries everything the UI drives.
type Deps struct {
	Engine     *engine.Engine
	Runner     *jobs.Runner
	Config     *model.AppConfig
	ConfigPath string
	Logger     *log.Logger

	// Creds, when Secret is set, connects on start without the login form.
	Creds mailbox.Credentials
}

// Model is the root Bubble Tea model that routes between views and
// starts scans through the job runner.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	engine     *engine.Engine
	runner     *jobs.Runner
	cfg        *model.AppConfig
	configPath string
	logger     *log.Logger
	creds      mailbox.Credentials

	dashboard   dashboard.Model
	rulesView   rulesview.Model
	searchView  searchview.Model
	historyView history.Model
	helpView    helpview.Model
	commandView command.Model
	forms       configview.Model

	days      int
	status    string
	statusErr bool
	ready     bool
}

// New creates the root model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	days := d.Config.Analysis.DefaultDays
	if days <= 0 {
		days = 30
	}

	m := Model{
		currentView: ViewDashboard,
		keys:        k,
		engine:      d.Engine,
		runner:      d.Runner,
		cfg:         d.Config,
		configPath:  d.ConfigPath,
		logger:      logger,
		creds:       d.Creds,
		dashboard:   dashboard.New(80, 20),
		rulesView:   rulesview.New(k, 80, 20),
		searchView:  searchview.New(80, 20),
		historyView: history.New(80, 20),
		helpView:    helpview.New(k, command.Commands, 80, 20),
		commandView: command.New(80, 20),
		forms:       configview.New(80, 20),
		days:        days,
	}
	m.rulesView.SetRules(d.Engine.Rules())
	if s, ok := d.Engine.LastSummary(); ok {
		m.dashboard.SetSummary(s)
	}
	return m
}

// Init starts listening for scan results, loads the history, and either
// connects with the supplied credentials or opens the login form.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.runner.WaitForResult(), m.loadHistory()}
	if m.creds.Secret != "" {
		cmds = append(cmds, func() tea.Msg { return configview.LoginMsg{Creds: m.creds} })
	} else {
		cmds = append(cmds, func() tea.Msg { return openLoginMsg{} })
	}
	return tea.Batch(cmds...)
}

// openLoginMsg defers opening the login form until the first Update so
// the form is built on the live model.
type openLoginMsg struct{}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.dashboard.SetSize(w, h)
		m.rulesView.SetSize(w, h)
		m.searchView.SetSize(w, h)
		m.historyView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.forms.SetSize(w, h)
		return m.updateActiveView(msg)

	case openLoginMsg:
		return m, m.openForm(m.forms.StartLogin(m.cfg.Mailbox))

	case jobs.ResultMsg:
		return m.handleResult(msg)

	case configview.LoginMsg:
		m.closeForm()
		return m, m.login(msg)

	case configview.RuleMsg:
		m.closeForm()
		return m, m.addRule(msg.Rule)

	case configview.AutoReplyMsg:
		m.closeForm()
		return m, m.saveAutoReply(msg.Settings)

	case configview.SettingsMsg:
		m.closeForm()
		return m, m.saveSettings(msg)

	case configview.CancelMsg:
		m.closeForm()
		return m, nil

	case rulesview.AddRequestMsg:
		return m, m.openForm(m.forms.StartRule())

	case searchview.RequestMsg:
		return m, m.startSearch(msg.Query)

	case history.RefreshMsg:
		return m, m.loadHistory()

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		return m, m.historyView.SetRuns(msg.runs)

	case ruleAddedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Rule %q added", msg.rule.Name))
		return m, m.rulesView.SetRules(m.engine.Rules())

	case autoReplySavedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus("Auto-reply " + onOff(msg.settings.Enabled))
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.days = m.cfg.Analysis.DefaultDays
		m.setStatus("Settings saved; SMTP and schedule changes apply on restart")
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus("Exported " + msg.path)
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewForm || m.typing() {
			break
		}
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// typing reports whether the active view owns plain key presses.
func (m Model) typing() bool {
	switch m.currentView {
	case ViewCommand:
		return true
	case ViewSearch:
		return m.searchView.Typing()
	}
	return false
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m.quit(), true
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
		m.currentView = m.previousView
		return nil, true

	case key.Matches(msg, m.keys.Next):
		m.currentView = ViewState((int(m.tabIndex()) + 1) % len(tabs))
		return m.enterView(), true

	case key.Matches(msg, m.keys.Prev):
		m.currentView = ViewState((int(m.tabIndex()) + len(tabs) - 1) % len(tabs))
		return m.enterView(), true

	case key.Matches(msg, m.keys.Dashboard):
		m.currentView = ViewDashboard
		return nil, true

	case key.Matches(msg, m.keys.Rules):
		m.currentView = ViewRules
		return nil, true

	case key.Matches(msg, m.keys.Search):
		m.currentView = ViewSearch
		return m.searchView.Focus(), true

	case key.Matches(msg, m.keys.AutoReply):
		return m.openForm(m.forms.StartAutoReply(m.engine.AutoReply())), true

	case key.Matches(msg, m.keys.History):
		m.currentView = ViewHistory
		return m.loadHistory(), true

	case key.Matches(msg, m.keys.Analyze):
		m.currentView = ViewDashboard
		return m.startAnalysis(), true

	case key.Matches(msg, m.keys.Process):
		return m.startProcessing(), true

	case key.Matches(msg, m.keys.Days):
		m.days = nextPeriod(m.days)
		m.setStatus(fmt.Sprintf("Analysis period: last %d days", m.days))
		return nil, true

	case key.Matches(msg, m.keys.Connect):
		return m.openForm(m.forms.StartLogin(m.cfg.Mailbox)), true

	case key.Matches(msg, m.keys.Export):
		return m.export(""), true
	}
	return nil, false
}

// tabIndex maps the current view onto the tab row; overlays count as
// the dashboard.
func (m Model) tabIndex() ViewState {
	if m.currentView <= ViewHistory {
		return m.currentView
	}
	return ViewDashboard
}

// enterView runs the side effects of switching to the current view.
func (m *Model) enterView() tea.Cmd {
	switch m.currentView {
	case ViewSearch:
		return m.searchView.Focus()
	case ViewHistory:
		return m.loadHistory()
	case ViewAutoReply:
		return m.openForm(m.forms.StartAutoReply(m.engine.AutoReply()))
	}
	return nil
}

func (m *Model) openForm(cmd tea.Cmd) tea.Cmd {
	if m.currentView != ViewForm {
		m.previousView = m.tabIndex()
		if m.previousView == ViewAutoReply {
			m.previousView = ViewDashboard
		}
	}
	m.currentView = ViewForm
	return cmd
}

func (m *Model) closeForm() {
	if m.currentView == ViewForm {
		m.currentView = m.previousView
	}
}

func (m *Model) quit() tea.Cmd {
	m.runner.Shutdown()
	return tea.Quit
}

// handleResult applies a finished scan to the views.
func (m Model) handleResult(res jobs.ResultMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.runner.WaitForResult()}

	if res.Err != nil {
		m.setError(res.Err)
		switch res.Kind {
		case kindConnect:
			cmds = append(cmds, m.openForm(m.forms.StartLogin(m.cfg.Mailbox)))
		case model.RunAnalysis:
			m.dashboard.SetLoading(false)
		case model.RunSearch:
			m.searchView.SetResults(nil)
		}
		if res.Kind != kindConnect {
			cmds = append(cmds, m.loadHistory())
		}
		return m, tea.Batch(cmds...)
	}

	switch res.Kind {
	case kindConnect:
		m.setStatus("Connected as " + m.engine.Identity().Address)
		cmds = append(cmds, m.startAnalysis())
		return m, tea.Batch(cmds...)

	case model.RunAnalysis:
		if s, ok := res.Value.(analytics.Summary); ok {
			m.dashboard.SetSummary(s)
			m.setStatus(fmt.Sprintf("Analyzed %d messages from the last %d days", s.Total, s.Days))
		}

	case model.RunProcessing:
		if r, ok := res.Value.(*rules.Report); ok {
			m.setStatus(fmt.Sprintf("Processed %d unseen: %d moved, %d replied", r.Scanned, r.Moved, r.Replied))
		}

	case model.RunSearch:
		if hits, ok := res.Value.([]model.SearchHit); ok {
			m.searchView.SetResults(hits)
		}
	}
	cmds = append(cmds, m.loadHistory())
	return m, tea.Batch(cmds...)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewDashboard, ViewAutoReply:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewRules:
		m.rulesView, cmd = m.rulesView.Update(msg)
	case ViewSearch:
		m.searchView, cmd = m.searchView.Update(msg)
	case ViewHistory:
		m.historyView, cmd = m.historyView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewForm:
		m.forms, cmd = m.forms.Update(msg)
	}

	// Spinner ticks must reach the dashboard whichever view is showing.
	if _, ok := msg.(spinner.TickMsg); ok && m.currentView != ViewDashboard {
		var tick tea.Cmd
		m.dashboard, tick = m.dashboard.Update(msg)
		cmd = tea.Batch(cmd, tick)
	}
	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.title(), m.scanStatus())
	tabRow := m.layout.RenderTabs(tabs, int(m.tabIndex()))
	statusBar := m.layout.RenderStatusBar(m.statusLine(), m.statusErr && m.status != "")

	return m.layout.RenderWithFrame(header, tabRow, m.renderContent(), statusBar)
}

func (m Model) title() string {
	if m.engine.Connected() {
		return "Mail Organizer · " + m.engine.Identity().Address
	}
	return "Mail Organizer · not connected"
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDashboard, ViewAutoReply:
		return m.dashboard.View()
	case ViewRules:
		return m.rulesView.View()
	case ViewSearch:
		return m.searchView.View()
	case ViewHistory:
		return m.historyView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewForm:
		return m.forms.View()
	default:
		return ""
	}
}

// scanStatus describes the runner state for the header.
func (m Model) scanStatus() string {
	st := m.runner.Status()
	period := fmt.Sprintf("%dd", m.days)
	switch st.State {
	case jobs.Running:
		return fmt.Sprintf("%s running · %s", st.Kind, period)
	case jobs.Failed:
		return fmt.Sprintf("%s failed · %s", st.Kind, period)
	default:
		return "idle · " + period
	}
}

// statusLine returns the last status message, or key hints.
func (m Model) statusLine() string {
	if m.status != "" {
		return m.status
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewForm:
		return "enter next | shift+tab back | esc cancel"
	case ViewRules:
		return "n new rule | j/k move | tab next view | ? help"
	case ViewSearch:
		return "enter search | / edit query | j/k move | esc results"
	case ViewHistory:
		return "r reload | j/k move | tab next view | ? help"
	default:
		return "a analyze | p process | d period | x export | c connect | : command | ? help | q quit"
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = "Error: " + err.Error()
	m.statusErr = true
	m.logger.Error("ui action failed", "error", err)
}

func nextPeriod(days int) int {
	for i, p := range periods {
		if p == days {
			return periods[(i+1)%len(periods)]
		}
	}
	return periods[0]
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
