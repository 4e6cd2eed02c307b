package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mail-organizer/internal/credential"
	"github.com/nhle/mail-organizer/internal/export"
	"github.com/nhle/mail-organizer/internal/jobs"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/ui/command"
	configview "github.com/nhle/mail-organizer/internal/ui/config"
)

// historyLimit bounds the runs shown in the history view.
const historyLimit = 100

// historyLoadedMsg carries the recorded runs.
type historyLoadedMsg struct {
	runs []model.Run
	err  error
}

// ruleAddedMsg is sent after a rule is validated and saved.
type ruleAddedMsg struct {
	rule model.Rule
	err  error
}

// autoReplySavedMsg is sent after the auto-reply settings are saved.
type autoReplySavedMsg struct {
	settings model.AutoReplySettings
	err      error
}

// settingsSavedMsg is sent after the config file is written.
type settingsSavedMsg struct{ err error }

// exportDoneMsg is sent after the summary workbook is written.
type exportDoneMsg struct {
	path string
	err  error
}

// errNoSummary is reported when exporting before any analysis.
var errNoSummary = errors.New("nothing to export yet, run an analysis first")

// submit starts a background scan, reporting ErrBusy on the status bar.
func (m *Model) submit(kind model.RunKind, job jobs.Job) bool {
	if err := m.runner.Go(kind, job); err != nil {
		m.setError(err)
		return false
	}
	m.setStatus(fmt.Sprintf("Running %s...", kind))
	return true
}

func (m *Model) startAnalysis() tea.Cmd {
	e, days := m.engine, m.days
	if !m.submit(model.RunAnalysis, func(ctx context.Context) (any, error) {
		return e.Analyze(ctx, days)
	}) {
		return nil
	}
	return m.dashboard.SetLoading(true)
}

func (m *Model) startProcessing() tea.Cmd {
	e := m.engine
	m.submit(model.RunProcessing, func(ctx context.Context) (any, error) {
		return e.Process(ctx)
	})
	return nil
}

func (m *Model) startSearch(query string) tea.Cmd {
	e, days := m.engine, m.days
	if m.submit(model.RunSearch, func(ctx context.Context) (any, error) {
		return e.Search(ctx, query, days)
	}) {
		m.searchView.SetLoading(true)
	}
	return nil
}

// login optionally stores the secret, remembers the account in the
// config file, and connects in the background.
func (m *Model) login(msg configview.LoginMsg) tea.Cmd {
	creds := msg.Creds
	if msg.Remember {
		if err := credential.SetMailboxSecret(creds.Address, creds.Secret); err != nil {
			m.logger.Warn("could not store mailbox secret", "address", creds.Address, "error", err)
		}
	}

	m.cfg.Mailbox.Address = creds.Address
	m.cfg.Mailbox.IMAPHost = creds.Host
	m.cfg.Mailbox.IMAPPort = creds.Port
	if err := model.SaveConfig(m.configPath, m.cfg); err != nil {
		m.logger.Warn("could not save config", "path", m.configPath, "error", err)
	}

	e := m.engine
	m.submit(kindConnect, func(ctx context.Context) (any, error) {
		return nil, e.Connect(ctx, creds)
	})
	return nil
}

// disconnect closes the session unless a job still holds it.
func (m *Model) disconnect() tea.Cmd {
	if m.runner.Busy() {
		m.setError(jobs.ErrBusy)
		return nil
	}
	if err := m.engine.Disconnect(); err != nil {
		m.setError(err)
		return nil
	}
	m.setStatus("Disconnected")
	return nil
}

func (m *Model) addRule(rule model.Rule) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		return ruleAddedMsg{rule: rule, err: e.AddRule(rule)}
	}
}

func (m *Model) saveAutoReply(settings model.AutoReplySettings) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		return autoReplySavedMsg{settings: settings, err: e.SaveAutoReply(settings)}
	}
}

func (m *Model) saveSettings(msg configview.SettingsMsg) tea.Cmd {
	m.cfg.Mailbox.IMAPHost = msg.IMAPHost
	m.cfg.Mailbox.IMAPPort = msg.IMAPPort
	m.cfg.Mailbox.Folder = msg.Folder
	m.cfg.SMTP.Host = msg.SMTPHost
	m.cfg.SMTP.Port = msg.SMTPPort
	m.cfg.Analysis.DefaultDays = msg.DefaultDays
	m.cfg.Schedule.ProcessCron = msg.ProcessCron

	cfg, path := *m.cfg, m.configPath
	return func() tea.Msg {
		return settingsSavedMsg{err: model.SaveConfig(path, &cfg)}
	}
}

func (m *Model) loadHistory() tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		runs, err := e.History(context.Background(), historyLimit)
		return historyLoadedMsg{runs: runs, err: err}
	}
}

// export writes the last summary to path, or to a timestamped workbook
// in the data directory when path is empty.
func (m *Model) export(path string) tea.Cmd {
	s, ok := m.engine.LastSummary()
	if !ok {
		m.setError(errNoSummary)
		return nil
	}
	if path == "" {
		name := fmt.Sprintf("mail_analysis_%s.xlsx", time.Now().Format("20060102_150405"))
		path = filepath.Join(m.cfg.Storage.DataDir, name)
	}
	return func() tea.Msg {
		return exportDoneMsg{path: path, err: export.WriteXLSX(s, path)}
	}
}

// executeCommand runs a command palette entry.
func (m *Model) executeCommand(msg command.CommandMsg) tea.Cmd {
	switch msg.Name {
	case "analyze":
		if len(msg.Args) > 0 {
			if d, err := strconv.Atoi(msg.Args[0]); err == nil && d > 0 {
				m.days = d
			}
		}
		m.currentView = ViewDashboard
		return m.startAnalysis()
	case "process":
		return m.startProcessing()
	case "search":
		m.currentView = ViewSearch
		if len(msg.Args) == 0 {
			return m.searchView.Focus()
		}
		req := m.searchView.SetQuery(strings.Join(msg.Args, " "))
		return func() tea.Msg { return req }
	case "rules":
		if len(msg.Args) > 0 && msg.Args[0] == "add" {
			return m.openForm(m.forms.StartRule())
		}
		m.currentView = ViewRules
		return nil
	case "autoreply":
		return m.openForm(m.forms.StartAutoReply(m.engine.AutoReply()))
	case "history":
		m.currentView = ViewHistory
		return m.loadHistory()
	case "days":
		if len(msg.Args) == 0 {
			m.days = nextPeriod(m.days)
		} else if d, err := strconv.Atoi(msg.Args[0]); err == nil && d > 0 {
			m.days = d
		} else {
			m.setError(fmt.Errorf("invalid period %q", msg.Args[0]))
			return nil
		}
		m.setStatus(fmt.Sprintf("Analysis period: last %d days", m.days))
		return nil
	case "settings":
		return m.openForm(m.forms.StartSettings(m.cfg))
	case "export":
		path := ""
		if len(msg.Args) > 0 {
			path = msg.Args[0]
		}
		return m.export(path)
	case "connect":
		return m.openForm(m.forms.StartLogin(m.cfg.Mailbox))
	case "disconnect":
		return m.disconnect()
	case "quit":
		return m.quit()
	default:
		m.setError(fmt.Errorf("unknown command %q", msg.Name))
		return nil
	}
}
