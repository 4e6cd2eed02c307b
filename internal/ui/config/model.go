// Package config hosts the form-driven views: mailbox login, new rule,
// auto-reply settings and server settings.
package config

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/robfig/cron/v3"

	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/theme"
)

// Mode is the form currently shown.
type Mode int

const (
	ModeIdle      Mode = iota // no form open
	ModeLogin                 // mailbox credentials
	ModeRule                  // new rule
	ModeAutoReply             // auto-reply settings
	ModeSettings              // servers and defaults
)

// LoginMsg carries submitted mailbox credentials.
type LoginMsg struct {
	Creds    mailbox.Credentials
	Remember bool
}

// RuleMsg carries a rule to append.
type RuleMsg struct {
	Rule model.Rule
}

// AutoReplyMsg carries edited auto-reply settings.
type AutoReplyMsg struct {
	Settings model.AutoReplySettings
}

// SettingsMsg carries edited server settings and defaults.
type SettingsMsg struct {
	IMAPHost    string
	IMAPPort    int
	Folder      string
	SMTPHost    string
	SMTPPort    int
	DefaultDays int
	ProcessCron string
}

// CancelMsg signals the open form was dismissed.
type CancelMsg struct{}

// Model is the Bubble Tea model for the form views.
type Model struct {
	mode Mode
	form *huh.Form

	// Form field values (huh binds to these)
	formAddress  string
	formHost     string
	formPort     string
	formSecret   string
	formRemember bool

	formRuleName  string
	formRuleType  model.ConditionType
	formRuleValue string
	formFolder    string

	formEnabled bool
	formMessage string

	formSMTPHost string
	formSMTPPort string
	formDays     string
	formCron     string

	width, height int
}

// New creates an idle form view.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// Mode reports which form is open.
func (m Model) Mode() Mode { return m.mode }

// StartLogin opens the login form prefilled from the configuration.
func (m *Model) StartLogin(mb model.MailboxConfig) tea.Cmd {
	m.formAddress = mb.Address
	m.formHost = mb.IMAPHost
	m.formPort = strconv.Itoa(mb.IMAPPort)
	m.formSecret = ""
	m.formRemember = true
	return m.open(ModeLogin, m.buildLoginForm())
}

// StartRule opens an empty new-rule form.
func (m *Model) StartRule() tea.Cmd {
	m.formRuleName = ""
	m.formRuleType = model.ConditionFrom
	m.formRuleValue = ""
	m.formFolder = ""
	return m.open(ModeRule, m.buildRuleForm())
}

// StartAutoReply opens the auto-reply form with the current settings.
func (m *Model) StartAutoReply(s model.AutoReplySettings) tea.Cmd {
	m.formEnabled = s.Enabled
	m.formMessage = s.Message
	return m.open(ModeAutoReply, m.buildAutoReplyForm())
}

// StartSettings opens the server settings form.
func (m *Model) StartSettings(cfg *model.AppConfig) tea.Cmd {
	m.formHost = cfg.Mailbox.IMAPHost
	m.formPort = strconv.Itoa(cfg.Mailbox.IMAPPort)
	m.formFolder = cfg.Mailbox.Folder
	m.formSMTPHost = cfg.SMTP.Host
	m.formSMTPPort = strconv.Itoa(cfg.SMTP.Port)
	m.formDays = strconv.Itoa(cfg.Analysis.DefaultDays)
	m.formCron = cfg.Schedule.ProcessCron
	return m.open(ModeSettings, m.buildSettingsForm())
}

func (m *Model) open(mode Mode, f *huh.Form) tea.Cmd {
	m.mode = mode
	m.form = f
	return f.Init()
}

// Update forwards messages to the open form and emits the result
// message once it completes.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = ws.Width
		m.height = ws.Height
	}
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		result := m.result()
		m.close()
		return m, func() tea.Msg { return result }
	case huh.StateAborted:
		m.close()
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

func (m *Model) close() {
	m.mode = ModeIdle
	m.form = nil
	m.formSecret = ""
}

func (m Model) result() tea.Msg {
	switch m.mode {
	case ModeLogin:
		port, _ := strconv.Atoi(m.formPort)
		return LoginMsg{
			Creds: mailbox.Credentials{
				Address: strings.TrimSpace(m.formAddress),
				Secret:  m.formSecret,
				Host:    strings.TrimSpace(m.formHost),
				Port:    port,
			},
			Remember: m.formRemember,
		}
	case ModeRule:
		return RuleMsg{Rule: model.Rule{
			Name:   strings.TrimSpace(m.formRuleName),
			Type:   m.formRuleType,
			Value:  m.formRuleValue,
			Folder: strings.TrimSpace(m.formFolder),
		}}
	case ModeAutoReply:
		return AutoReplyMsg{Settings: model.AutoReplySettings{
			Enabled: m.formEnabled,
			Message: m.formMessage,
		}}
	case ModeSettings:
		imapPort, _ := strconv.Atoi(m.formPort)
		smtpPort, _ := strconv.Atoi(m.formSMTPPort)
		days, _ := strconv.Atoi(m.formDays)
		return SettingsMsg{
			IMAPHost:    strings.TrimSpace(m.formHost),
			IMAPPort:    imapPort,
			Folder:      strings.TrimSpace(m.formFolder),
			SMTPHost:    strings.TrimSpace(m.formSMTPHost),
			SMTPPort:    smtpPort,
			DefaultDays: days,
			ProcessCron: strings.TrimSpace(m.formCron),
		}
	}
	return CancelMsg{}
}

// --- Forms ---

func (m *Model) buildLoginForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Placeholder("you@gmail.com").
				Value(&m.formAddress).
				Validate(validateAddress),
			huh.NewInput().
				Title("App password").
				Description("An app-specific password, not your account password").
				EchoMode(huh.EchoModePassword).
				Value(&m.formSecret).
				Validate(validateRequired("Password")),
			huh.NewInput().
				Title("IMAP server").
				Placeholder("imap.gmail.com").
				Value(&m.formHost).
				Validate(validateRequired("IMAP server")),
			huh.NewInput().
				Title("IMAP port").
				Placeholder("993").
				Value(&m.formPort).
				Validate(validatePort),
			huh.NewConfirm().
				Title("Remember password").
				Description("Store it in the system keyring").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formRemember),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) buildRuleForm() *huh.Form {
	options := make([]huh.Option[model.ConditionType], 0, len(model.ConditionTypes))
	for _, ct := range model.ConditionTypes {
		options = append(options, huh.NewOption(conditionLabel(ct), ct))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Rule name").
				Placeholder("Invoices").
				Value(&m.formRuleName).
				Validate(validateRequired("Rule name")),
			huh.NewSelect[model.ConditionType]().
				Title("Match on").
				Options(options...).
				Value(&m.formRuleType),
			huh.NewInput().
				Title("Contains").
				Description("Case-insensitive substring").
				Placeholder("billing@").
				Value(&m.formRuleValue).
				Validate(validateRequired("Match text")),
			huh.NewInput().
				Title("Move to folder").
				Placeholder("Finance").
				Value(&m.formFolder).
				Validate(validateRequired("Folder")),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) buildAutoReplyForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Auto-reply").
				Description("Reply to every processed message").
				Affirmative("On").
				Negative("Off").
				Value(&m.formEnabled),
			huh.NewText().
				Title("Message").
				CharLimit(4000).
				Lines(6).
				Value(&m.formMessage),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) buildSettingsForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP server").
				Value(&m.formHost).
				Validate(validateRequired("IMAP server")),
			huh.NewInput().
				Title("IMAP port").
				Value(&m.formPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Folder").
				Placeholder("INBOX").
				Value(&m.formFolder).
				Validate(validateRequired("Folder")),
			huh.NewInput().
				Title("SMTP server").
				Value(&m.formSMTPHost).
				Validate(validateRequired("SMTP server")),
			huh.NewInput().
				Title("SMTP port").
				Value(&m.formSMTPPort).
				Validate(validatePort),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Default analysis period (days)").
				Value(&m.formDays).
				Validate(validateDays),
			huh.NewInput().
				Title("Process schedule").
				Description("Cron expression, empty to disable").
				Placeholder("*/15 * * * *").
				Value(&m.formCron).
				Validate(validateCron),
		),
	).WithWidth(m.formWidth())
}

func conditionLabel(ct model.ConditionType) string {
	switch ct {
	case model.ConditionFrom:
		return "Sender (From header)"
	case model.ConditionSubject:
		return "Subject"
	case model.ConditionBody:
		return "Body text"
	default:
		return string(ct)
	}
}

// View renders the open form, or nothing when idle.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := theme.PanelTitleStyle.MarginBottom(1).Render(m.title())
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, m.form.View()))
}

func (m Model) title() string {
	switch m.mode {
	case ModeLogin:
		return "Connect Mailbox"
	case ModeRule:
		return "New Rule"
	case ModeAutoReply:
		return "Auto-Reply"
	case ModeSettings:
		return "Settings"
	}
	return ""
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	return max(min(m.width-8, 72), 30)
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateAddress(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email address is required")
	}
	if at := strings.LastIndex(s, "@"); at <= 0 || at == len(s)-1 {
		return fmt.Errorf("enter a full email address")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func validateDays(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("period must be a positive number of days")
	}
	return nil
}

func validateCron(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	return nil
}
