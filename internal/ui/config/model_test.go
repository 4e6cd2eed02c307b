package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-organizer/internal/model"
)

func TestValidators(t *testing.T) {
	assert.NoError(t, validateAddress("me@example.com"))
	assert.Error(t, validateAddress("me"))
	assert.Error(t, validateAddress("@example.com"))
	assert.Error(t, validateAddress("me@"))

	assert.NoError(t, validatePort("993"))
	assert.Error(t, validatePort("0"))
	assert.Error(t, validatePort("imap"))

	assert.NoError(t, validateDays("30"))
	assert.Error(t, validateDays("-1"))

	assert.NoError(t, validateCron(""))
	assert.NoError(t, validateCron("*/15 * * * *"))
	assert.NoError(t, validateCron("@hourly"))
	assert.Error(t, validateCron("every so often"))
}

func TestRuleResultTrimsFields(t *testing.T) {
	m := New(80, 24)
	m.StartRule()
	require.Equal(t, ModeRule, m.Mode())

	m.formRuleName = "  bills "
	m.formRuleType = model.ConditionSubject
	m.formRuleValue = " invoice"
	m.formFolder = " Finance "

	msg, ok := m.result().(RuleMsg)
	require.True(t, ok)
	assert.Equal(t, model.Rule{Name: "bills", Type: model.ConditionSubject, Value: " invoice", Folder: "Finance"}, msg.Rule)
	assert.NoError(t, msg.Rule.Validate())
}

func TestLoginResult(t *testing.T) {
	m := New(80, 24)
	m.StartLogin(model.MailboxConfig{Address: "me@example.com", IMAPHost: "imap.example.com", IMAPPort: 993})
	m.formSecret = "app-password"

	msg, ok := m.result().(LoginMsg)
	require.True(t, ok)
	assert.Equal(t, "me@example.com", msg.Creds.Address)
	assert.Equal(t, "imap.example.com", msg.Creds.Host)
	assert.Equal(t, 993, msg.Creds.Port)
	assert.Equal(t, "app-password", msg.Creds.Secret)
	assert.True(t, msg.Remember)

	m.close()
	assert.Equal(t, ModeIdle, m.Mode())
	assert.Empty(t, m.formSecret)
}

func TestSettingsResult(t *testing.T) {
	cfg := model.DefaultAppConfig()
	m := New(80, 24)
	m.StartSettings(cfg)
	m.formDays = "14"
	m.formCron = " @every 30m "

	msg, ok := m.result().(SettingsMsg)
	require.True(t, ok)
	assert.Equal(t, 14, msg.DefaultDays)
	assert.Equal(t, "@every 30m", msg.ProcessCron)
	assert.Equal(t, cfg.Mailbox.IMAPHost, msg.IMAPHost)
	assert.Equal(t, cfg.SMTP.Port, msg.SMTPPort)
}
