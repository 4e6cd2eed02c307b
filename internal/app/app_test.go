package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-organizer/internal/engine"
	"github.com/nhle/mail-organizer/internal/jobs"
	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/settings"
	"github.com/nhle/mail-organizer/internal/ui/command"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	dir := t.TempDir()
	cfg := model.DefaultAppConfig()
	cfg.Storage.DataDir = dir

	e := engine.New(
		mailbox.NewSession(),
		settings.NewRuleStore(cfg.RulesPath(), nil),
		settings.NewAutoReplyStore(cfg.AutoReplyPath(), nil),
	)
	r := jobs.NewRunner()
	t.Cleanup(r.Shutdown)

	return New(Deps{
		Engine:     e,
		Runner:     r,
		Config:     cfg,
		ConfigPath: filepath.Join(dir, "config.yaml"),
	})
}

func TestViewBeforeResize(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, "Loading...", m.View())
}

func TestViewShowsTabsAndPlaceholder(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	out := updated.View()
	assert.Contains(t, out, "Dashboard")
	assert.Contains(t, out, "History")
	assert.Contains(t, out, "not connected")
	assert.Contains(t, out, "No analysis yet.")
}

func TestNextPeriod(t *testing.T) {
	assert.Equal(t, 30, nextPeriod(7))
	assert.Equal(t, 90, nextPeriod(30))
	assert.Equal(t, 7, nextPeriod(90))
	assert.Equal(t, 7, nextPeriod(14))
}

func TestDaysCommand(t *testing.T) {
	m := newTestModel(t)

	m.executeCommand(command.CommandMsg{Name: "days", Args: []string{"14"}})
	assert.Equal(t, 14, m.days)
	assert.Contains(t, m.status, "last 14 days")

	m.executeCommand(command.CommandMsg{Name: "days", Args: []string{"soon"}})
	assert.Equal(t, 14, m.days)
	assert.True(t, m.statusErr)
}

func TestUnknownCommand(t *testing.T) {
	m := newTestModel(t)
	m.executeCommand(command.CommandMsg{Name: "frobnicate"})
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "frobnicate")
}

func TestExportWithoutSummary(t *testing.T) {
	m := newTestModel(t)
	assert.Nil(t, m.export(""))
	assert.Contains(t, m.status, "run an analysis first")
}

func TestSecondScanIsRefused(t *testing.T) {
	m := newTestModel(t)
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	require.NoError(t, m.runner.Go(model.RunProcessing, func(context.Context) (any, error) {
		<-block
		return nil, nil
	}))

	m.startAnalysis()
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, jobs.ErrBusy.Error())
}

func TestDisconnectWaitsForRunningJob(t *testing.T) {
	m := newTestModel(t)
	m.executeCommand(command.CommandMsg{Name: "disconnect"})
	assert.False(t, m.statusErr)
	assert.Equal(t, "Disconnected", m.status)

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	require.NoError(t, m.runner.Go(model.RunProcessing, func(context.Context) (any, error) {
		<-block
		return nil, nil
	}))

	m.executeCommand(command.CommandMsg{Name: "disconnect"})
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, jobs.ErrBusy.Error())
}

func TestSearchResultReachesView(t *testing.T) {
	sized, _ := newTestModel(t).Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m := sized.(Model)
	m.currentView = ViewSearch
	m.searchView.SetQuery("invoice")

	updated, cmd := m.Update(jobs.ResultMsg{
		Kind:  model.RunSearch,
		Value: []model.SearchHit{{Subject: "Invoice 42", Sender: "billing@acme.com"}},
	})
	require.NotNil(t, cmd)
	assert.Contains(t, updated.(Model).searchView.View(), "Invoice 42")
}

func TestFailedConnectReopensLogin(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(jobs.ResultMsg{Kind: kindConnect, Err: errors.New("auth failed")})

	um := updated.(Model)
	assert.Equal(t, ViewForm, um.currentView)
	assert.True(t, um.statusErr)
	assert.Contains(t, um.status, "auth failed")
}
