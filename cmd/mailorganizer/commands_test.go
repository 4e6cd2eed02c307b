package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-organizer/internal/engine"
	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/rules"
	"github.com/nhle/mail-organizer/internal/settings"
)

// countingSession is a mailbox with no messages that records logins.
type countingSession struct {
	connected bool
	connects  int
}

func (s *countingSession) Connect(context.Context, mailbox.Credentials) error {
	s.connects++
	s.connected = true
	return nil
}

func (s *countingSession) Disconnect() error {
	s.connected = false
	return nil
}

func (s *countingSession) Connected() bool { return s.connected }

func (s *countingSession) Identity() mailbox.Credentials { return mailbox.Credentials{} }

func (s *countingSession) SelectFolder(context.Context, string) error {
	if !s.connected {
		return mailbox.ErrNotConnected
	}
	return nil
}

func (s *countingSession) SearchSince(context.Context, int, *imap.SearchCriteria) ([]mailbox.MessageID, error) {
	return nil, nil
}

func (s *countingSession) SearchUnseen(context.Context) ([]mailbox.MessageID, error) {
	return nil, nil
}

func (s *countingSession) FetchRaw(context.Context, mailbox.MessageID) ([]byte, error) {
	return nil, nil
}

func (s *countingSession) PeekRaw(context.Context, mailbox.MessageID) ([]byte, error) {
	return nil, nil
}

func (s *countingSession) MoveToFolder(context.Context, mailbox.MessageID, string) error {
	return nil
}

func (s *countingSession) Expunge(context.Context) error { return nil }

func newTestEngine(t *testing.T, session engine.Session) *engine.Engine {
	t.Helper()
	dir := t.TempDir()
	return engine.New(session,
		settings.NewRuleStore(filepath.Join(dir, "email_rules.json"), nil),
		settings.NewAutoReplyStore(filepath.Join(dir, "auto_reply_settings.json"), nil),
	)
}

func TestProcessJobFailsWhenDisconnected(t *testing.T) {
	session := &countingSession{}
	job := processJob(newTestEngine(t, session))

	v, err := job(context.Background())
	require.ErrorIs(t, err, mailbox.ErrNotConnected)
	assert.Contains(t, err.Error(), "process")
	assert.Nil(t, v.(*rules.Report))
	assert.Zero(t, session.connects)
	assert.False(t, session.Connected())
}

func TestProcessJobUsesOpenSession(t *testing.T) {
	session := &countingSession{connected: true}
	job := processJob(newTestEngine(t, session))

	v, err := job(context.Background())
	require.NoError(t, err)
	report, ok := v.(*rules.Report)
	require.True(t, ok)
	assert.Zero(t, report.Scanned)
	assert.Zero(t, session.connects)
}
