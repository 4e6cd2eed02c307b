package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/tests/testutil"
)

type fakeSession struct {
	connected bool
	creds     mailbox.Credentials
	connErr   error
	searchErr error

	since    []mailbox.MessageID
	unseen   []mailbox.MessageID
	messages map[mailbox.MessageID]string
	moved    map[mailbox.MessageID]string
	peeked   int
	fetched  int
	expunged int
}

func (s *fakeSession) Connect(_ context.Context, creds mailbox.Credentials) error {
	if s.connErr != nil {
		return s.connErr
	}
	s.connected = true
	s.creds = creds
	return nil
}

func (s *fakeSession) Disconnect() error {
	s.connected = false
	s.creds = mailbox.Credentials{}
	return nil
}

func (s *fakeSession) Connected() bool { return s.connected }

func (s *fakeSession) Identity() mailbox.Credentials { return s.creds }

func (s *fakeSession) SelectFolder(context.Context, string) error {
	if !s.connected {
		return mailbox.ErrNotConnected
	}
	return nil
}

func (s *fakeSession) SearchSince(context.Context, int, *imap.SearchCriteria) ([]mailbox.MessageID, error) {
	return s.since, s.searchErr
}

func (s *fakeSession) SearchUnseen(context.Context) ([]mailbox.MessageID, error) {
	return s.unseen, s.searchErr
}

func (s *fakeSession) FetchRaw(_ context.Context, id mailbox.MessageID) ([]byte, error) {
	s.fetched++
	return s.raw(id)
}

func (s *fakeSession) PeekRaw(_ context.Context, id mailbox.MessageID) ([]byte, error) {
	s.peeked++
	return s.raw(id)
}

func (s *fakeSession) raw(id mailbox.MessageID) ([]byte, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, &mailbox.FetchError{ID: id}
	}
	return []byte(m), nil
}

func (s *fakeSession) MoveToFolder(_ context.Context, id mailbox.MessageID, folder string) error {
	if s.moved == nil {
		s.moved = map[mailbox.MessageID]string{}
	}
	s.moved[id] = folder
	return nil
}

func (s *fakeSession) Expunge(context.Context) error {
	s.expunged++
	return nil
}

type memRules struct {
	rules   []model.Rule
	saveErr error
	saves   int
}

func (m *memRules) Load() []model.Rule { return append([]model.Rule{}, m.rules...) }

func (m *memRules) Save(rules []model.Rule) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.rules = append([]model.Rule{}, rules...)
	return nil
}

type memAutoReply struct {
	settings model.AutoReplySettings
	saveErr  error
}

func (m *memAutoReply) Load() model.AutoReplySettings { return m.settings }

func (m *memAutoReply) Save(s model.AutoReplySettings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.settings = s
	return nil
}

const (
	invoice = "From: Billing <billing@acme.com>\r\n" +
		"Subject: Invoice 42\r\n" +
		"Date: Mon, 4 Mar 2024 09:00:00 +0000\r\n" +
		"\r\n" +
		"Amount due.\r\n"
	reply = "From: Friend <friend@example.org>\r\n" +
		"Subject: Re: Invoice 42\r\n" +
		"Date: Mon, 4 Mar 2024 09:15:00 +0000\r\n" +
		"In-Reply-To: <inv42@acme.com>\r\n" +
		"\r\n" +
		"Paid.\r\n"
)

func newConnected(t *testing.T) (*Engine, *fakeSession, *memRules) {
	t.Helper()
	sess := &fakeSession{
		messages: map[mailbox.MessageID]string{1: invoice, 2: reply},
	}
	rs := &memRules{rules: []model.Rule{
		{Name: "bills", Type: model.ConditionFrom, Value: "billing@", Folder: "Finance"},
	}}
	e := New(sess, rs, &memAutoReply{})
	require.NoError(t, e.Connect(context.Background(), mailbox.Credentials{Address: "me@example.com", Host: "imap.example.com"}))
	return e, sess, rs
}

func TestConnectWrapsFailure(t *testing.T) {
	sess := &fakeSession{connErr: &mailbox.ConnectError{Host: "imap.example.com", Err: errors.New("refused")}}
	e := New(sess, &memRules{}, &memAutoReply{})

	err := e.Connect(context.Background(), mailbox.Credentials{Address: "me@example.com"})
	require.Error(t, err)
	assert.True(t, mailbox.IsConnectError(err))
	assert.False(t, e.Connected())
}

func TestAnalyzeSummarizesAndPeeks(t *testing.T) {
	e, sess, _ := newConnected(t)
	sess.since = []mailbox.MessageID{1, 2}

	_, ok := e.LastSummary()
	assert.False(t, ok)

	summary, err := e.Analyze(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.ResponsePairs)
	assert.InDelta(t, 15.0, summary.AverageResponseMinutes, 0.001)
	assert.Equal(t, 2, sess.peeked)
	assert.Zero(t, sess.fetched)

	last, ok := e.LastSummary()
	require.True(t, ok)
	assert.Equal(t, summary.Total, last.Total)
}

func TestAnalyzeRequiresConnection(t *testing.T) {
	e := New(&fakeSession{}, &memRules{}, &memAutoReply{})

	_, err := e.Analyze(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, mailbox.ErrNotConnected)
	_, ok := e.LastSummary()
	assert.False(t, ok)
}

func TestProcessAppliesRules(t *testing.T) {
	e, sess, _ := newConnected(t)
	sess.unseen = []mailbox.MessageID{1, 2}

	report, err := e.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Moved)
	assert.Equal(t, map[mailbox.MessageID]string{1: "Finance"}, sess.moved)
	assert.Equal(t, 1, sess.expunged)
	assert.Equal(t, 2, sess.fetched)
}

func TestSearchPropagatesErrors(t *testing.T) {
	e, sess, _ := newConnected(t)
	sess.searchErr = errors.New("BAD search")

	hits, err := e.Search(context.Background(), "invoice", 30)
	require.Error(t, err)
	assert.Nil(t, hits)
	assert.Contains(t, err.Error(), "search:")
}

func TestAddRuleValidatesAndPersists(t *testing.T) {
	e, _, rs := newConnected(t)

	err := e.AddRule(model.Rule{Name: "bad", Type: "header", Value: "x", Folder: "X"})
	require.Error(t, err)
	assert.Zero(t, rs.saves)

	news := model.Rule{Name: "news", Type: model.ConditionSubject, Value: "newsletter", Folder: "News"}
	require.NoError(t, e.AddRule(news))
	assert.Equal(t, 1, rs.saves)
	require.Len(t, e.Rules(), 2)
	assert.Equal(t, news, e.Rules()[1])
	assert.Equal(t, e.Rules(), rs.rules)
}

func TestAddRuleKeepsListOnSaveFailure(t *testing.T) {
	e, _, rs := newConnected(t)
	rs.saveErr = errors.New("disk full")

	err := e.AddRule(model.Rule{Name: "news", Type: model.ConditionSubject, Value: "newsletter", Folder: "News"})
	require.Error(t, err)
	assert.Len(t, e.Rules(), 1)
}

func TestRulesReturnsCopy(t *testing.T) {
	e, _, _ := newConnected(t)

	got := e.Rules()
	got[0].Folder = "Elsewhere"
	assert.Equal(t, "Finance", e.Rules()[0].Folder)
}

func TestSaveAutoReply(t *testing.T) {
	ar := &memAutoReply{}
	e := New(&fakeSession{}, &memRules{}, ar)

	want := model.AutoReplySettings{Enabled: true, Message: "Away until Monday."}
	require.NoError(t, e.SaveAutoReply(want))
	assert.Equal(t, want, e.AutoReply())
	assert.Equal(t, want, ar.settings)

	ar.saveErr = errors.New("read-only")
	require.Error(t, e.SaveAutoReply(model.AutoReplySettings{}))
	assert.Equal(t, want, e.AutoReply())
}

func TestRunsAreRecordedInHistory(t *testing.T) {
	hist := testutil.NewTestStore(t)
	sess := &fakeSession{messages: map[mailbox.MessageID]string{1: invoice}}
	e := New(sess, &memRules{rules: []model.Rule{
		{Name: "bills", Type: model.ConditionFrom, Value: "billing@", Folder: "Finance"},
	}}, &memAutoReply{}, WithHistory(hist))
	clock := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	_, err := e.Analyze(context.Background(), 7)
	require.Error(t, err)

	require.NoError(t, e.Connect(context.Background(), mailbox.Credentials{Address: "me@example.com"}))
	sess.unseen = []mailbox.MessageID{1}
	_, err = e.Process(context.Background())
	require.NoError(t, err)

	runs, err := e.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, model.RunProcessing, runs[0].Kind)
	assert.Equal(t, "me@example.com", runs[0].Mailbox)
	assert.Equal(t, 1, runs[0].Moved)
	assert.False(t, runs[0].Failed())

	assert.Equal(t, model.RunAnalysis, runs[1].Kind)
	assert.True(t, runs[1].Failed())

	full, err := hist.GetRunByID(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, full.Actions, 1)
	assert.Equal(t, "Finance", full.Actions[0].Folder)
}

func TestHistoryWithoutStore(t *testing.T) {
	e := New(&fakeSession{}, &memRules{}, &memAutoReply{})
	runs, err := e.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
