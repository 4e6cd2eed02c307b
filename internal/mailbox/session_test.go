package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	loginErr  error
	selected  []string
	searches  []*imap.SearchCriteria
	searchIDs []imap.UID
	messages  map[imap.UID][]byte
	fetchErr  error
	peeks     []bool
	copies    map[imap.UID]string
	copyErr   error
	deleted   []imap.UID
	expunges  int
	loggedOut bool
	closed    bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages: map[imap.UID][]byte{},
		copies:   map[imap.UID]string{},
	}
}

type waitFunc func() error

func (f waitFunc) Wait() error  { return f() }
func (f waitFunc) Close() error { return f() }

type selectResult struct{ err error }

func (r selectResult) Wait() (*imap.SelectData, error) { return &imap.SelectData{}, r.err }

type searchResult struct {
	uids []imap.UID
	err  error
}

func (r searchResult) Wait() (*imap.SearchData, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &imap.SearchData{All: imap.UIDSetNum(r.uids...)}, nil
}

type fetchResult struct {
	bufs []*imapclient.FetchMessageBuffer
	err  error
}

func (r fetchResult) Collect() ([]*imapclient.FetchMessageBuffer, error) { return r.bufs, r.err }
func (r fetchResult) Close() error                                        { return r.err }

type copyResult struct{ err error }

func (r copyResult) Wait() (*imap.CopyData, error) { return &imap.CopyData{}, r.err }

func (c *fakeClient) Login(string, string) commandWaiter {
	return waitFunc(func() error { return c.loginErr })
}

func (c *fakeClient) Logout() commandWaiter {
	return waitFunc(func() error { c.loggedOut = true; return nil })
}

func (c *fakeClient) Close() error { c.closed = true; return nil }

func (c *fakeClient) Select(name string, _ *imap.SelectOptions) selectWaiter {
	c.selected = append(c.selected, name)
	return selectResult{}
}

func (c *fakeClient) UIDSearch(criteria *imap.SearchCriteria, _ *imap.SearchOptions) searchWaiter {
	c.searches = append(c.searches, criteria)
	return searchResult{uids: c.searchIDs}
}

func (c *fakeClient) Fetch(numSet imap.NumSet, opts *imap.FetchOptions) fetchWaiter {
	if c.fetchErr != nil {
		return fetchResult{err: c.fetchErr}
	}
	c.peeks = append(c.peeks, opts.BodySection[0].Peek)
	var bufs []*imapclient.FetchMessageBuffer
	for _, uid := range uidsOf(numSet) {
		raw, ok := c.messages[uid]
		if !ok {
			continue
		}
		bufs = append(bufs, &imapclient.FetchMessageBuffer{
			UID: uid,
			BodySection: []imapclient.FetchBodySectionBuffer{
				{Section: &imap.FetchItemBodySection{}, Bytes: raw},
			},
		})
	}
	return fetchResult{bufs: bufs}
}

func (c *fakeClient) Copy(numSet imap.NumSet, mailbox string) copyWaiter {
	if c.copyErr != nil {
		return copyResult{err: c.copyErr}
	}
	for _, uid := range uidsOf(numSet) {
		c.copies[uid] = mailbox
	}
	return copyResult{}
}

func (c *fakeClient) Store(numSet imap.NumSet, store *imap.StoreFlags, _ *imap.StoreOptions) fetchWaiter {
	if store.Op == imap.StoreFlagsAdd && len(store.Flags) == 1 && store.Flags[0] == imap.FlagDeleted {
		c.deleted = append(c.deleted, uidsOf(numSet)...)
	}
	return fetchResult{}
}

func (c *fakeClient) Expunge() expungeWaiter {
	return waitFunc(func() error { c.expunges++; return nil })
}

func uidsOf(numSet imap.NumSet) []imap.UID {
	set, ok := numSet.(imap.UIDSet)
	if !ok {
		return nil
	}
	uids, _ := set.Nums()
	return uids
}

func connectedSession(t *testing.T, client *fakeClient, opts ...Option) *Session {
	t.Helper()
	opts = append(opts, withDialer(func(Credentials, time.Duration) (imapClient, error) {
		return client, nil
	}))
	s := NewSession(opts...)
	require.NoError(t, s.Connect(context.Background(), Credentials{
		Address: "me@example.com",
		Secret:  "secret",
		Host:    "imap.example.com",
	}))
	return s
}

func TestOperationsRequireConnection(t *testing.T) {
	ctx := context.Background()
	s := NewSession()

	require.False(t, s.Connected())
	require.ErrorIs(t, s.SelectFolder(ctx, "INBOX"), ErrNotConnected)

	_, err := s.SearchUnseen(ctx)
	require.ErrorIs(t, err, ErrNotConnected)

	_, err = s.SearchSince(ctx, 7, nil)
	require.ErrorIs(t, err, ErrNotConnected)

	_, err = s.FetchRaw(ctx, 1)
	require.ErrorIs(t, err, ErrNotConnected)

	require.ErrorIs(t, s.MoveToFolder(ctx, 1, "Archive"), ErrNotConnected)
	require.ErrorIs(t, s.Expunge(ctx), ErrNotConnected)
	require.NoError(t, s.Disconnect())
	require.Equal(t, Credentials{}, s.Identity())
}

func TestConnectFailures(t *testing.T) {
	t.Run("dial", func(t *testing.T) {
		s := NewSession(withDialer(func(Credentials, time.Duration) (imapClient, error) {
			return nil, errors.New("connection refused")
		}))
		err := s.Connect(context.Background(), Credentials{Address: "me@example.com", Host: "imap.example.com"})
		require.True(t, IsConnectError(err))
		require.False(t, s.Connected())
	})

	t.Run("login", func(t *testing.T) {
		client := newFakeClient()
		client.loginErr = errors.New("invalid credentials")
		s := NewSession(withDialer(func(Credentials, time.Duration) (imapClient, error) {
			return client, nil
		}))
		err := s.Connect(context.Background(), Credentials{Address: "me@example.com", Host: "imap.example.com"})

		var connErr *ConnectError
		require.ErrorAs(t, err, &connErr)
		require.Equal(t, "imap.example.com", connErr.Host)
		require.True(t, client.closed)
		require.False(t, s.Connected())
	})
}

func TestReconnectReplacesHandle(t *testing.T) {
	first := newFakeClient()
	s := connectedSession(t, first)

	second := newFakeClient()
	s.dial = func(Credentials, time.Duration) (imapClient, error) { return second, nil }
	require.NoError(t, s.Connect(context.Background(), Credentials{Address: "other@example.com", Host: "h"}))

	require.True(t, first.loggedOut)
	require.Equal(t, "other@example.com", s.Identity().Address)

	require.NoError(t, s.Disconnect())
	require.True(t, second.loggedOut)
	require.False(t, s.Connected())
}

func TestSearchSinceUsesLocalMidnight(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 42, 0, 0, time.Local)
	client := newFakeClient()
	client.searchIDs = []imap.UID{4, 9}
	s := connectedSession(t, client, withClock(func() time.Time { return now }))

	extra := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: "invoice"}},
	}
	ids, err := s.SearchSince(context.Background(), 7, extra)
	require.NoError(t, err)
	require.Equal(t, []MessageID{4, 9}, ids)

	require.Len(t, client.searches, 1)
	got := client.searches[0]
	require.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.Local), got.Since)
	require.Equal(t, "invoice", got.Header[0].Value)
	require.True(t, extra.Since.IsZero(), "caller criteria must not be mutated")
}

func TestSearchUnseen(t *testing.T) {
	client := newFakeClient()
	s := connectedSession(t, client)

	_, err := s.SearchUnseen(context.Background())
	require.NoError(t, err)
	require.Equal(t, []imap.Flag{imap.FlagSeen}, client.searches[0].NotFlag)
}

func TestFetch(t *testing.T) {
	client := newFakeClient()
	client.messages[3] = []byte("Subject: hi\r\n\r\nbody")
	s := connectedSession(t, client)
	ctx := context.Background()

	raw, err := s.FetchRaw(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "Subject: hi\r\n\r\nbody", string(raw))

	_, err = s.PeekRaw(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []bool{false, true}, client.peeks)

	_, err = s.FetchRaw(ctx, 99)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, MessageID(99), fetchErr.ID)
}

func TestMoveToFolderFlagsWithoutExpunge(t *testing.T) {
	client := newFakeClient()
	s := connectedSession(t, client)
	ctx := context.Background()

	require.NoError(t, s.MoveToFolder(ctx, 12, "Finance"))
	require.Equal(t, "Finance", client.copies[12])
	require.Equal(t, []imap.UID{12}, client.deleted)
	require.Zero(t, client.expunges)

	require.NoError(t, s.Expunge(ctx))
	require.Equal(t, 1, client.expunges)
}

func TestMoveToFolderCopyFailureLeavesMessage(t *testing.T) {
	client := newFakeClient()
	client.copyErr = errors.New("NO [TRYCREATE] no such mailbox")
	s := connectedSession(t, client)

	err := s.MoveToFolder(context.Background(), 5, "Missing")
	require.Error(t, err)
	require.Empty(t, client.deleted)
}

func TestCanceledContextStopsBeforeRoundTrip(t *testing.T) {
	client := newFakeClient()
	s := connectedSession(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.SelectFolder(ctx, "INBOX"), context.Canceled)
	require.Empty(t, client.selected)
}
