// Package mailbox owns the authenticated IMAP connection used by every
// scan. It exposes only the handful of commands the engine needs:
// select, search, fetch, copy-and-flag and expunge.
package mailbox

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap/v2"
)

// DefaultPort is the implicit-TLS IMAP port.
const DefaultPort = 993

const defaultDialTimeout = 30 * time.Second

// MessageID identifies a message within the selected folder. It is the
// server-assigned UID, stable for the lifetime of the selection.
type MessageID = imap.UID

// Credentials identify the account a session logs into.
type Credentials struct {
	Address string
	Secret  string
	Host    string
	Port    int
}

func (c Credentials) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Session is a single authenticated connection to a mailbox server.
// Connection state may be read concurrently, but commands are not
// pipelined; callers serialize scans.
type Session struct {
	mu      sync.RWMutex
	creds   Credentials
	client  imapClient
	dial    dialer
	timeout time.Duration
	logger  *log.Logger
	now     func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for connection lifecycle events.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDialTimeout bounds how long Connect waits for the TCP handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func withDialer(d dialer) Option {
	return func(s *Session) { s.dial = d }
}

func withClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession returns a disconnected session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		dial:    dialTLS,
		timeout: defaultDialTimeout,
		logger:  log.New(io.Discard),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials the server and authenticates. Any previously open
// connection is logged out first. Failures are reported as
// *ConnectError and are never retried.
func (s *Session) Connect(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return &ConnectError{Host: creds.Host, Address: creds.Address, Err: err}
	}
	if s.Connected() {
		s.logger.Debug("replacing existing mailbox connection", "address", s.Identity().Address)
		_ = s.Disconnect()
	}

	client, err := s.dial(creds, s.timeout)
	if err != nil {
		return &ConnectError{Host: creds.Host, Address: creds.Address, Err: err}
	}

	if err := client.Login(creds.Address, creds.Secret).Wait(); err != nil {
		_ = client.Close()
		return &ConnectError{
			Host:    creds.Host,
			Address: creds.Address,
			Err:     fmt.Errorf("authentication failed: %w", err),
		}
	}

	s.mu.Lock()
	s.client = client
	s.creds = creds
	s.mu.Unlock()
	s.logger.Info("connected to mailbox", "host", creds.Host, "address", creds.Address)
	return nil
}

// Connected reports whether the session holds a live connection.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Identity returns the credentials of the current connection. The zero
// value is returned when disconnected.
func (s *Session) Identity() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return Credentials{}
	}
	return s.creds
}

// Disconnect logs out and drops the connection. Calling it on a
// disconnected session is a no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	client, addr := s.client, s.creds.Address
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}

	logoutErr := client.Logout().Wait()
	closeErr := client.Close()
	s.logger.Info("disconnected from mailbox", "address", addr)
	if logoutErr != nil {
		return fmt.Errorf("logging out: %w", logoutErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing connection: %w", closeErr)
	}
	return nil
}

func (s *Session) ready(ctx context.Context) (imapClient, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return nil, ErrNotConnected
	}
	return client, ctx.Err()
}

// SelectFolder makes name the current folder for subsequent commands.
func (s *Session) SelectFolder(ctx context.Context, name string) error {
	client, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Select(name, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", name, err)
	}
	return nil
}

// SearchSince returns the identifiers of messages received on or after
// local midnight of (now - days). Extra criteria, when given, narrow the
// search further.
func (s *Session) SearchSince(ctx context.Context, days int, extra *imap.SearchCriteria) ([]MessageID, error) {
	var criteria imap.SearchCriteria
	if extra != nil {
		criteria = *extra
	}
	criteria.Since = sinceBoundary(s.now(), days)
	return s.search(ctx, &criteria)
}

// SearchUnseen returns the identifiers of messages lacking \Seen.
func (s *Session) SearchUnseen(ctx context.Context) ([]MessageID, error) {
	return s.search(ctx, &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	})
}

func (s *Session) search(ctx context.Context, criteria *imap.SearchCriteria) ([]MessageID, error) {
	client, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	return data.AllUIDs(), nil
}

// FetchRaw retrieves the full message. Like an RFC822 fetch, this marks
// the message \Seen on the server.
func (s *Session) FetchRaw(ctx context.Context, id MessageID) ([]byte, error) {
	return s.fetch(ctx, id, false)
}

// PeekRaw retrieves the full message without altering its flags.
func (s *Session) PeekRaw(ctx context.Context, id MessageID) ([]byte, error) {
	return s.fetch(ctx, id, true)
}

func (s *Session) fetch(ctx context.Context, id MessageID, peek bool) ([]byte, error) {
	client, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	section := &imap.FetchItemBodySection{Peek: peek}
	opts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	cmd := client.Fetch(imap.UIDSetNum(id), opts)
	bufs, err := cmd.Collect()
	if err != nil {
		return nil, &FetchError{ID: id, Err: err}
	}
	for _, buf := range bufs {
		if buf.UID != id {
			continue
		}
		if raw := buf.FindBodySection(section); raw != nil {
			return raw, nil
		}
	}
	return nil, &FetchError{ID: id}
}

// MoveToFolder copies the message into folder and flags the original
// \Deleted. Nothing is removed until Expunge.
func (s *Session) MoveToFolder(ctx context.Context, id MessageID, folder string) error {
	client, err := s.ready(ctx)
	if err != nil {
		return err
	}
	set := imap.UIDSetNum(id)

	if _, err := client.Copy(set, folder).Wait(); err != nil {
		return fmt.Errorf("copying message %d to %s: %w", id, folder, err)
	}

	store := client.Store(set, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)
	if err := store.Close(); err != nil {
		return fmt.Errorf("flagging message %d deleted: %w", id, err)
	}
	return nil
}

// Expunge permanently removes every \Deleted message in the selected
// folder.
func (s *Session) Expunge(ctx context.Context) error {
	client, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if err := client.Expunge().Close(); err != nil {
		return fmt.Errorf("expunging: %w", err)
	}
	return nil
}

// sinceBoundary is local midnight of now minus days. IMAP SINCE has
// day granularity, so the time of day is dropped.
func sinceBoundary(now time.Time, days int) time.Time {
	d := now.AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
}
