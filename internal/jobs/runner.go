// Package jobs runs mailbox scans off the UI goroutine, one at a time,
// and reports their results as Bubble Tea messages.
package jobs

import (
	"context"
	"errors"
	"io"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nhle/mail-organizer/internal/model"
)

// ErrBusy is returned when a scan is requested while another is running.
var ErrBusy = errors.New("a scan is already running")

// DefaultTimeout bounds a single scan.
const DefaultTimeout = 10 * time.Minute

// State is the runner's current state.
type State int

const (
	Idle State = iota
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Status describes the runner's current or most recent scan.
type Status struct {
	State    State
	Kind     model.RunKind
	Started  time.Time
	Finished time.Time
	Err      error
}

// Job is one scan. Its value is delivered unchanged in ResultMsg.
type Job func(ctx context.Context) (any, error)

// ResultMsg is a tea.Msg sent when a scan finishes.
type ResultMsg struct {
	Kind     model.RunKind
	Value    any
	Err      error
	Started  time.Time
	Finished time.Time
}

// Runner executes at most one Job at a time.
type Runner struct {
	timeout  time.Duration
	logger   *log.Logger
	resultCh chan ResultMsg
	ctx      context.Context
	cancel   context.CancelFunc
	now      func() time.Time

	mu      gosync.Mutex
	running bool
	status  Status
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-scan timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates an idle Runner.
func NewRunner(opts ...Option) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		timeout:  DefaultTimeout,
		logger:   log.New(io.Discard),
		resultCh: make(chan ResultMsg, 16),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes job on the calling goroutine. It returns ErrBusy without
// running job if another scan is in progress.
func (r *Runner) Run(ctx context.Context, kind model.RunKind, job Job) (any, error) {
	if err := r.begin(kind); err != nil {
		return nil, err
	}
	res := r.execute(ctx, kind, job)
	return res.Value, res.Err
}

// Go starts job in the background. Its ResultMsg is delivered on the
// result channel.
func (r *Runner) Go(kind model.RunKind, job Job) error {
	if err := r.begin(kind); err != nil {
		return err
	}
	go func() {
		r.sendResult(r.execute(r.ctx, kind, job))
	}()
	return nil
}

// WaitForResult returns a tea.Cmd that waits for the next finished scan.
func (r *Runner) WaitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case res := <-r.resultCh:
			return res
		case <-r.ctx.Done():
			return nil
		}
	}
}

// Results exposes the result channel to non-TUI consumers.
func (r *Runner) Results() <-chan ResultMsg {
	return r.resultCh
}

// Status returns a copy of the current status.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Busy reports whether a scan is running.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Shutdown cancels any running background scan and releases waiters.
func (r *Runner) Shutdown() {
	r.cancel()
}

func (r *Runner) begin(kind model.RunKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		r.logger.Debug("scan refused", "kind", kind, "running", r.status.Kind)
		return ErrBusy
	}
	r.running = true
	r.status = Status{State: Running, Kind: kind, Started: r.now()}
	return nil
}

func (r *Runner) execute(ctx context.Context, kind model.RunKind, job Job) ResultMsg {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := r.Status().Started
	value, err := job(ctx)
	finished := r.now()

	r.mu.Lock()
	r.running = false
	r.status.Finished = finished
	r.status.Err = err
	if err != nil {
		r.status.State = Failed
	} else {
		r.status.State = Idle
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("scan failed", "kind", kind, "error", err)
	} else {
		r.logger.Debug("scan finished", "kind", kind, "elapsed", finished.Sub(started))
	}
	return ResultMsg{Kind: kind, Value: value, Err: err, Started: started, Finished: finished}
}

// sendResult delivers msg without blocking; results are dropped when
// nobody is listening and the buffer is full.
func (r *Runner) sendResult(msg ResultMsg) {
	select {
	case r.resultCh <- msg:
	default:
		r.logger.Warn("dropping scan result", "kind", msg.Kind)
	}
}
