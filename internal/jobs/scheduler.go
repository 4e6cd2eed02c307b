package jobs

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/nhle/mail-organizer/internal/model"
)

// Scheduler triggers scans on cron schedules through a Runner. A tick
// that lands while another scan runs is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *log.Logger
}

// NewScheduler creates a stopped scheduler feeding runner.
func NewScheduler(runner *Runner, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: logger,
	}
}

// Add registers job under a standard five-field cron spec or a
// descriptor such as "@every 15m".
func (s *Scheduler) Add(spec string, kind model.RunKind, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.trigger(kind, job) })
	if err != nil {
		return fmt.Errorf("scheduling %s %q: %w", kind, spec, err)
	}
	s.logger.Info("scheduled scan", "kind", kind, "spec", spec)
	return nil
}

// Len returns the number of registered schedules.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for a running tick to return.
// Scans already handed to the runner keep going.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) trigger(kind model.RunKind, job Job) {
	err := s.runner.Go(kind, job)
	if errors.Is(err, ErrBusy) {
		s.logger.Info("skipping scheduled scan", "kind", kind, "reason", err)
	}
}
