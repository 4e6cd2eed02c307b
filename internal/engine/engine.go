// Package engine ties the mailbox session, rule list and auto-reply
// settings together behind the three scans the front ends invoke:
// Analyze, Process and Search.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/mail-organizer/internal/analytics"
	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/message"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/rules"
	"github.com/nhle/mail-organizer/internal/search"
	"github.com/nhle/mail-organizer/internal/store"
)

// Session is the mailbox connection the engine drives.
type Session interface {
	rules.Mailbox
	search.Mailbox
	Connect(ctx context.Context, creds mailbox.Credentials) error
	Disconnect() error
	Connected() bool
}

// RuleStore persists the rule list.
type RuleStore interface {
	Load() []model.Rule
	Save(rules []model.Rule) error
}

// AutoReplyStore persists the auto-reply settings.
type AutoReplyStore interface {
	Load() model.AutoReplySettings
	Save(settings model.AutoReplySettings) error
}

// Engine owns the rule list and auto-reply settings for one mailbox
// session. Both are loaded once in New and written back only by AddRule
// and SaveAutoReply.
type Engine struct {
	session   Session
	ruleStore RuleStore
	autoStore AutoReplyStore
	replier   rules.Replier
	history   store.Store
	folder    string
	logger    *log.Logger
	now       func() time.Time

	mu          sync.RWMutex
	rules       []model.Rule
	autoReply   model.AutoReplySettings
	lastSummary *analytics.Summary
}

// Option configures an Engine.
type Option func(*Engine)

// WithReplier sets the auto-reply dispatcher. Without one, processing
// never replies.
func WithReplier(r rules.Replier) Option {
	return func(e *Engine) { e.replier = r }
}

// WithHistory records every scan in s.
func WithHistory(s store.Store) Option {
	return func(e *Engine) { e.history = s }
}

// WithFolder sets the folder analyzed, processed and searched.
func WithFolder(folder string) Option {
	return func(e *Engine) {
		if folder != "" {
			e.folder = folder
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an engine and loads the stored rules and auto-reply
// settings.
func New(session Session, ruleStore RuleStore, autoStore AutoReplyStore, opts ...Option) *Engine {
	e := &Engine{
		session:   session,
		ruleStore: ruleStore,
		autoStore: autoStore,
		folder:    "INBOX",
		logger:    log.New(io.Discard),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rules = ruleStore.Load()
	e.autoReply = autoStore.Load()
	return e
}

// Connect opens the mailbox session, replacing any existing one.
func (e *Engine) Connect(ctx context.Context, creds mailbox.Credentials) error {
	if err := e.session.Connect(ctx, creds); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Disconnect closes the mailbox session.
func (e *Engine) Disconnect() error {
	if err := e.session.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Connected reports whether a mailbox session is open.
func (e *Engine) Connected() bool { return e.session.Connected() }

// Identity returns the credentials of the open session.
func (e *Engine) Identity() mailbox.Credentials { return e.session.Identity() }

// Folder is the folder scans operate on.
func (e *Engine) Folder() string { return e.folder }

// Analyze summarizes every message received in the last days. Messages
// are peeked, so their \Seen flags are untouched.
func (e *Engine) Analyze(ctx context.Context, days int) (analytics.Summary, error) {
	started := e.now()
	summary, err := e.analyze(ctx, days)

	run := model.Run{Kind: model.RunAnalysis, StartedAt: started, Messages: summary.Total}
	if err != nil {
		run.Error = err.Error()
	} else if data, jerr := json.Marshal(summary); jerr == nil {
		run.Summary = string(data)
	}
	e.record(run)

	if err != nil {
		return analytics.Summary{}, fmt.Errorf("analyze: %w", err)
	}

	e.mu.Lock()
	e.lastSummary = &summary
	e.mu.Unlock()
	return summary, nil
}

func (e *Engine) analyze(ctx context.Context, days int) (analytics.Summary, error) {
	if err := e.session.SelectFolder(ctx, e.folder); err != nil {
		return analytics.Summary{}, err
	}
	ids, err := e.session.SearchSince(ctx, days, nil)
	if err != nil {
		return analytics.Summary{}, err
	}
	e.logger.Debug("analyzing messages", "count", len(ids), "days", days)

	agg := analytics.NewAggregator(days)
	for _, id := range ids {
		raw, err := e.session.PeekRaw(ctx, id)
		if err != nil {
			return analytics.Summary{}, err
		}
		rec, perr := message.Parse(raw)
		if perr != nil {
			e.logger.Debug("partially parsed message", "id", id, "error", perr)
		}
		agg.Add(rec)
	}
	return agg.Summary(), nil
}

// LastSummary returns the summary of the most recent successful
// analysis in this process.
func (e *Engine) LastSummary() (analytics.Summary, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastSummary == nil {
		return analytics.Summary{}, false
	}
	return *e.lastSummary, true
}

// Process runs the rule list and auto-reply over every unseen message.
func (e *Engine) Process(ctx context.Context) (*rules.Report, error) {
	e.mu.RLock()
	ruleList := slices.Clone(e.rules)
	settings := e.autoReply
	e.mu.RUnlock()

	started := e.now()
	proc := rules.NewProcessor(e.session, e.replier,
		rules.WithFolder(e.folder),
		rules.WithLogger(e.logger),
	)
	report, err := proc.ProcessUnseen(ctx, ruleList, settings)

	run := model.Run{Kind: model.RunProcessing, StartedAt: started}
	if err != nil {
		run.Error = err.Error()
	} else {
		run.Messages = report.Scanned
		run.Moved = report.Moved
		run.Replied = report.Replied
		run.ReplyFailed = report.ReplyFailed
		for _, a := range report.Actions {
			run.Actions = append(run.Actions, model.RunAction{
				MessageUID: uint32(a.ID),
				Sender:     a.Sender,
				Subject:    a.Subject,
				Rule:       a.Rule,
				Folder:     a.Folder,
				Replied:    a.Replied,
			})
		}
	}
	e.record(run)

	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}
	return report, nil
}

// Search finds messages from the last days whose subject contains
// query.
func (e *Engine) Search(ctx context.Context, query string, days int) ([]model.SearchHit, error) {
	started := e.now()
	hits, err := e.search(ctx, query, days)

	run := model.Run{Kind: model.RunSearch, StartedAt: started, Messages: len(hits)}
	if err != nil {
		run.Error = err.Error()
	}
	e.record(run)

	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

func (e *Engine) search(ctx context.Context, query string, days int) ([]model.SearchHit, error) {
	if err := e.session.SelectFolder(ctx, e.folder); err != nil {
		return nil, err
	}
	return search.Run(ctx, e.session, query, days)
}

// Rules returns a copy of the rule list in evaluation order.
func (e *Engine) Rules() []model.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.rules)
}

// AddRule appends rule and persists the list. On a persistence failure
// the in-memory list is left unchanged.
func (e *Engine) AddRule(rule model.Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("add rule: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := append(slices.Clone(e.rules), rule)
	if err := e.ruleStore.Save(next); err != nil {
		return fmt.Errorf("add rule: %w", err)
	}
	e.rules = next
	e.logger.Info("added rule", "name", rule.Name, "type", rule.Type, "folder", rule.Folder)
	return nil
}

// AutoReply returns the current auto-reply settings.
func (e *Engine) AutoReply() model.AutoReplySettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.autoReply
}

// SaveAutoReply replaces and persists the auto-reply settings.
func (e *Engine) SaveAutoReply(settings model.AutoReplySettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.autoStore.Save(settings); err != nil {
		return fmt.Errorf("save auto-reply: %w", err)
	}
	e.autoReply = settings
	e.logger.Info("saved auto-reply settings", "enabled", settings.Enabled)
	return nil
}

// History lists the most recent recorded runs, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]model.Run, error) {
	if e.history == nil {
		return nil, nil
	}
	runs, err := e.history.GetRuns(ctx, store.RunFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return runs, nil
}

// record stores a finished run. History failures are logged only.
func (e *Engine) record(run model.Run) {
	if e.history == nil {
		return
	}
	run.Mailbox = e.session.Identity().Address
	run.FinishedAt = e.now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := e.history.RecordRun(ctx, run); err != nil {
		e.logger.Warn("recording run history", "kind", run.Kind, "error", err)
	}
}
