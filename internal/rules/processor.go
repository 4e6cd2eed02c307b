package rules

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/message"
	"github.com/nhle/mail-organizer/internal/model"
)

// Mailbox is the subset of *mailbox.Session the processor drives.
type Mailbox interface {
	SelectFolder(ctx context.Context, name string) error
	SearchUnseen(ctx context.Context) ([]mailbox.MessageID, error)
	FetchRaw(ctx context.Context, id mailbox.MessageID) ([]byte, error)
	MoveToFolder(ctx context.Context, id mailbox.MessageID, folder string) error
	Expunge(ctx context.Context) error
	Identity() mailbox.Credentials
}

// Replier sends the configured auto-reply. It reports whether a reply
// went out; failures never propagate.
type Replier interface {
	MaybeReply(ctx context.Context, identity mailbox.Credentials, rec *message.Record, settings model.AutoReplySettings) bool
}

// Action records what processing did with one message.
type Action struct {
	ID      mailbox.MessageID `json:"id"`
	Sender  string            `json:"sender"`
	Subject string            `json:"subject"`
	Rule    string            `json:"rule,omitempty"`
	Folder  string            `json:"folder,omitempty"`
	Replied bool              `json:"replied"`
}

// Moved reports whether a rule filed the message.
func (a Action) Moved() bool { return a.Folder != "" }

// Report summarizes one processing batch.
type Report struct {
	Scanned     int      `json:"scanned"`
	Moved       int      `json:"moved"`
	Replied     int      `json:"replied"`
	ReplyFailed int      `json:"reply_failed"`
	Actions     []Action `json:"actions"`
}

// Processor files unseen messages according to rules and sends
// auto-replies.
type Processor struct {
	mailbox Mailbox
	replier Replier
	folder  string
	logger  *log.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithFolder sets the folder scanned for unseen messages (default INBOX).
func WithFolder(folder string) ProcessorOption {
	return func(p *Processor) {
		if folder != "" {
			p.folder = folder
		}
	}
}

// WithLogger sets the processor's logger.
func WithLogger(logger *log.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor returns a processor operating on mb. replier may be nil,
// in which case auto-replies are never sent.
func NewProcessor(mb Mailbox, replier Replier, opts ...ProcessorOption) *Processor {
	p := &Processor{
		mailbox: mb,
		replier: replier,
		folder:  "INBOX",
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessUnseen runs one batch: every unseen message is fetched (which
// marks it seen), moved by the first matching rule, and answered when
// auto-reply is enabled, whether or not a rule matched. Deleted
// originals are expunged exactly once, after the whole batch.
//
// A session failure aborts the batch; messages already flagged stay
// flagged until the next expunge.
func (p *Processor) ProcessUnseen(ctx context.Context, rules []model.Rule, settings model.AutoReplySettings) (*Report, error) {
	if err := p.mailbox.SelectFolder(ctx, p.folder); err != nil {
		return nil, err
	}

	ids, err := p.mailbox.SearchUnseen(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("processing unseen messages", "count", len(ids), "rules", len(rules))

	identity := p.mailbox.Identity()
	report := &Report{Actions: make([]Action, 0, len(ids))}

	for _, id := range ids {
		raw, err := p.mailbox.FetchRaw(ctx, id)
		if err != nil {
			return nil, err
		}

		rec, perr := message.Parse(raw)
		if perr != nil {
			p.logger.Debug("partially parsed message", "id", id, "error", perr)
		}

		action := Action{ID: id, Sender: rec.Sender(), Subject: rec.Subject()}
		report.Scanned++

		if rule, ok := Evaluate(rec, rules); ok {
			if err := p.mailbox.MoveToFolder(ctx, id, rule.Folder); err != nil {
				return nil, err
			}
			action.Rule = rule.Name
			action.Folder = rule.Folder
			report.Moved++
			p.logger.Info("filed message", "id", id, "rule", rule.Name, "folder", rule.Folder)
		}

		if settings.Enabled && p.replier != nil {
			if p.replier.MaybeReply(ctx, identity, rec, settings) {
				action.Replied = true
				report.Replied++
			} else {
				report.ReplyFailed++
			}
		}

		report.Actions = append(report.Actions, action)
	}

	if err := p.mailbox.Expunge(ctx); err != nil {
		return nil, fmt.Errorf("after moving %d messages: %w", report.Moved, err)
	}
	return report, nil
}
