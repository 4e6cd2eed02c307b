package autoreply

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/message"
	"github.com/nhle/mail-organizer/internal/model"
)

// Dispatcher sends auto-replies. Failures are logged and never
// returned.
type Dispatcher struct {
	sender Sender
	logger *log.Logger
	now    func() time.Time
}

// NewDispatcher returns a dispatcher delivering through sender. A nil
// logger discards diagnostics.
func NewDispatcher(sender Sender, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Dispatcher{sender: sender, logger: logger, now: time.Now}
}

// MaybeReply answers rec with the configured template when auto-reply is
// enabled. It reports whether a reply was sent.
func (d *Dispatcher) MaybeReply(ctx context.Context, identity mailbox.Credentials, rec *message.Record, settings model.AutoReplySettings) bool {
	if !settings.Enabled {
		return false
	}

	to := rec.Sender()
	if to == "" {
		d.logger.Warn("skipping auto-reply: message has no sender address", "subject", rec.Subject())
		return false
	}
	if identity.Address == "" {
		d.logger.Warn("skipping auto-reply: no mailbox identity", "to", to)
		return false
	}

	msg, err := Compose(identity.Address, to, rec, settings.Message, d.now())
	if err != nil {
		d.logger.Error("composing auto-reply", "to", to, "error", err)
		return false
	}

	if err := d.sender.Send(ctx, identity, to, msg); err != nil {
		d.logger.Error("sending auto-reply", "to", to, "error", err)
		return false
	}

	d.logger.Info("sent auto-reply", "to", to)
	return true
}
