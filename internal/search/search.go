// Package search finds messages by subject within a recent window.
package search

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/message"
	"github.com/nhle/mail-organizer/internal/model"
)

// DateLayout is the display format of SearchHit.Date.
const DateLayout = "2006-01-02 15:04:05"

// Mailbox is the subset of *mailbox.Session a search needs. The folder
// must already be selected.
type Mailbox interface {
	SearchSince(ctx context.Context, days int, extra *imap.SearchCriteria) ([]mailbox.MessageID, error)
	PeekRaw(ctx context.Context, id mailbox.MessageID) ([]byte, error)
}

// Run returns the messages from the last days whose subject contains
// query, filtered on the server. Messages are peeked so their \Seen flag
// is left alone. No matches yields an empty slice and a nil error.
func Run(ctx context.Context, mb Mailbox, query string, days int) ([]model.SearchHit, error) {
	ids, err := mb.SearchSince(ctx, days, &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: query}},
	})
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", query, err)
	}

	hits := make([]model.SearchHit, 0, len(ids))
	for _, id := range ids {
		raw, err := mb.PeekRaw(ctx, id)
		if err != nil {
			return nil, err
		}
		rec, _ := message.Parse(raw)
		hits = append(hits, toHit(rec))
	}
	return hits, nil
}

func toHit(rec *message.Record) model.SearchHit {
	hit := model.SearchHit{
		Subject: rec.Subject(),
		Sender:  rec.Sender(),
	}
	if ts, ok := rec.Timestamp(); ok {
		hit.Date = ts.Format(DateLayout)
	}
	return hit
}
