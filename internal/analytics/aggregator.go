// Package analytics folds message records into a Summary snapshot.
package analytics

import (
	"maps"
	"time"

	"github.com/nhle/mail-organizer/internal/message"
)

// Summary is the result of one analysis run. It is never modified after
// Summary() returns it.
type Summary struct {
	Total                  int            `json:"total"`
	Senders                map[string]int `json:"senders"`
	Hours                  [24]int        `json:"hours"`
	AverageResponseMinutes float64        `json:"average_response_minutes"`
	ResponsePairs          int            `json:"response_pairs"`
	Keywords               map[string]int `json:"keywords"`
	Sizes                  []int          `json:"sizes"`
	AttachmentTypes        map[string]int `json:"attachment_types"`
	Days                   int            `json:"days"`
	GeneratedAt            time.Time      `json:"generated_at"`
}

// Aggregator accumulates records in fetch order. The response-time
// average depends on that order; every other tally does not.
type Aggregator struct {
	days          int
	total         int
	senders       map[string]int
	hours         [24]int
	keywords      map[string]int
	sizes         []int
	attachments   map[string]int
	cursor        time.Time
	responseTotal float64
	pairs         int
	now           func() time.Time
}

// NewAggregator returns an empty aggregator for a window of days.
func NewAggregator(days int) *Aggregator {
	return &Aggregator{
		days:        days,
		senders:     make(map[string]int),
		keywords:    make(map[string]int),
		attachments: make(map[string]int),
		now:         time.Now,
	}
}

// Add folds one record into the running tallies.
//
// A reply is paired with whichever timestamped record immediately
// preceded it in scan order, not with the message it references.
func (a *Aggregator) Add(rec *message.Record) {
	a.total++
	a.senders[rec.Sender()]++
	a.sizes = append(a.sizes, rec.Size())

	for _, kw := range rec.Keywords() {
		a.keywords[kw]++
	}
	for _, ext := range rec.AttachmentExtensions() {
		a.attachments[ext]++
	}

	ts, ok := rec.Timestamp()
	if !ok {
		return
	}
	a.hours[ts.Hour()]++
	if rec.IsReply() && !a.cursor.IsZero() {
		a.responseTotal += ts.Sub(a.cursor).Minutes()
		a.pairs++
	}
	a.cursor = ts
}

// Summary returns a snapshot of the tallies so far. The aggregator may
// keep accepting records; earlier snapshots are unaffected.
func (a *Aggregator) Summary() Summary {
	s := Summary{
		Total:           a.total,
		Senders:         maps.Clone(a.senders),
		Hours:           a.hours,
		ResponsePairs:   a.pairs,
		Keywords:        maps.Clone(a.keywords),
		Sizes:           append([]int{}, a.sizes...),
		AttachmentTypes: maps.Clone(a.attachments),
		Days:            a.days,
		GeneratedAt:     a.now(),
	}
	if a.pairs > 0 {
		s.AverageResponseMinutes = a.responseTotal / float64(a.pairs)
	}
	return s
}

// Aggregate folds records in order and returns the resulting summary.
func Aggregate(records []*message.Record) Summary {
	agg := NewAggregator(0)
	for _, rec := range records {
		agg.Add(rec)
	}
	return agg.Summary()
}
