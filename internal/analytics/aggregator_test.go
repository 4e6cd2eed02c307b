package analytics

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-organizer/internal/message"
)

type msg struct {
	from    string
	subject string
	date    time.Time
	reply   bool
	attach  string
}

func record(t *testing.T, m msg) *message.Record {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.subject)
	if !m.date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\r\n", m.date.Format(time.RFC1123Z))
	}
	if m.reply {
		b.WriteString("In-Reply-To: <orig@example.com>\r\n")
	}
	if m.attach == "" {
		b.WriteString("\r\nbody\r\n")
	} else {
		b.WriteString("Content-Type: multipart/mixed; boundary=B\r\n\r\n")
		b.WriteString("--B\r\nContent-Type: text/plain\r\n\r\nsee file\r\n")
		fmt.Fprintf(&b, "--B\r\nContent-Disposition: attachment; filename=%q\r\n\r\ndata\r\n", m.attach)
		b.WriteString("--B--\r\n")
	}
	rec, err := message.Parse([]byte(b.String()))
	require.NoError(t, err)
	return rec
}

func TestResponseTimePair(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	records := []*message.Record{
		record(t, msg{from: "a@x.com", subject: "question", date: t0}),
		record(t, msg{from: "b@y.com", subject: "Re: question", date: t0.Add(15 * time.Minute), reply: true}),
	}

	s := Aggregate(records)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.ResponsePairs)
	assert.InDelta(t, 15.0, s.AverageResponseMinutes, 1e-9)
	assert.Equal(t, 2, s.Hours[9])
}

func TestReplyBeforePriorMessageCountsNegative(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	s := Aggregate([]*message.Record{
		record(t, msg{from: "a@x.com", subject: "question", date: t0}),
		record(t, msg{from: "b@y.com", subject: "Re: question", date: t0.Add(-10 * time.Minute), reply: true}),
	})
	assert.Equal(t, 1, s.ResponsePairs)
	assert.InDelta(t, -10.0, s.AverageResponseMinutes, 1e-9)
}

func TestNoPairsAverageIsZero(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	s := Aggregate([]*message.Record{
		record(t, msg{from: "a@x.com", subject: "first", reply: true, date: t0}),
		record(t, msg{from: "a@x.com", subject: "undated reply", reply: true}),
	})
	assert.Zero(t, s.ResponsePairs)
	assert.Zero(t, s.AverageResponseMinutes)
}

func TestUndatedRecordsCountedButNotTimed(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 22, 30, 0, 0, time.Local)
	s := Aggregate([]*message.Record{
		record(t, msg{from: "a@x.com", subject: "hello there", date: t0}),
		record(t, msg{from: "", subject: "no date", attach: "notes.TXT"}),
		record(t, msg{from: "c@z.com", subject: "Re: hello there", reply: true, date: t0.Add(30 * time.Minute)}),
	})

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Senders[""])
	assert.Equal(t, 1, s.Hours[22])
	assert.Equal(t, 1, s.Hours[23])
	assert.Equal(t, 1, s.AttachmentTypes[".txt"])
	assert.Len(t, s.Sizes, 3)
	assert.Equal(t, 1, s.ResponsePairs)
	assert.InDelta(t, 30.0, s.AverageResponseMinutes, 1e-9)
}

func TestTalliesInvariantUnderPermutation(t *testing.T) {
	base := time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)
	records := []*message.Record{
		record(t, msg{from: "alice@acme.com", subject: "Weekly status report", date: base.Add(8 * time.Hour)}),
		record(t, msg{from: "bob@acme.com", subject: "Invoice attached", date: base.Add(13 * time.Hour), attach: "inv.pdf"}),
		record(t, msg{from: "alice@acme.com", subject: "Lunch plans today", date: base.Add(19 * time.Hour)}),
		record(t, msg{from: "carol@other.org", subject: "Weekly digest", attach: "digest.html"}),
		record(t, msg{from: "dave@other.org", subject: "Invoice overdue", date: base.Add(2 * time.Hour), attach: "inv2.PDF"}),
	}

	want := Aggregate(records)

	reversed := slices.Clone(records)
	slices.Reverse(reversed)
	rotated := append(slices.Clone(records[2:]), records[:2]...)

	for _, perm := range [][]*message.Record{reversed, rotated} {
		got := Aggregate(perm)
		assert.Equal(t, want.Total, got.Total)
		assert.Equal(t, want.Senders, got.Senders)
		assert.Equal(t, want.Hours, got.Hours)
		assert.Equal(t, want.Keywords, got.Keywords)
		assert.Equal(t, want.AttachmentTypes, got.AttachmentTypes)
		assert.ElementsMatch(t, want.Sizes, got.Sizes)
	}

	assert.Equal(t, 2, want.Keywords["weekly"])
	assert.Equal(t, 2, want.AttachmentTypes[".pdf"])
}

func TestSummaryIsSnapshot(t *testing.T) {
	agg := NewAggregator(30)
	agg.Add(record(t, msg{from: "a@x.com", subject: "first message"}))
	first := agg.Summary()

	agg.Add(record(t, msg{from: "a@x.com", subject: "second message"}))
	second := agg.Summary()

	assert.Equal(t, 1, first.Total)
	assert.Equal(t, 1, first.Senders["a@x.com"])
	assert.Len(t, first.Sizes, 1)
	assert.Equal(t, 2, second.Senders["a@x.com"])
	assert.Equal(t, 30, second.Days)
}
