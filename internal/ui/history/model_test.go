package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/mail-organizer/internal/model"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		run  model.Run
		want string
	}{
		{
			name: "processing",
			run:  model.Run{Kind: model.RunProcessing, Messages: 12, Moved: 3, Replied: 12},
			want: "12 scanned, 3 moved, 12 replied",
		},
		{
			name: "processing with reply failures",
			run:  model.Run{Kind: model.RunProcessing, Messages: 2, ReplyFailed: 2},
			want: "2 scanned, 0 moved, 2 replies failed",
		},
		{
			name: "analysis",
			run:  model.Run{Kind: model.RunAnalysis, Messages: 40},
			want: "40 messages",
		},
		{
			name: "search",
			run:  model.Run{Kind: model.RunSearch, Messages: 0},
			want: "0 hits",
		},
		{
			name: "failure",
			run:  model.Run{Kind: model.RunAnalysis, Error: "analyze: not connected"},
			want: "failed: analyze: not connected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.run))
		})
	}
}

func TestAgo(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Contains(t, Ago(now.Add(-5*time.Minute), now), "minutes ago")
}

func TestViewListsRuns(t *testing.T) {
	m := New(100, 20)
	assert.Contains(t, m.View(), "No runs recorded yet.")

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	m.SetRuns([]model.Run{{
		Kind:       model.RunProcessing,
		StartedAt:  now.Add(-2 * time.Hour),
		FinishedAt: now.Add(-2*time.Hour + time.Second),
		Messages:   4,
		Moved:      1,
	}})
	out := m.View()
	assert.Contains(t, out, "processing")
	assert.Contains(t, out, "4 scanned, 1 moved")
}
