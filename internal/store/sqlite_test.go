package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/store"
	"github.com/nhle/mail-organizer/tests/testutil"
)

func run(kind model.RunKind, started time.Time) model.Run {
	return model.Run{
		Kind:       kind,
		Mailbox:    "me@example.com",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestRecordAndGetRun(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	r := run(model.RunProcessing, started)
	r.Messages = 2
	r.Moved = 1
	r.Replied = 2
	r.Actions = []model.RunAction{
		{MessageUID: 10, Sender: "billing@acme.com", Subject: "Invoice", Rule: "bills", Folder: "Finance", Replied: true},
		{MessageUID: 11, Sender: "friend@example.org", Subject: "hello", Replied: true},
	}

	id, err := s.RecordRun(ctx, r)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetRunByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.RunProcessing, got.Kind)
	assert.Equal(t, 1, got.Moved)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, 3*time.Second, got.Duration())
	require.Len(t, got.Actions, 2)
	assert.Equal(t, r.Actions, got.Actions)
}

func TestGetRunsNewestFirstWithFilter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	for i, kind := range []model.RunKind{model.RunAnalysis, model.RunProcessing, model.RunAnalysis} {
		_, err := s.RecordRun(ctx, run(kind, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	all, err := s.GetRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[1].StartedAt))

	kind := model.RunAnalysis
	analyses, err := s.GetRuns(ctx, store.RunFilter{Kind: &kind, Limit: 1})
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.True(t, analyses[0].StartedAt.Equal(base.Add(2*time.Hour)))

	latest, err := s.LatestRun(ctx, model.RunProcessing)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.StartedAt.Equal(base.Add(time.Hour)))

	none, err := s.LatestRun(ctx, model.RunSearch)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPruneRunsCascadesActions(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	old := run(model.RunProcessing, base)
	old.Actions = []model.RunAction{{MessageUID: 1}}
	oldID, err := s.RecordRun(ctx, old)
	require.NoError(t, err)

	_, err = s.RecordRun(ctx, run(model.RunAnalysis, base.Add(time.Hour)))
	require.NoError(t, err)

	n, err := s.PruneRuns(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.GetRunByID(ctx, oldID)
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.RecordRun(context.Background(), run(model.RunAnalysis, time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.GetRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
