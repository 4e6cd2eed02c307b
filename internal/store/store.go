package store

import (
	"context"

	"github.com/nhle/mail-organizer/internal/model"
)

// RunFilter controls filtering and pagination for run history queries.
type RunFilter struct {
	Kind    *model.RunKind
	Mailbox *string
	Limit   int
	Offset  int
}

// Store defines the persistence interface for run history.
type Store interface {
	// RecordRun inserts a run and its per-message actions. A UUID is
	// assigned when run.ID is empty; the stored ID is returned.
	RecordRun(ctx context.Context, run model.Run) (string, error)

	// GetRuns lists runs newest first. Actions are not loaded.
	GetRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// GetRunByID loads a single run with its actions.
	GetRunByID(ctx context.Context, id string) (*model.Run, error)

	// LatestRun returns the most recent run of kind, or nil when none
	// exists.
	LatestRun(ctx context.Context, kind model.RunKind) (*model.Run, error)

	// PruneRuns deletes all but the newest keep runs.
	PruneRuns(ctx context.Context, keep int) (int64, error)

	Close() error
}
