// Package store keeps the history of analysis and processing runs in a
// local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mail-organizer/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

type runRow struct {
	ID          string    `db:"id"`
	Kind        string    `db:"kind"`
	Mailbox     string    `db:"mailbox"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
	Messages    int       `db:"messages"`
	Moved       int       `db:"moved"`
	Replied     int       `db:"replied"`
	ReplyFailed int       `db:"reply_failed"`
	Error       string    `db:"error"`
	Summary     string    `db:"summary"`
}

func (r runRow) toModel() model.Run {
	return model.Run{
		ID:          r.ID,
		Kind:        model.RunKind(r.Kind),
		Mailbox:     r.Mailbox,
		StartedAt:   r.StartedAt.Local(),
		FinishedAt:  r.FinishedAt.Local(),
		Messages:    r.Messages,
		Moved:       r.Moved,
		Replied:     r.Replied,
		ReplyFailed: r.ReplyFailed,
		Error:       r.Error,
		Summary:     r.Summary,
	}
}

type actionRow struct {
	Seq        int    `db:"seq"`
	MessageUID int64  `db:"message_uid"`
	Sender     string `db:"sender"`
	Subject    string `db:"subject"`
	Rule       string `db:"rule"`
	Folder     string `db:"folder"`
	Replied    int    `db:"replied"`
}

// RecordRun inserts a run and its actions in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, run model.Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, kind, mailbox, started_at, finished_at,
			messages, moved, replied, reply_failed, error, summary
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Mailbox,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Messages, run.Moved, run.Replied, run.ReplyFailed,
		run.Error, run.Summary,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	if len(run.Actions) > 0 {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO run_actions (
				run_id, seq, message_uid, sender, subject, rule, folder, replied
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("preparing action insert: %w", err)
		}
		defer stmt.Close()

		for i, a := range run.Actions {
			_, err := stmt.ExecContext(ctx,
				run.ID, i, int64(a.MessageUID), a.Sender, a.Subject,
				a.Rule, a.Folder, boolToInt(a.Replied),
			)
			if err != nil {
				return "", fmt.Errorf("inserting action %d of run %s: %w", i, run.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// GetRuns retrieves runs matching the filter, newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	var conditions []string
	var args []any

	if filter.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(*filter.Kind))
	}
	if filter.Mailbox != nil {
		conditions = append(conditions, "mailbox = ?")
		args = append(args, *filter.Mailbox)
	}

	query := "SELECT * FROM runs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	runs := make([]model.Run, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, r.toModel())
	}
	return runs, nil
}

// GetRunByID retrieves a single run and its actions.
func (s *SQLiteStore) GetRunByID(ctx context.Context, id string) (*model.Run, error) {
	var row runRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}

	run := row.toModel()
	actions, err := s.getActions(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Actions = actions
	return &run, nil
}

// LatestRun returns the most recent run of the given kind, or nil.
func (s *SQLiteStore) LatestRun(ctx context.Context, kind model.RunKind) (*model.Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM runs WHERE kind = ? ORDER BY started_at DESC LIMIT 1", string(kind),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest %s run: %w", kind, err)
	}
	run := row.toModel()
	return &run, nil
}

// PruneRuns keeps the newest keep runs and deletes the rest, along with
// their actions.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) getActions(ctx context.Context, runID string) ([]model.RunAction, error) {
	var rows []actionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT seq, message_uid, sender, subject, rule, folder, replied
		FROM run_actions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying actions for run %s: %w", runID, err)
	}

	actions := make([]model.RunAction, 0, len(rows))
	for _, r := range rows {
		actions = append(actions, model.RunAction{
			MessageUID: uint32(r.MessageUID),
			Sender:     r.Sender,
			Subject:    r.Subject,
			Rule:       r.Rule,
			Folder:     r.Folder,
			Replied:    r.Replied != 0,
		})
	}
	return actions, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
