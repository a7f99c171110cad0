package persist

import (
	"context"
	"fmt"
	"time"
)

// LoadRecord is one ticket outcome as stored in asset_load_journal.
type LoadRecord struct {
	Ticket  string
	Kind    string
	Path    string
	Status  string // "resolved" or "failed"
	Digest  string
	Elapsed time.Duration
	Attempt int
	Error   string
	At      time.Time
}

// Writer accepts batches of load records.
type Writer interface {
	RecordLoads(ctx context.Context, recs []LoadRecord) error
}

type JournalRepo struct {
	db    *DB
	runID string
}

// NewJournalRepo returns a repo tagging every row with runID so outcomes of
// one process run can be grouped.
func NewJournalRepo(db *DB, runID string) *JournalRepo {
	return &JournalRepo{db: db, runID: runID}
}

// RecordLoads writes a batch in a single transaction.
func (r *JournalRepo) RecordLoads(ctx context.Context, recs []LoadRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range recs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO asset_load_journal
			   (run_id, ticket, kind, path, status, digest, elapsed_ms, attempt, error, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			r.runID, rec.Ticket, rec.Kind, rec.Path, rec.Status, rec.Digest,
			float64(rec.Elapsed)/float64(time.Millisecond), rec.Attempt, rec.Error, rec.At,
		); err != nil {
			return fmt.Errorf("journal insert %s: %w", rec.Ticket, err)
		}
	}

	return tx.Commit(ctx)
}

// LastFailures returns tickets whose most recent journal row is a failure,
// from any earlier run. Used for the startup report.
func (r *JournalRepo) LastFailures(ctx context.Context) ([]LoadRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT DISTINCT ON (ticket) ticket, kind, path, status, digest, elapsed_ms, attempt, error, recorded_at
		 FROM asset_load_journal
		 WHERE run_id <> $1
		 ORDER BY ticket, recorded_at DESC`, r.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		var (
			rec LoadRecord
			ms  float64
		)
		if err := rows.Scan(&rec.Ticket, &rec.Kind, &rec.Path, &rec.Status, &rec.Digest,
			&ms, &rec.Attempt, &rec.Error, &rec.At); err != nil {
			return nil, err
		}
		if rec.Status != "failed" {
			continue
		}
		rec.Elapsed = time.Duration(ms * float64(time.Millisecond))
		out = append(out, rec)
	}
	return out, rows.Err()
}
