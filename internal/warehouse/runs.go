package warehouse

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fashionstore/sales-ingest/internal/logging"
)

// Run statuses recorded in ingest_runs.
const (
	RunStatusCommitted  = "committed"
	RunStatusRolledBack = "rolled_back"
	RunStatusFailed     = "failed"
)

// RunRecord is one row of the ingestion run history.
type RunRecord struct {
	ID            int64
	RunDate       time.Time
	Status        string
	RowsRead      int
	RowsMatched   int
	RowsMalformed int
	FactsInserted int
	FactsSkipped  int
	StartedAt     time.Time
	FinishedAt    time.Time
	Error         string
}

// RecordRun appends a run outcome to the history. This runs outside
// the ingest transaction so rolled-back and failed runs are recorded
// too.
func RecordRun(ctx context.Context, pool *pgxpool.Pool, rec RunRecord) error {
	const sql = `
        INSERT INTO ingest_runs (
            run_date, status, rows_read, rows_matched, rows_malformed,
            facts_inserted, facts_skipped, started_at, finished_at, error
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
    `

	var finished any
	if !rec.FinishedAt.IsZero() {
		finished = rec.FinishedAt
	}

	_, err := pool.Exec(ctx, sql,
		rec.RunDate, rec.Status, rec.RowsRead, rec.RowsMatched,
		rec.RowsMalformed, rec.FactsInserted, rec.FactsSkipped,
		rec.StartedAt, finished, rec.Error)
	if err != nil {
		return err
	}

	logging.Debug().
		Str("run_date", rec.RunDate.Format("2006-01-02")).
		Str("status", rec.Status).
		Msg("Recorded run")

	return nil
}

// RecentRuns returns the most recent runs, newest first.
func RecentRuns(ctx context.Context, pool *pgxpool.Pool, limit int) ([]RunRecord, error) {
	const sql = `
        SELECT run_id, run_date, status, rows_read, rows_matched,
               rows_malformed, facts_inserted, facts_skipped,
               started_at, COALESCE(finished_at, started_at),
               COALESCE(error, '')
        FROM ingest_runs
        ORDER BY run_id DESC
        LIMIT $1
    `

	rows, err := pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.RunDate, &r.Status, &r.RowsRead,
			&r.RowsMatched, &r.RowsMalformed, &r.FactsInserted,
			&r.FactsSkipped, &r.StartedAt, &r.FinishedAt, &r.Error); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}

	return recs, rows.Err()
}
