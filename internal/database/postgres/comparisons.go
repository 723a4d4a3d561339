package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/facelens/internal/database"
	"github.com/pgvector/pgvector-go"
)

// ComparisonRepository stores comparison outcomes with their descriptors.
type ComparisonRepository struct {
	pool *Pool
}

// NewComparisonRepository creates a new PostgreSQL comparison repository.
func NewComparisonRepository(pool *Pool) *ComparisonRepository {
	return &ComparisonRepository{pool: pool}
}

// Save inserts every record in one transaction.
func (r *ComparisonRepository) Save(ctx context.Context, records []database.ComparisonRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comparisons (comparison_id, mode, probe_index, candidate_index, distance, is_match,
		                         probe_descriptor, candidate_descriptor)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector, $8::vector)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.ComparisonID,
			rec.Mode,
			rec.ProbeIndex,
			rec.CandidateIndex,
			rec.Distance,
			rec.Match,
			pgvector.NewVector(rec.ProbeDescriptor),
			pgvector.NewVector(rec.CandidateDescriptor),
		); err != nil {
			return fmt.Errorf("insert comparison %s/%d/%d: %w", rec.ComparisonID, rec.ProbeIndex, rec.CandidateIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Recent returns the newest records first.
func (r *ComparisonRepository) Recent(ctx context.Context, limit int) ([]database.ComparisonRecord, error) {
	query := `
		SELECT id, comparison_id, mode, probe_index, candidate_index, distance, is_match,
		       probe_descriptor, candidate_descriptor, created_at
		FROM comparisons
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	return scanComparisons(rows)
}

// Count returns the total number of stored pairs.
func (r *ComparisonRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM comparisons").Scan(&count); err != nil {
		return 0, fmt.Errorf("count comparisons: %w", err)
	}
	return count, nil
}

// Close closes the underlying pool.
func (r *ComparisonRepository) Close() error {
	return r.pool.Close()
}

func scanComparisons(rows *sql.Rows) ([]database.ComparisonRecord, error) {
	var records []database.ComparisonRecord
	for rows.Next() {
		var rec database.ComparisonRecord
		var probe, candidate pgvector.Vector
		if err := rows.Scan(
			&rec.ID,
			&rec.ComparisonID,
			&rec.Mode,
			&rec.ProbeIndex,
			&rec.CandidateIndex,
			&rec.Distance,
			&rec.Match,
			&probe,
			&candidate,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		rec.ProbeDescriptor = probe.Slice()
		rec.CandidateDescriptor = candidate.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparisons: %w", err)
	}
	return records, nil
}
