package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/form-order-summary/internal/domain/summary"
)

const (
	snapshotColumns = `entry_id, form_id, version, total, payload, created_at`

	saveSnapshotSQL = `INSERT INTO order_snapshots (entry_id, form_id, version, total, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entry_id) DO UPDATE
		SET form_id = EXCLUDED.form_id, version = EXCLUDED.version,
			total = EXCLUDED.total, payload = EXCLUDED.payload, created_at = now()
		RETURNING created_at`

	getSnapshotSQL = `SELECT ` + snapshotColumns + ` FROM order_snapshots WHERE entry_id = $1`

	streamSnapshotsSQL = `SELECT ` + snapshotColumns + ` FROM order_snapshots ORDER BY created_at, entry_id`
)

var _ summary.SnapshotRepository = (*SnapshotRepository)(nil)

// SnapshotRepository implements summary.SnapshotRepository backed by
// PostgreSQL. Payloads are stored as JSONB.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository returns a SnapshotRepository that uses the given pool.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Save stores the snapshot of an entry, replacing a previous one.
func (r *SnapshotRepository) Save(ctx context.Context, s *summary.Snapshot) error {
	err := r.pool.QueryRow(ctx, saveSnapshotSQL,
		s.EntryID, s.FormID, s.Version, s.Total, string(s.Payload),
	).Scan(&s.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "save snapshot %q", s.EntryID)
	}
	return nil
}

// Get returns the snapshot of an entry.
func (r *SnapshotRepository) Get(ctx context.Context, entryID string) (*summary.Snapshot, error) {
	rows, err := r.pool.Query(ctx, getSnapshotSQL, entryID)
	if err != nil {
		return nil, errors.Wrapf(err, "get snapshot %q", entryID)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSnapshot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, summary.ErrSnapshotNotFound
		}
		return nil, errors.Wrapf(err, "get snapshot %q", entryID)
	}
	return &s, nil
}

// Stream calls fn for every stored snapshot, oldest first. It stops at the
// first error returned by fn.
func (r *SnapshotRepository) Stream(ctx context.Context, fn func(*summary.Snapshot) error) error {
	rows, err := r.pool.Query(ctx, streamSnapshotsSQL)
	if err != nil {
		return errors.Wrap(err, "stream snapshots")
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return errors.Wrap(err, "scan snapshot")
		}
		if err := fn(&s); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "stream snapshots")
	}
	return nil
}

func scanSnapshot(row pgx.CollectableRow) (summary.Snapshot, error) {
	var (
		s       summary.Snapshot
		payload string
	)
	err := row.Scan(&s.EntryID, &s.FormID, &s.Version, &s.Total, &payload, &s.CreatedAt)
	s.Payload = []byte(payload)
	return s, err
}
