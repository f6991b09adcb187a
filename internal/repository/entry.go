package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/form-order-summary/internal/domain/form"
)

const (
	createEntrySQL = `INSERT INTO entries (id, form_id, currency, field_values)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	getEntrySQL = `SELECT id, form_id, currency, field_values, created_at FROM entries WHERE id = $1`
)

var _ form.EntryRepository = (*EntryRepository)(nil)

// EntryRepository implements form.EntryRepository backed by PostgreSQL.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository returns an EntryRepository that uses the given pool.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create persists a new entry and sets its CreatedAt.
func (r *EntryRepository) Create(ctx context.Context, e *form.Entry) error {
	values := e.Values
	if values == nil {
		values = map[string]string{}
	}
	err := r.pool.QueryRow(ctx, createEntrySQL, e.ID, e.FormID, e.Currency, values).Scan(&e.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "create entry %q", e.ID)
	}
	return nil
}

// GetByID returns a single entry.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*form.Entry, error) {
	rows, err := r.pool.Query(ctx, getEntrySQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get entry %q", id)
	}

	e, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (form.Entry, error) {
		var e form.Entry
		err := row.Scan(&e.ID, &e.FormID, &e.Currency, &e.Values, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, form.ErrEntryNotFound
		}
		return nil, errors.Wrapf(err, "get entry %q", id)
	}
	return &e, nil
}
