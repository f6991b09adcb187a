package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/form-order-summary/internal/domain/form"
)

const (
	getFormSQL = `SELECT id, title, currency, fields FROM forms WHERE id = $1`

	upsertFormSQL = `INSERT INTO forms (id, title, currency, fields)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, currency = EXCLUDED.currency, fields = EXCLUDED.fields, updated_at = now()`
)

var _ form.Repository = (*FormRepository)(nil)

// FormRepository implements form.Repository backed by PostgreSQL. Fields are
// stored as JSONB.
type FormRepository struct {
	pool *pgxpool.Pool
}

// NewFormRepository returns a FormRepository that uses the given pool.
func NewFormRepository(pool *pgxpool.Pool) *FormRepository {
	return &FormRepository{pool: pool}
}

// GetByID returns a form definition.
func (r *FormRepository) GetByID(ctx context.Context, id string) (*form.Form, error) {
	rows, err := r.pool.Query(ctx, getFormSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get form %q", id)
	}

	f, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (form.Form, error) {
		var f form.Form
		err := row.Scan(&f.ID, &f.Title, &f.Currency, &f.Fields)
		return f, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, form.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get form %q", id)
	}
	return &f, nil
}

// Upsert creates the form or replaces an existing definition.
func (r *FormRepository) Upsert(ctx context.Context, f *form.Form) error {
	fields := f.Fields
	if fields == nil {
		fields = []form.Field{}
	}
	if _, err := r.pool.Exec(ctx, upsertFormSQL, f.ID, f.Title, f.Currency, fields); err != nil {
		return errors.Wrapf(err, "upsert form %q", f.ID)
	}
	return nil
}
