//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/form-order-summary/internal/domain/form"
	"github.com/xenking/form-order-summary/internal/domain/summary"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "orders",
				"POSTGRES_PASSWORD": "orders",
				"POSTGRES_DB":       "orders",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pg.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("postgres host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://orders:orders@%s:%s/orders?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	// Migrations must be re-runnable.
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate twice: %v", err)
	}

	return m.Run()
}

func seedForm(t *testing.T, id string) *form.Form {
	t.Helper()
	f := &form.Form{
		ID:       id,
		Title:    "Order form",
		Currency: "EUR",
		Fields: []form.Field{
			{ID: "1", Type: form.FieldProduct, Label: "Ticket", BasePrice: "15,00 €"},
			{ID: "2", Type: form.FieldOption, Label: "Extras", ProductField: "1", Choices: []form.Choice{
				{Text: "VIP", Value: "vip", Price: "5"},
			}},
		},
	}
	require.NoError(t, NewFormRepository(testPool).Upsert(context.Background(), f))
	return f
}

func TestFormRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFormRepository(testPool)
	want := seedForm(t, "form-roundtrip")

	got, err := repo.GetByID(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.Title = "Renamed"
	require.NoError(t, repo.Upsert(ctx, want))
	got, err = repo.GetByID(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, form.ErrNotFound)
}

func TestEntryRepository(t *testing.T) {
	ctx := context.Background()
	seedForm(t, "form-entries")
	repo := NewEntryRepository(testPool)

	e := &form.Entry{ID: "entry-1", FormID: "form-entries", Values: map[string]string{"1.3": "2"}}
	require.NoError(t, repo.Create(ctx, e))
	assert.False(t, e.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, "entry-1")
	require.NoError(t, err)
	assert.Equal(t, e.Values, got.Values)
	assert.Equal(t, "form-entries", got.FormID)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, form.ErrEntryNotFound)
}

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	seedForm(t, "form-snapshots")
	entries := NewEntryRepository(testPool)
	repo := NewSnapshotRepository(testPool)

	for _, id := range []string{"snap-a", "snap-b"} {
		require.NoError(t, entries.Create(ctx, &form.Entry{ID: id, FormID: "form-snapshots"}))
		require.NoError(t, repo.Save(ctx, &summary.Snapshot{
			EntryID: id,
			FormID:  "form-snapshots",
			Version: "0.1",
			Total:   decimal.RequireFromString("12.34"),
			Payload: []byte(`{"rows":{},"v":"0.1"}`),
		}))
	}

	// Saving again replaces the snapshot.
	require.NoError(t, repo.Save(ctx, &summary.Snapshot{
		EntryID: "snap-a",
		FormID:  "form-snapshots",
		Version: "0.1",
		Total:   decimal.RequireFromString("20"),
		Payload: []byte(`{"v":"0.1"}`),
	}))

	got, err := repo.Get(ctx, "snap-a")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(got.Total))
	assert.JSONEq(t, `{"v":"0.1"}`, string(got.Payload))

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, summary.ErrSnapshotNotFound)

	var seen []string
	require.NoError(t, repo.Stream(ctx, func(s *summary.Snapshot) error {
		seen = append(seen, s.EntryID)
		return nil
	}))
	assert.Subset(t, seen, []string{"snap-a", "snap-b"})
}
