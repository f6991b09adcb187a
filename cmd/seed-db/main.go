package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/form-order-summary/internal/domain/currency"
	"github.com/xenking/form-order-summary/internal/domain/form"
	"github.com/xenking/form-order-summary/internal/repository"
	"github.com/xenking/form-order-summary/internal/settings"
)

type options struct {
	databaseURL       string
	formsFile         string
	redisAddr         string
	settingsNamespace string
	defaultCurrency   string
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.formsFile, "forms-file", "db/seed/forms.json", "path to forms JSON file")
	flag.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for the settings store (or REDIS_ADDR env)")
	flag.StringVar(&opts.settingsNamespace, "settings-namespace", "orders:settings", "Redis key prefix of settings")
	flag.StringVar(&opts.defaultCurrency, "default-currency", "", "site-wide default currency to store in Redis")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.redisAddr == "" {
		opts.redisAddr = os.Getenv("REDIS_ADDR")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	forms, err := readForms(opts.formsFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewFormRepository(pool)
	slog.Info("upserting forms", slog.Int("count", len(forms)))
	for _, f := range forms {
		if err := repo.Upsert(ctx, f); err != nil {
			return errors.Wrapf(err, "upsert form %s", f.ID)
		}
		slog.Info("upserted form", slog.String("id", f.ID), slog.String("title", f.Title))
	}

	if opts.defaultCurrency != "" {
		if err := seedCurrency(ctx, opts); err != nil {
			return errors.Wrap(err, "seed default currency")
		}
	}

	return nil
}

// readForms loads and checks the forms file.
func readForms(path string) ([]*form.Form, error) {
	slog.Info("reading forms file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read forms file")
	}

	var forms []*form.Form
	if err := json.Unmarshal(data, &forms); err != nil {
		return nil, errors.Wrap(err, "parse forms JSON")
	}

	seen := make(map[string]struct{}, len(forms))
	for i, f := range forms {
		if f.ID == "" {
			return nil, errors.Errorf("form %d: missing id", i)
		}
		if _, ok := seen[f.ID]; ok {
			return nil, errors.Errorf("form %s: duplicate id", f.ID)
		}
		seen[f.ID] = struct{}{}
		if f.Currency != "" && !currency.Valid(f.Currency) {
			return nil, errors.Errorf("form %s: unsupported currency %q", f.ID, f.Currency)
		}
	}
	return forms, nil
}

func seedCurrency(ctx context.Context, opts options) error {
	if !currency.Valid(opts.defaultCurrency) {
		return errors.Errorf("unsupported currency %q", opts.defaultCurrency)
	}
	if opts.redisAddr == "" {
		return errors.New("redis address is required to store settings")
	}

	rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
	defer func() { _ = rdb.Close() }()

	store := settings.NewRedis(rdb, opts.settingsNamespace)
	if err := store.Set(ctx, form.SettingCurrency, opts.defaultCurrency); err != nil {
		return err
	}

	slog.Info("stored setting",
		slog.String("key", store.Key(form.SettingCurrency)),
		slog.String("value", opts.defaultCurrency),
	)
	return nil
}
