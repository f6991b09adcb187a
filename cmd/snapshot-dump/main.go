package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/form-order-summary/internal/repository"
)

func main() {
	var (
		databaseURL string
		outPath     string
		verifyPath  string
		workers     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outPath, "out", "snapshots.jsonl.gz", "path of the gzip-compressed JSON lines dump")
	flag.StringVar(&verifyPath, "verify", "", "check an existing dump instead of writing one")
	flag.IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "number of snapshot encoders")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if verifyPath != "" {
		if err := runVerify(ctx, verifyPath); err != nil {
			slog.Error("verify failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	if err := runDump(ctx, databaseURL, outPath, workers); err != nil {
		slog.Error("snapshot dump failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("snapshot dump completed successfully", slog.String("path", outPath))
}

func runDump(ctx context.Context, databaseURL, outPath string, workers int) (err error) {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", outPath)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", outPath)
		}
	}()

	gz := pgzip.NewWriter(f)
	n, err := dump(ctx, repository.NewSnapshotRepository(pool), gz, workers)
	if err != nil {
		_ = gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush gzip")
	}

	slog.Info("snapshots written", slog.Int("count", n))
	return nil
}

func runVerify(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	n, err := verify(ctx, gz)
	if err != nil {
		return err
	}

	slog.Info("dump verified", slog.String("path", path), slog.Int("snapshots", n))
	return nil
}
