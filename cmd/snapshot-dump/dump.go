package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/form-order-summary/internal/domain/order/export"
	"github.com/xenking/form-order-summary/internal/domain/summary"
)

const progressEvery = 10_000

// streamer is implemented by repository.SnapshotRepository.
type streamer interface {
	Stream(ctx context.Context, fn func(*summary.Snapshot) error) error
}

// dump writes every snapshot of src to w as one JSON object per line. Rows are
// read by one goroutine, checked and encoded by workers and written by another,
// so line order is not the database order.
func dump(ctx context.Context, src streamer, w io.Writer, workers int) (int, error) {
	workers = max(workers, 1)
	snapshots := make(chan *summary.Snapshot, workers*4)
	lines := make(chan []byte, workers*4)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(snapshots)
		return src.Stream(ctx, func(s *summary.Snapshot) error {
			select {
			case snapshots <- s:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	encoders, encodeCtx := errgroup.WithContext(ctx)
	for range workers {
		encoders.Go(func() error {
			for s := range snapshots {
				line, err := encodeLine(s)
				if err != nil {
					return err
				}
				select {
				case lines <- line:
				case <-encodeCtx.Done():
					return encodeCtx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(lines)
		return encoders.Wait()
	})

	var written int
	g.Go(func() error {
		bw := bufio.NewWriter(w)
		for line := range lines {
			if _, err := bw.Write(line); err != nil {
				return errors.Wrap(err, "write line")
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("dump progress", slog.Int("written", written))
			}
		}
		if err := bw.Flush(); err != nil {
			return errors.Wrap(err, "flush")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return written, err
	}
	return written, nil
}

// encodeLine checks that the payload is a readable snapshot and encodes the
// dump line of s, newline included.
func encodeLine(s *summary.Snapshot) ([]byte, error) {
	if _, err := export.DecodeSnapshot(s.Payload); err != nil {
		return nil, errors.Wrapf(err, "snapshot %s", s.EntryID)
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("entry_id")
	e.Str(s.EntryID)
	e.FieldStart("form_id")
	e.Str(s.FormID)
	e.FieldStart("version")
	e.Str(s.Version)
	e.FieldStart("total")
	e.Str(s.Total.String())
	e.FieldStart("created_at")
	e.Str(s.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("order")
	e.Raw(s.Payload)
	e.ObjEnd()

	return append(e.Bytes(), '\n'), nil
}

// verify reads a dump and checks that every line carries a readable snapshot.
// It returns the number of lines read.
func verify(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var n int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		n++
		if err := verifyLine(scanner.Bytes()); err != nil {
			return n, errors.Wrapf(err, "line %d", n)
		}
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrap(err, "scan dump")
	}
	return n, nil
}

func verifyLine(line []byte) error {
	var (
		entryID string
		payload jx.Raw
	)
	err := jx.DecodeBytes(line).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "entry_id":
			s, err := d.Str()
			entryID = s
			return err
		case "order":
			raw, err := d.Raw()
			payload = raw
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return errors.Wrap(err, "decode line")
	}
	if entryID == "" {
		return errors.New("missing entry_id")
	}
	if _, err := export.DecodeSnapshot(payload); err != nil {
		return errors.Wrapf(err, "snapshot %s", entryID)
	}
	return nil
}
