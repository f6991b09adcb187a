package main

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/form-order-summary/internal/domain/order/export"
	"github.com/xenking/form-order-summary/internal/domain/summary"
)

type sliceStreamer struct {
	snapshots []*summary.Snapshot
	err       error
}

func (s sliceStreamer) Stream(ctx context.Context, fn func(*summary.Snapshot) error) error {
	for _, snap := range s.snapshots {
		if err := fn(snap); err != nil {
			return err
		}
	}
	return s.err
}

func testSnapshots(n int) []*summary.Snapshot {
	out := make([]*summary.Snapshot, n)
	for i := range out {
		out[i] = &summary.Snapshot{
			EntryID:   "entry-" + strconv.Itoa(i),
			FormID:    "form",
			Version:   export.SnapshotVersion,
			Total:     decimal.NewFromInt(int64(i)),
			Payload:   []byte(`{"rows":{},"v":"0.1"}`),
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	n, err := dump(context.Background(), sliceStreamer{snapshots: testSnapshots(50)}, &buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	assert.Contains(t, buf.String(),
		`{"entry_id":"entry-7","form_id":"form","version":"0.1","total":"7","created_at":"2024-05-01T12:00:00Z","order":{"rows":{},"v":"0.1"}}`)

	read, err := verify(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 50, read)
}

func TestDump_Errors(t *testing.T) {
	streamErr := errors.New("connection reset")
	bad := testSnapshots(3)
	bad[1].Payload = []byte(`{"v":"7"}`)

	tests := []struct {
		name    string
		src     sliceStreamer
		wantErr error
	}{
		{name: "stream failure", src: sliceStreamer{snapshots: testSnapshots(2), err: streamErr}, wantErr: streamErr},
		{name: "unreadable payload", src: sliceStreamer{snapshots: bad}, wantErr: export.ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := dump(context.Background(), tt.src, &buf, 2)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestDump_WriterError(t *testing.T) {
	diskFull := errors.New("no space left on device")

	n, err := dump(context.Background(), sliceStreamer{snapshots: testSnapshots(3)}, failingWriter{err: diskFull}, 2)
	require.ErrorIs(t, err, diskFull)
	assert.Contains(t, err.Error(), "flush")
	assert.Equal(t, 3, n)
}

func TestDump_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := dump(context.Background(), sliceStreamer{}, &buf, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, buf.String())
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "not json", input: "nope\n", wantErr: "line 1"},
		{name: "missing entry", input: `{"order":{"v":"0.1"}}` + "\n", wantErr: "missing entry_id"},
		{
			name:    "future version",
			input:   `{"entry_id":"a","order":{"v":"0.1"}}` + "\n" + `{"entry_id":"b","order":{"v":"2"}}` + "\n",
			wantErr: "line 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verify(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
