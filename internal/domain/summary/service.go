// Package summary renders order summaries for form entries and keeps the
// persisted order snapshot of each entry.
package summary

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/form-order-summary/internal/domain/form"
	"github.com/xenking/form-order-summary/internal/domain/order"
	"github.com/xenking/form-order-summary/internal/domain/order/export"
)

var (
	// ErrUnknownView is returned when a render names an unregistered view.
	ErrUnknownView = errors.New("unknown view")
	// ErrSnapshotNotFound is returned when an entry has no persisted order.
	ErrSnapshotNotFound = errors.New("order snapshot not found")
)

// OrderBuilder builds the order of an entry.
type OrderBuilder interface {
	Build(ctx context.Context, f *form.Form, e *form.Entry, opts form.BuildOptions) (*order.Order, error)
}

// Snapshot is the persisted save-entry export of an entry.
type Snapshot struct {
	EntryID string
	FormID  string
	Version string
	// Total is the order total at the time of the snapshot.
	Total     decimal.Decimal
	Payload   []byte
	CreatedAt time.Time
}

// SnapshotRepository persists order snapshots.
type SnapshotRepository interface {
	Save(ctx context.Context, s *Snapshot) error
	Get(ctx context.Context, entryID string) (*Snapshot, error)
}

// RenderOptions controls a single render.
type RenderOptions struct {
	// View names the registered view. Empty means ViewHTML.
	View           string
	UseChoiceText  bool
	UseAdminLabels bool
	Receipt        bool
}

// ExporterFunc creates the exporter of an order.
type ExporterFunc func(o *order.Order, cfg export.Config) *export.Exporter

// Option configures a Service.
type Option func(*Service)

// WithDetailsExporter replaces the entry-details exporter behind Render.
func WithDetailsExporter(fn ExporterFunc) Option {
	return func(s *Service) {
		s.details = fn
	}
}

// Service renders summaries and stores snapshots.
type Service struct {
	builder   OrderBuilder
	snapshots SnapshotRepository
	views     map[string]View
	details   ExporterFunc

	renders      metric.Int64Counter
	exportErrors metric.Int64Counter
}

// NewService creates a Service with the html and text views registered.
func NewService(builder OrderBuilder, snapshots SnapshotRepository, meter metric.Meter, opts ...Option) (*Service, error) {
	renders, err := meter.Int64Counter("order_summary.renders",
		metric.WithDescription("Order summaries rendered"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create renders counter")
	}
	exportErrors, err := meter.Int64Counter("order_summary.export_errors",
		metric.WithDescription("Order exports that recorded an error"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create export errors counter")
	}

	s := &Service{
		builder:   builder,
		snapshots: snapshots,
		views: map[string]View{
			ViewHTML: HTMLView(),
			ViewText: TextView(),
		},
		details:      export.NewEntryDetails,
		renders:      renders,
		exportErrors: exportErrors,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterView adds or replaces a named view.
func (s *Service) RegisterView(name string, v View) {
	s.views[name] = v
}

// ContentType returns the content type of the named view.
func (s *Service) ContentType(name string) (string, error) {
	v, err := s.view(name)
	if err != nil {
		return "", err
	}
	return v.ContentType(), nil
}

// Render builds the order of entry and renders it with the requested view.
// The result is empty when the order has no body items or its export failed.
func (s *Service) Render(ctx context.Context, f *form.Form, e *form.Entry, opts RenderOptions) (string, error) {
	name := opts.View
	if name == "" {
		name = ViewHTML
	}
	v, err := s.view(name)
	if err != nil {
		return "", err
	}

	o, err := s.builder.Build(ctx, f, e, form.BuildOptions{
		UseChoiceText:  opts.UseChoiceText,
		UseAdminLabels: opts.UseAdminLabels,
	})
	if err != nil {
		return "", errors.Wrap(err, "build order")
	}

	data := s.details(o, export.Config{}).Export()
	if data.Errors != nil {
		s.recordExportError(ctx, e.ID, "entry_details", data.Errors)
		return "", nil
	}
	if len(data.Group(order.GroupBody)) == 0 {
		return "", nil
	}

	var b strings.Builder
	if err := v.Render(&b, newModel(o.GroupNames(), data, opts.Receipt)); err != nil {
		return "", errors.Wrapf(err, "render %s view", name)
	}
	s.renders.Add(ctx, 1, metric.WithAttributes(attribute.String("view", name)))
	return b.String(), nil
}

// SaveSnapshot builds the snapshot of entry and persists it.
func (s *Service) SaveSnapshot(ctx context.Context, f *form.Form, e *form.Entry) (*Snapshot, error) {
	snap, err := s.BuildSnapshot(ctx, f, e)
	if err != nil {
		return nil, err
	}
	if err := s.StoreSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// BuildSnapshot builds the order of entry and returns its save-entry export
// without persisting it. The entry id must already be assigned.
func (s *Service) BuildSnapshot(ctx context.Context, f *form.Form, e *form.Entry) (*Snapshot, error) {
	o, err := s.builder.Build(ctx, f, e, form.BuildOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "build order")
	}

	data := export.NewSaveEntry(o, export.Config{}).Export()
	if data.Errors != nil {
		s.recordExportError(ctx, e.ID, "save_entry", data.Errors)
	}

	return &Snapshot{
		EntryID: e.ID,
		FormID:  f.ID,
		Version: data.Version,
		Total:   o.Totals()[order.LabelTotal],
		Payload: export.Encode(data),
	}, nil
}

// StoreSnapshot persists a snapshot made by BuildSnapshot.
func (s *Service) StoreSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return errors.Wrap(err, "save snapshot")
	}
	return nil
}

// Snapshot returns the persisted snapshot of entryID after checking that its
// payload is readable.
func (s *Service) Snapshot(ctx context.Context, entryID string) (*Snapshot, error) {
	snap, err := s.snapshots.Get(ctx, entryID)
	if err != nil {
		return nil, errors.Wrap(err, "get snapshot")
	}
	if _, err := export.DecodeSnapshot(snap.Payload); err != nil {
		return nil, errors.Wrapf(err, "decode snapshot %s", entryID)
	}
	return snap, nil
}

func (s *Service) view(name string) (View, error) {
	v, ok := s.views[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownView, name)
	}
	return v, nil
}

func (s *Service) recordExportError(ctx context.Context, entryID, exporter string, e *export.Error) {
	zctx.From(ctx).Warn("Order export failed",
		zap.String("entry_id", entryID),
		zap.String("exporter", exporter),
		zap.String("error", e.Message),
		zap.Int("code", e.Code),
	)
	s.exportErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("exporter", exporter)))
}
