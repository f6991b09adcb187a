// Package handler exposes the order summary service over HTTP.
package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/form-order-summary/internal/domain/form"
	"github.com/xenking/form-order-summary/internal/domain/order"
	"github.com/xenking/form-order-summary/internal/domain/summary"
	"github.com/xenking/form-order-summary/pkg/httpmiddleware"
)

// SummaryService renders summaries and manages order snapshots.
type SummaryService interface {
	Render(ctx context.Context, f *form.Form, e *form.Entry, opts summary.RenderOptions) (string, error)
	ContentType(view string) (string, error)
	BuildSnapshot(ctx context.Context, f *form.Form, e *form.Entry) (*summary.Snapshot, error)
	StoreSnapshot(ctx context.Context, snap *summary.Snapshot) error
	SaveSnapshot(ctx context.Context, f *form.Form, e *form.Entry) (*summary.Snapshot, error)
	Snapshot(ctx context.Context, entryID string) (*summary.Snapshot, error)
}

// Handler serves the entry and summary endpoints.
type Handler struct {
	forms     form.Repository
	entries   form.EntryRepository
	summaries SummaryService
	newID     func() string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(forms form.Repository, entries form.EntryRepository, summaries SummaryService) *Handler {
	return &Handler{
		forms:     forms,
		entries:   entries,
		summaries: summaries,
		newID:     uuid.NewString,
	}
}

// Register adds the API routes to mux. submit wraps the entry submission
// route, e.g. with a rate limiter; nil leaves it unwrapped.
func (h *Handler) Register(mux *http.ServeMux, submit httpmiddleware.Middleware) {
	var create http.Handler = http.HandlerFunc(h.CreateEntry)
	if submit != nil {
		create = submit(create)
	}
	mux.Handle("POST /api/forms/{id}/entries", create)
	mux.HandleFunc("GET /api/entries/{id}/summary", h.Summary)
	mux.HandleFunc("GET /api/entries/{id}/order", h.Order)
}

// loadEntry returns an entry together with its form.
func (h *Handler) loadEntry(ctx context.Context, id string) (*form.Form, *form.Entry, error) {
	e, err := h.entries.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := h.forms.GetByID(ctx, e.FormID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "get form of entry %s", id)
	}
	return f, e, nil
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	switch {
	case errors.Is(err, form.ErrNotFound),
		errors.Is(err, form.ErrEntryNotFound),
		errors.Is(err, summary.ErrSnapshotNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, rootMessage(err))
	case errors.Is(err, summary.ErrUnknownView):
		httpmiddleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &vErr):
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, vErr.Error())
	case errors.As(err, new(*requestError)):
		httpmiddleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// rootMessage returns the message of the innermost error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// requestError is a malformed request.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}
