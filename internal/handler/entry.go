package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/form-order-summary/internal/domain/currency"
	"github.com/xenking/form-order-summary/internal/domain/form"
	"github.com/xenking/form-order-summary/internal/domain/summary"
)

const maxEntryBody = 1 << 20

// CreateEntry stores a submission for the form in the path and persists its
// order snapshot. The order is built before anything is written, so a
// submission that cannot be priced leaves no entry behind.
//
// Request:  {"currency":"EUR","values":{"1.3":"2","5":"express|9.99"}}
// Response: {"id":"...","version":"0.1"} with 201.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEntryBody+1))
	if err != nil {
		writeError(w, r, badRequest("read body: %v", err))
		return
	}
	if len(body) > maxEntryBody {
		writeError(w, r, badRequest("body exceeds %d bytes", maxEntryBody))
		return
	}
	e, err := decodeEntry(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := h.forms.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = h.newID()
	e.FormID = f.ID

	snap, err := h.summaries.BuildSnapshot(ctx, f, e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.entries.Create(ctx, e); err != nil {
		writeError(w, r, errors.Wrap(err, "create entry"))
		return
	}
	// A failed write here is repaired by Order, which rebuilds missing
	// snapshots from the stored entry.
	if err := h.summaries.StoreSnapshot(ctx, snap); err != nil {
		writeError(w, r, err)
		return
	}

	var out jx.Encoder
	out.ObjStart()
	out.FieldStart("id")
	out.Str(e.ID)
	out.FieldStart("version")
	out.Str(snap.Version)
	out.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(out.Bytes())
}

// decodeEntry reads the submission body. Values may be strings or numbers.
func decodeEntry(body []byte) (*form.Entry, error) {
	e := &form.Entry{Values: make(map[string]string)}

	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "currency":
			s, err := d.Str()
			if err != nil {
				return err
			}
			e.Currency = s
			return nil
		case "values":
			return d.Obj(func(d *jx.Decoder, field string) error {
				switch d.Next() {
				case jx.String:
					s, err := d.Str()
					e.Values[field] = s
					return err
				case jx.Number:
					n, err := d.Num()
					e.Values[field] = n.String()
					return err
				case jx.Bool:
					b, err := d.Bool()
					e.Values[field] = strconv.FormatBool(b)
					return err
				case jx.Null:
					return d.Null()
				default:
					return errors.Errorf("value of %q must be a string or number", field)
				}
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, badRequest("decode entry: %v", err)
	}
	if e.Currency != "" && !currency.Valid(e.Currency) {
		return nil, badRequest("unsupported currency %q", e.Currency)
	}
	return e, nil
}

// Summary renders the order summary of an entry. Query parameters: view
// (html or text), choice_text, admin_labels and receipt as booleans.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	opts := summary.RenderOptions{
		View:           q.Get("view"),
		UseChoiceText:  queryBool(q.Get("choice_text")),
		UseAdminLabels: queryBool(q.Get("admin_labels")),
		Receipt:        queryBool(q.Get("receipt")),
	}
	if opts.View == "" {
		opts.View = summary.ViewHTML
	}
	contentType, err := h.summaries.ContentType(opts.View)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, e, err := h.loadEntry(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.summaries.Render(ctx, f, e, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = io.WriteString(w, out)
}

// Order returns the persisted order snapshot of an entry. An entry without a
// snapshot gets one built and saved.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	snap, err := h.summaries.Snapshot(ctx, id)
	if errors.Is(err, summary.ErrSnapshotNotFound) {
		snap, err = h.rebuildSnapshot(ctx, id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(snap.Payload)
}

func queryBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (h *Handler) rebuildSnapshot(ctx context.Context, entryID string) (*summary.Snapshot, error) {
	f, e, err := h.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	snap, err := h.summaries.SaveSnapshot(ctx, f, e)
	if err != nil {
		return nil, errors.Wrapf(err, "rebuild snapshot of %s", entryID)
	}
	zctx.From(ctx).Info("Rebuilt missing order snapshot", zap.String("entry_id", entryID))
	return snap, nil
}
