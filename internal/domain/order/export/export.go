// Package export turns an order into projections for display and storage.
package export

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/form-order-summary/internal/domain/order"
)

// CodePanic is recorded when formatting panics instead of returning an error.
const CodePanic = 500

// Config holds formatting options shared by all exporters.
type Config struct {
	// Currency overrides the order currency for money formatting.
	Currency string
}

// Projection is the filtered property map of a single item.
type Projection map[string]any

// Error is an export failure recorded in the output instead of being returned.
type Error struct {
	Message string
	Code    int
}

// Data is the exported shape of an order.
type Data struct {
	// Totals maps a label to a decimal amount, or to a formatted string for
	// "<label>_money" entries. Nil when the exporter drops totals.
	Totals map[string]any
	// Rows holds item projections by group name.
	Rows    map[string][]Projection
	Errors  *Error
	Version string
}

// Group returns the projections of the named group.
func (d Data) Group(name string) []Projection {
	return d.Rows[name]
}

// Formatter fills the rows of an export and may adjust its totals.
type Formatter interface {
	Format(o *order.Order, cfg Config, data *Data) error
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(o *order.Order, cfg Config, data *Data) error

// Format calls f.
func (f FormatterFunc) Format(o *order.Order, cfg Config, data *Data) error {
	return f(o, cfg, data)
}

// Exporter projects one order through one formatter.
type Exporter struct {
	order     *order.Order
	config    Config
	totals    map[string]decimal.Decimal
	formatter Formatter
}

// New returns an exporter whose output only carries the order totals.
func New(o *order.Order, cfg Config) *Exporter {
	return NewWithFormatter(o, cfg, nil)
}

// NewWithFormatter returns an exporter using f to fill rows. The order totals
// are captured immediately.
func NewWithFormatter(o *order.Order, cfg Config, f Formatter) *Exporter {
	return &Exporter{
		order:     o,
		config:    cfg,
		totals:    o.Totals(),
		formatter: f,
	}
}

// Export formats the order and returns the result. Formatting failures,
// including panics, are recorded in Data.Errors.
func (e *Exporter) Export() Data {
	data := Data{Totals: make(map[string]any, len(e.totals))}
	for label, v := range e.totals {
		data.Totals[label] = v
	}
	e.format(&data)
	return data
}

// ExportJSON returns the export encoded as JSON.
func (e *Exporter) ExportJSON() []byte {
	return Encode(e.Export())
}

// ExportWith passes the export to fn and returns its result.
func (e *Exporter) ExportWith(fn func(Data) any) any {
	return fn(e.Export())
}

func (e *Exporter) format(data *Data) {
	if e.formatter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			data.Errors = &Error{Message: fmt.Sprint(r), Code: CodePanic}
		}
	}()
	if err := e.formatter.Format(e.order, e.config, data); err != nil {
		data.Errors = newError(err)
	}
}

type coder interface {
	Code() int
}

func newError(err error) *Error {
	out := &Error{Message: err.Error()}
	var c coder
	if errors.As(err, &c) {
		out.Code = c.Code()
	}
	return out
}

// FilterItemData projects item, drops the excluded keys, merges add and then
// removes every value that is not truthy. Zero amounts and empty strings are
// therefore absent from projections.
func FilterItemData(item *order.Item, exclude []string, add map[string]any) Projection {
	p := Projection(item.ToMap())
	for _, key := range exclude {
		delete(p, key)
	}
	maps.Copy(p, add)
	maps.DeleteFunc(p, func(_ string, v any) bool { return !order.Truthy(v) })
	return p
}

func (d *Data) appendRow(group string, p Projection) {
	if d.Rows == nil {
		d.Rows = make(map[string][]Projection)
	}
	d.Rows[group] = append(d.Rows[group], p)
}

// numericTotals returns the decimal totals sorted by label.
func (d *Data) numericTotals() []string {
	labels := make([]string, 0, len(d.Totals))
	for label, v := range d.Totals {
		if _, ok := v.(decimal.Decimal); ok {
			labels = append(labels, label)
		}
	}
	slices.Sort(labels)
	return labels
}
