package form

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/form-order-summary/internal/domain/currency"
	"github.com/xenking/form-order-summary/internal/domain/order"
)

// SettingCurrency is the settings key holding the site-wide default currency.
const SettingCurrency = "currency"

// Input suffixes of a product field with separate name, price and quantity
// inputs.
const (
	inputName     = ".1"
	inputPrice    = ".2"
	inputQuantity = ".3"
)

// Settings is a read-only key/value lookup.
type Settings interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// BuildOptions controls how names and labels are taken from the form.
type BuildOptions struct {
	// UseChoiceText names items after the choice text instead of its value.
	UseChoiceText bool
	// UseAdminLabels labels options with the field admin label when present.
	UseAdminLabels bool
}

// Factory builds orders from entries.
type Factory struct {
	settings Settings
}

// NewFactory creates a Factory that reads the default currency from settings.
// settings may be nil.
func NewFactory(settings Settings) *Factory {
	return &Factory{settings: settings}
}

// Build creates the order for entry. Products become line items in the body
// group, shipping becomes a line item in the footer group.
func (f *Factory) Build(ctx context.Context, form *Form, entry *Entry, opts BuildOptions) (*order.Order, error) {
	code, err := f.currency(ctx, form, entry)
	if err != nil {
		return nil, err
	}
	o := order.New(code)

	for _, field := range form.Fields {
		var (
			item *order.Item
			err  error
		)
		switch field.Type {
		case FieldProduct:
			item, err = f.product(form, field, entry, opts)
		case FieldShipping:
			item, err = f.shipping(field, entry, opts)
		default:
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "build %s field %s", field.Type, field.ID)
		}
		if item != nil {
			o.AddItem(item)
		}
	}

	return o, nil
}

func (f *Factory) currency(ctx context.Context, form *Form, entry *Entry) (string, error) {
	switch {
	case entry.Currency != "":
		return entry.Currency, nil
	case form.Currency != "":
		return form.Currency, nil
	case f.settings != nil:
		code, ok, err := f.settings.Get(ctx, SettingCurrency)
		if err != nil {
			return "", errors.Wrap(err, "lookup default currency")
		}
		if ok && currency.Valid(code) {
			return code, nil
		}
	}
	return currency.DefaultCode, nil
}

func (f *Factory) product(form *Form, field Field, entry *Entry, opts BuildOptions) (*order.Item, error) {
	var name, price string
	quantity := 1

	if len(field.Choices) > 0 {
		raw := entry.Values[field.ID]
		if raw == "" {
			return nil, nil
		}
		name, price = choiceValue(field, raw, opts.UseChoiceText)
	} else {
		name = cmp.Or(entry.Values[field.ID+inputName], field.Label)
		price = cmp.Or(entry.Values[field.ID+inputPrice], field.BasePrice)
	}

	if q, ok := entry.Values[field.ID+inputQuantity]; ok {
		quantity = parseQuantity(q)
	}

	var options []any
	for _, linked := range form.Fields {
		if linked.ProductField != field.ID {
			continue
		}
		switch linked.Type {
		case FieldQuantity:
			if q := strings.TrimSpace(entry.Values[linked.ID]); q != "" {
				quantity = parseQuantity(q)
			}
		case FieldOption:
			for _, raw := range fieldValues(entry, linked.ID) {
				optName, optPrice := choiceValue(linked, raw, opts.UseChoiceText)
				options = append(options, map[string]any{
					"option_name":  optName,
					"option_label": linked.DisplayLabel(opts.UseAdminLabels),
					"price":        optPrice,
				})
			}
		}
	}

	if quantity <= 0 {
		return nil, nil
	}

	return order.NewFormProduct(field.ID, map[string]any{
		order.PropName:       name,
		order.PropPrice:      price,
		order.PropQuantity:   quantity,
		order.PropOptions:    options,
		order.PropIsLineItem: true,
		order.PropBelongsTo:  order.GroupBody,
	})
}

func (f *Factory) shipping(field Field, entry *Entry, opts BuildOptions) (*order.Item, error) {
	raw := entry.Values[field.ID]
	name, price := field.Label, cmp.Or(raw, field.BasePrice)
	if len(field.Choices) > 0 {
		if raw == "" {
			return nil, nil
		}
		name, price = choiceValue(field, raw, opts.UseChoiceText)
	}
	if price == "" {
		return nil, nil
	}

	return order.NewOrderItem(field.ID, map[string]any{
		order.PropName:       name,
		order.PropPrice:      price,
		order.PropIsShipping: true,
		order.PropIsLineItem: true,
		order.PropBelongsTo:  order.GroupFooter,
	})
}

// choiceValue splits a submitted "value|price" pair. A missing price is taken
// from the matching choice.
func choiceValue(field Field, raw string, useText bool) (name, price string) {
	value, price, _ := strings.Cut(raw, "|")
	name = value
	for _, c := range field.Choices {
		if c.Value != value {
			continue
		}
		if useText && c.Text != "" {
			name = c.Text
		}
		if price == "" {
			price = c.Price
		}
		break
	}
	return name, price
}

// fieldValues returns the non-empty values submitted for a field, either under
// its id or under "<id>.N" inputs in input order.
func fieldValues(entry *Entry, id string) []string {
	if v := entry.Values[id]; v != "" {
		return []string{v}
	}

	type input struct {
		n     int
		value string
	}
	var inputs []input
	for key, v := range entry.Values {
		suffix, ok := strings.CutPrefix(key, id+".")
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		inputs = append(inputs, input{n: n, value: v})
	}
	slices.SortFunc(inputs, func(a, b input) int { return cmp.Compare(a.n, b.n) })

	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = in.value
	}
	return out
}

func parseQuantity(s string) int {
	q, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || q < 0 {
		return 0
	}
	return q
}
