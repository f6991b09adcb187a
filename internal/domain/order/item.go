package order

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"

	"github.com/xenking/form-order-summary/internal/domain/currency"
)

// Groups every item belongs to unless told otherwise.
const (
	GroupBody   = "body"
	GroupFooter = "footer"
)

// Item property keys. These are the only keys accepted by NewItem, Override,
// Get and Set, and the keys produced by ToMap.
const (
	PropID          = "id"
	PropName        = "name"
	PropDescription = "description"
	PropPrice       = "price"
	PropQuantity    = "quantity"
	PropSubTotal    = "sub_total"
	PropOptions     = "options"
	PropBelongsTo   = "belongs_to"
	PropType        = "type"
	PropCurrency    = "currency"
	PropIsDiscount  = "is_discount"
	PropIsShipping  = "is_shipping"
	PropIsTrial     = "is_trial"
	PropIsSetup     = "is_setup"
	PropIsLineItem  = "is_line_item"
	PropIsRecurring = "is_recurring"
)

var properties = []string{
	PropName, PropDescription, PropPrice, PropQuantity, PropSubTotal, PropOptions,
	PropBelongsTo, PropType, PropCurrency, PropIsDiscount, PropIsShipping,
	PropIsTrial, PropIsSetup, PropIsLineItem, PropIsRecurring,
}

// ErrUnknownProperty is returned by Item.Set for keys outside the item schema.
var ErrUnknownProperty = errors.New("unknown item property")

// ValidationError describes item data that does not fit the item schema.
type ValidationError struct {
	ItemID string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %s: %s: %s", e.ItemID, e.Field, e.Reason)
}

// Kind discriminates the item variants an order can hold.
type Kind uint8

const (
	// KindOrderItem is a plain priced entry: shipping, discounts, fees.
	KindOrderItem Kind = iota
	// KindFormProduct is a product whose base price includes its selected options.
	KindFormProduct
)

func (k Kind) String() string {
	switch k {
	case KindOrderItem:
		return "order_item"
	case KindFormProduct:
		return "form_product"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Is reports whether an item of kind k can stand in for target. Every kind is
// an order item; other kinds only match themselves.
func (k Kind) Is(target Kind) bool {
	return target == KindOrderItem || k == target
}

func (k Kind) valid() bool {
	return k == KindOrderItem || k == KindFormProduct
}

// Option is a priced choice attached to a product.
type Option struct {
	Price       string `mapstructure:"price"`
	OptionLabel string `mapstructure:"option_label"`
	OptionName  string `mapstructure:"option_name"`
}

// Item is a single priced line of an order.
type Item struct {
	id       string
	kind     Kind
	subTotal decimal.Decimal

	Type        string
	Name        string
	Description string
	// Price holds the amount as submitted; it may be localized ("1.234,50").
	Price       string
	Quantity    int
	Options     []Option
	BelongsTo   string
	Currency    string
	IsDiscount  bool
	IsShipping  bool
	IsTrial     bool
	IsSetup     bool
	IsLineItem  bool
	IsRecurring bool
}

// itemData is the decodable form of the item schema.
type itemData struct {
	Name        string          `mapstructure:"name"`
	Description string          `mapstructure:"description"`
	Price       string          `mapstructure:"price"`
	Quantity    int             `mapstructure:"quantity" validate:"gte=0"`
	SubTotal    decimal.Decimal `mapstructure:"sub_total"`
	Options     []Option        `mapstructure:"options"`
	BelongsTo   string          `mapstructure:"belongs_to" validate:"required"`
	Type        string          `mapstructure:"type" validate:"required"`
	Currency    string          `mapstructure:"currency" validate:"omitempty,iso4217"`
	IsDiscount  bool            `mapstructure:"is_discount"`
	IsShipping  bool            `mapstructure:"is_shipping"`
	IsTrial     bool            `mapstructure:"is_trial"`
	IsSetup     bool            `mapstructure:"is_setup"`
	IsLineItem  bool            `mapstructure:"is_line_item"`
	IsRecurring bool            `mapstructure:"is_recurring"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewItem builds an item of the given kind from a property map. Keys outside
// the item schema are rejected with a *ValidationError. A nil map yields an
// item with default properties.
func NewItem(kind Kind, id string, data map[string]any) (*Item, error) {
	if !kind.valid() {
		return nil, errors.Errorf("unsupported item kind %s", kind)
	}
	item := &Item{
		id:        id,
		kind:      kind,
		Type:      kind.String(),
		Price:     "0",
		Quantity:  1,
		BelongsTo: GroupBody,
	}
	if err := item.merge(data, PropID); err != nil {
		return nil, err
	}
	return item, nil
}

// NewOrderItem is shorthand for NewItem(KindOrderItem, ...).
func NewOrderItem(id string, data map[string]any) (*Item, error) {
	return NewItem(KindOrderItem, id, data)
}

// NewFormProduct is shorthand for NewItem(KindFormProduct, ...).
func NewFormProduct(id string, data map[string]any) (*Item, error) {
	return NewItem(KindFormProduct, id, data)
}

// ID returns the identifier the item was created with.
func (i *Item) ID() string { return i.id }

// Kind returns the item variant.
func (i *Item) Kind() Kind { return i.kind }

// SubTotal returns the sub-total computed by the last call to Total.
func (i *Item) SubTotal() decimal.Decimal { return i.subTotal }

// BasePrice returns the unit price as a number, read with the item's currency
// conventions. Form products add the price of every attached option; options
// without a usable price contribute nothing.
func (i *Item) BasePrice() decimal.Decimal {
	cur := currency.Lookup(i.Currency)
	price, _ := cur.ToNumber(i.Price)
	if i.kind != KindFormProduct {
		return price
	}

	optionsTotal := decimal.Zero
	for _, o := range i.Options {
		p, _ := cur.ToNumber(o.Price)
		optionsTotal = optionsTotal.Add(p)
	}
	return price.Add(optionsTotal)
}

// Total recomputes and stores the sub-total as base price times quantity.
func (i *Item) Total() decimal.Decimal {
	i.subTotal = i.BasePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
	return i.subTotal
}

// Override merges data into the item. The id and currency are never
// overwritten, nor are any keys listed in except. Unknown keys are rejected
// and leave the item untouched.
func (i *Item) Override(data map[string]any, except ...string) error {
	return i.merge(data, append([]string{PropID, PropCurrency}, except...)...)
}

// Get returns the value stored under key. Unknown keys report false.
func (i *Item) Get(key string) (any, bool) {
	switch key {
	case PropID:
		return i.id, true
	case PropName:
		return i.Name, true
	case PropDescription:
		return i.Description, true
	case PropPrice:
		return i.Price, true
	case PropQuantity:
		return i.Quantity, true
	case PropSubTotal:
		return i.subTotal, true
	case PropOptions:
		return i.Options, true
	case PropBelongsTo:
		return i.BelongsTo, true
	case PropType:
		return i.Type, true
	case PropCurrency:
		return i.Currency, true
	case PropIsDiscount:
		return i.IsDiscount, true
	case PropIsShipping:
		return i.IsShipping, true
	case PropIsTrial:
		return i.IsTrial, true
	case PropIsSetup:
		return i.IsSetup, true
	case PropIsLineItem:
		return i.IsLineItem, true
	case PropIsRecurring:
		return i.IsRecurring, true
	default:
		return nil, false
	}
}

// Set stores value under key, converting it to the property's type.
func (i *Item) Set(key string, value any) error {
	if key == PropID || !slices.Contains(properties, key) {
		return errors.Wrap(ErrUnknownProperty, key)
	}
	return i.merge(map[string]any{key: value})
}

// ToMap recomputes the total and returns every property keyed by name.
func (i *Item) ToMap() map[string]any {
	i.Total()
	m := make(map[string]any, len(properties)+1)
	m[PropID] = i.id
	for _, key := range properties {
		m[key], _ = i.Get(key)
	}
	return m
}

func (i *Item) merge(values map[string]any, except ...string) error {
	if len(values) == 0 {
		return nil
	}

	var unknown []string
	filtered := make(map[string]any, len(values))
	for key, v := range values {
		switch {
		case slices.Contains(except, key):
		case slices.Contains(properties, key):
			filtered[key] = v
		default:
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return &ValidationError{
			ItemID: i.id,
			Field:  strings.Join(unknown, ", "),
			Reason: "unknown property",
		}
	}

	d := i.data()
	if _, ok := filtered[PropOptions]; ok {
		d.Options = nil
	}
	if err := decode(filtered, &d); err != nil {
		return &ValidationError{ItemID: i.id, Field: "data", Reason: err.Error()}
	}
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{ItemID: i.id, Field: verrs[0].Field(), Reason: "failed " + verrs[0].Tag()}
		}
		return errors.Wrap(err, "validate item")
	}
	i.apply(d)
	return nil
}

func (i *Item) data() itemData {
	return itemData{
		Name:        i.Name,
		Description: i.Description,
		Price:       i.Price,
		Quantity:    i.Quantity,
		SubTotal:    i.subTotal,
		Options:     slices.Clone(i.Options),
		BelongsTo:   i.BelongsTo,
		Type:        i.Type,
		Currency:    i.Currency,
		IsDiscount:  i.IsDiscount,
		IsShipping:  i.IsShipping,
		IsTrial:     i.IsTrial,
		IsSetup:     i.IsSetup,
		IsLineItem:  i.IsLineItem,
		IsRecurring: i.IsRecurring,
	}
}

func (i *Item) apply(d itemData) {
	i.Name = d.Name
	i.Description = d.Description
	i.Price = d.Price
	i.Quantity = d.Quantity
	i.subTotal = d.SubTotal
	i.Options = d.Options
	i.BelongsTo = d.BelongsTo
	i.Type = d.Type
	i.Currency = d.Currency
	i.IsDiscount = d.IsDiscount
	i.IsShipping = d.IsShipping
	i.IsTrial = d.IsTrial
	i.IsSetup = d.IsSetup
	i.IsLineItem = d.IsLineItem
	i.IsRecurring = d.IsRecurring
}

func decode(input map[string]any, out *itemData) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decimalHook,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "create decoder")
	}
	return dec.Decode(input)
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return nil, errors.Errorf("cannot convert %T to decimal", data)
	}
}
