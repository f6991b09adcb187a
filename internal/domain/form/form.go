// Package form holds form definitions, submitted entries and the factory that
// builds an order from them.
package form

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested form does not exist.
	ErrNotFound = errors.New("form not found")
	// ErrEntryNotFound is returned when a requested entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")
)

// FieldType enumerates the pricing fields that contribute to an order.
type FieldType string

const (
	// FieldProduct is a product, either with name/price/quantity inputs or a
	// list of priced choices.
	FieldProduct FieldType = "product"
	// FieldOption adds priced choices to the product it points at.
	FieldOption FieldType = "option"
	// FieldQuantity overrides the quantity of the product it points at.
	FieldQuantity FieldType = "quantity"
	// FieldShipping adds a shipping charge to the order footer.
	FieldShipping FieldType = "shipping"
)

// Form is a form definition.
type Form struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Currency string  `json:"currency,omitempty"`
	Fields   []Field `json:"fields"`
}

// Field is a single pricing field of a form.
type Field struct {
	ID         string    `json:"id"`
	Type       FieldType `json:"type"`
	Label      string    `json:"label"`
	AdminLabel string    `json:"adminLabel,omitempty"`
	// ProductField links option and quantity fields to their product.
	ProductField string   `json:"productField,omitempty"`
	BasePrice    string   `json:"basePrice,omitempty"`
	Choices      []Choice `json:"choices,omitempty"`
}

// Choice is a selectable value of a field.
type Choice struct {
	Text  string `json:"text"`
	Value string `json:"value"`
	Price string `json:"price,omitempty"`
}

// Entry is a submission of a form.
type Entry struct {
	ID        string
	FormID    string
	Currency  string
	Values    map[string]string
	CreatedAt time.Time
}

// DisplayLabel returns the admin label when requested and set, else the label.
func (f Field) DisplayLabel(admin bool) string {
	if admin && f.AdminLabel != "" {
		return f.AdminLabel
	}
	return f.Label
}

// Field returns the field with the given id.
func (f *Form) Field(id string) (Field, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// Repository provides access to form definitions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Form, error)
}

// EntryRepository provides persistence for entries.
type EntryRepository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id string) (*Entry, error)
}
