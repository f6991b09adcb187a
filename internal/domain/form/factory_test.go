package form

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/form-order-summary/internal/domain/order"
)

// --- Mock implementations ---

type mockSettings struct {
	values map[string]string
	err    error
}

func (m *mockSettings) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

// --- Helpers ---

func newTestForm() *Form {
	return &Form{
		ID:    "f1",
		Title: "Shop",
		Fields: []Field{
			{ID: "1", Type: FieldProduct, Label: "T-Shirt", BasePrice: "$10.00"},
			{ID: "2", Type: FieldOption, Label: "Extras", AdminLabel: "extras_admin", ProductField: "1",
				Choices: []Choice{
					{Text: "Gift wrap", Value: "wrap", Price: "2.50"},
					{Text: "Card", Value: "card", Price: "1.00"},
				}},
			{ID: "3", Type: FieldProduct, Label: "Plan",
				Choices: []Choice{
					{Text: "Basic plan", Value: "basic", Price: "5"},
					{Text: "Pro plan", Value: "pro", Price: "15"},
				}},
			{ID: "4", Type: FieldQuantity, Label: "How many plans", ProductField: "3"},
			{ID: "5", Type: FieldShipping, Label: "Shipping",
				Choices: []Choice{
					{Text: "Express", Value: "express", Price: "9.99"},
				}},
		},
	}
}

func totalOf(t *testing.T, o *order.Order, label string) decimal.Decimal {
	t.Helper()
	v, ok := o.Totals()[label]
	require.True(t, ok)
	return v
}

// --- Tests ---

func TestFactory_Build(t *testing.T) {
	entry := &Entry{
		ID:     "e1",
		FormID: "f1",
		Values: map[string]string{
			"1.1": "T-Shirt",
			"1.2": "$10.00",
			"1.3": "2",
			"2.2": "card|1.00",
			"2.1": "wrap|2.50",
			"3":   "pro|15",
			"4":   "3",
			"5":   "express|9.99",
		},
	}

	o, err := NewFactory(nil).Build(context.Background(), newTestForm(), entry, BuildOptions{
		UseChoiceText:  true,
		UseAdminLabels: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", o.Currency())

	shirt, ok := o.Item("1")
	require.True(t, ok)
	assert.Equal(t, order.KindFormProduct, shirt.Kind())
	assert.True(t, shirt.IsLineItem)
	assert.Equal(t, 2, shirt.Quantity)
	require.Len(t, shirt.Options, 2)
	assert.Equal(t, order.Option{Price: "2.50", OptionLabel: "extras_admin", OptionName: "Gift wrap"}, shirt.Options[0])
	assert.Equal(t, "Card", shirt.Options[1].OptionName)
	assert.True(t, decimal.RequireFromString("27").Equal(shirt.Total()))

	plan, ok := o.Item("3")
	require.True(t, ok)
	assert.Equal(t, "Pro plan", plan.Name)
	assert.Equal(t, 3, plan.Quantity)

	shipping, ok := o.Item("5")
	require.True(t, ok)
	assert.True(t, shipping.IsShipping)
	assert.Equal(t, order.GroupFooter, shipping.BelongsTo)
	assert.Equal(t, "Express", shipping.Name)

	assert.True(t, decimal.RequireFromString("72").Equal(totalOf(t, o, order.LabelSubTotal)))
	assert.True(t, decimal.RequireFromString("81.99").Equal(totalOf(t, o, order.LabelTotal)))
}

func TestFactory_BuildUsesValuesWithoutChoiceText(t *testing.T) {
	entry := &Entry{Values: map[string]string{"3": "basic", "1.3": "0"}}

	o, err := NewFactory(nil).Build(context.Background(), newTestForm(), entry, BuildOptions{})
	require.NoError(t, err)

	_, ok := o.Item("1")
	assert.False(t, ok, "zero quantity products are skipped")

	plan, ok := o.Item("3")
	require.True(t, ok)
	assert.Equal(t, "basic", plan.Name)
	assert.Equal(t, "5", plan.Price, "missing price falls back to the choice price")

	_, ok = o.Item("5")
	assert.False(t, ok, "no shipping chosen")
}

func TestFactory_Currency(t *testing.T) {
	tests := []struct {
		name     string
		entry    string
		form     string
		settings *mockSettings
		want     string
		wantErr  bool
	}{
		{name: "entry wins", entry: "EUR", form: "GBP", want: "EUR"},
		{name: "form next", form: "GBP", want: "GBP"},
		{name: "settings next", settings: &mockSettings{values: map[string]string{SettingCurrency: "JPY"}}, want: "JPY"},
		{name: "invalid setting ignored", settings: &mockSettings{values: map[string]string{SettingCurrency: "??"}}, want: "USD"},
		{name: "missing setting", settings: &mockSettings{}, want: "USD"},
		{name: "settings failure", settings: &mockSettings{err: errors.New("redis down")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f *Factory
			if tt.settings != nil {
				f = NewFactory(tt.settings)
			} else {
				f = NewFactory(nil)
			}
			form := &Form{Currency: tt.form}
			o, err := f.Build(context.Background(), form, &Entry{Currency: tt.entry}, BuildOptions{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.Currency())
		})
	}
}

func TestFactory_InvalidQuantityInputSkipsProduct(t *testing.T) {
	entry := &Entry{Values: map[string]string{"1.3": "lots"}}

	o, err := NewFactory(nil).Build(context.Background(), newTestForm(), entry, BuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, o.AllItems())
}

func TestField_DisplayLabel(t *testing.T) {
	f := Field{Label: "Size", AdminLabel: "size_admin"}
	assert.Equal(t, "Size", f.DisplayLabel(false))
	assert.Equal(t, "size_admin", f.DisplayLabel(true))
	assert.Equal(t, "Color", Field{Label: "Color"}.DisplayLabel(true))
}
