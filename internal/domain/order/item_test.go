package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewItem_Defaults(t *testing.T) {
	item, err := NewOrderItem("fee", nil)
	require.NoError(t, err)

	assert.Equal(t, "fee", item.ID())
	assert.Equal(t, KindOrderItem, item.Kind())
	assert.Equal(t, "order_item", item.Type)
	assert.Equal(t, GroupBody, item.BelongsTo)
	assert.Equal(t, 1, item.Quantity)
	assert.True(t, decimal.Zero.Equal(item.Total()))
}

func TestNewItem_WeakTyping(t *testing.T) {
	item, err := NewFormProduct("1", map[string]any{
		"name":         "Shirt",
		"price":        12.5,
		"quantity":     "3",
		"is_line_item": "1",
		"options": []any{
			map[string]any{"price": 1, "option_label": "Size", "option_name": "XL"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "form_product", item.Type)
	assert.Equal(t, "12.5", item.Price)
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, item.IsLineItem)
	require.Len(t, item.Options, 1)
	assert.Equal(t, "XL", item.Options[0].OptionName)
	assert.True(t, dec("40.5").Equal(item.Total()))
}

func TestNewItem_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		data      map[string]any
		wantField string
	}{
		{
			name:      "unknown keys",
			data:      map[string]any{"name": "x", "colour": "red", "amount": 3},
			wantField: "amount, colour",
		},
		{
			name:      "negative quantity",
			data:      map[string]any{"quantity": -1},
			wantField: "Quantity",
		},
		{
			name:      "bad currency",
			data:      map[string]any{"currency": "DOLLARS"},
			wantField: "Currency",
		},
		{
			name:      "unconvertible quantity",
			data:      map[string]any{"quantity": "many"},
			wantField: "data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrderItem("1", tt.data)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "1", vErr.ItemID)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestItem_BasePrice(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		currency string
		price    string
		options  []Option
		want     string
	}{
		{name: "plain item ignores options", kind: KindOrderItem, currency: "USD", price: "10.00",
			options: []Option{{Price: "5"}}, want: "10"},
		{name: "product adds options", kind: KindFormProduct, currency: "USD", price: "10.00",
			options: []Option{{Price: "2.50"}, {Price: "$1.25"}}, want: "13.75"},
		{name: "invalid option price counts as zero", kind: KindFormProduct, currency: "USD", price: "10",
			options: []Option{{Price: "n/a"}, {Price: ""}}, want: "10"},
		{name: "localized euro amounts", kind: KindFormProduct, currency: "EUR", price: "1.000,50",
			options: []Option{{Price: "0,50 €"}}, want: "1001"},
		{name: "unparseable price", kind: KindOrderItem, currency: "USD", price: "free", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewItem(tt.kind, "1", nil)
			require.NoError(t, err)
			item.Currency = tt.currency
			item.Price = tt.price
			item.Options = tt.options

			got := item.BasePrice()
			assert.True(t, dec(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestItem_TotalIsIdempotent(t *testing.T) {
	item, err := NewFormProduct("1", map[string]any{
		"price":    "10.00",
		"quantity": 2,
		"options":  []any{map[string]any{"price": "2.50"}},
	})
	require.NoError(t, err)

	first := item.Total()
	for range 3 {
		assert.True(t, first.Equal(item.Total()))
	}
	assert.True(t, dec("25").Equal(first))
	assert.True(t, dec("25").Equal(item.SubTotal()))
}

func TestItem_Override(t *testing.T) {
	item, err := NewOrderItem("1", map[string]any{"name": "Fee", "price": "3", "currency": "USD"})
	require.NoError(t, err)

	err = item.Override(map[string]any{
		"id":       "other",
		"currency": "EUR",
		"name":     "Handling",
		"price":    "4",
	}, "price")
	require.NoError(t, err)

	assert.Equal(t, "1", item.ID())
	assert.Equal(t, "USD", item.Currency)
	assert.Equal(t, "Handling", item.Name)
	assert.Equal(t, "3", item.Price)
}

func TestItem_OverrideRejectsUnknownKeys(t *testing.T) {
	item, err := NewOrderItem("1", map[string]any{"name": "Fee"})
	require.NoError(t, err)

	err = item.Override(map[string]any{"name": "Changed", "garbage": true})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "garbage", vErr.Field)
	assert.Equal(t, "Fee", item.Name, "rejected override must not apply partially")
}

func TestItem_OverrideReplacesOptions(t *testing.T) {
	item, err := NewFormProduct("1", map[string]any{
		"options": []any{
			map[string]any{"price": "1"},
			map[string]any{"price": "2"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, item.Override(map[string]any{
		"options": []any{map[string]any{"price": "5"}},
	}))
	require.Len(t, item.Options, 1)
	assert.Equal(t, "5", item.Options[0].Price)
}

func TestItem_GetSet(t *testing.T) {
	item, err := NewOrderItem("7", nil)
	require.NoError(t, err)

	v, ok := item.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, v)

	require.ErrorIs(t, item.Set("nope", 1), ErrUnknownProperty)
	require.ErrorIs(t, item.Set(PropID, "8"), ErrUnknownProperty)

	require.NoError(t, item.Set(PropIsDiscount, true))
	require.NoError(t, item.Set(PropQuantity, "4"))
	require.NoError(t, item.Set(PropSubTotal, "9.99"))

	v, ok = item.Get(PropIsDiscount)
	require.True(t, ok)
	assert.Equal(t, true, v)
	assert.Equal(t, 4, item.Quantity)
	assert.True(t, dec("9.99").Equal(item.SubTotal()))

	id, _ := item.Get(PropID)
	assert.Equal(t, "7", id)
}

func TestItem_ToMap(t *testing.T) {
	item, err := NewOrderItem("2", map[string]any{
		"price":       "-5.00",
		"is_discount": true,
		"belongs_to":  GroupFooter,
	})
	require.NoError(t, err)

	m := item.ToMap()
	assert.Len(t, m, len(properties)+1)
	assert.Equal(t, "2", m[PropID])
	assert.Equal(t, true, m[PropIsDiscount])
	assert.Equal(t, GroupFooter, m[PropBelongsTo])
	assert.True(t, dec("-5").Equal(m[PropSubTotal].(decimal.Decimal)))
}

func TestKind_Is(t *testing.T) {
	assert.True(t, KindFormProduct.Is(KindOrderItem))
	assert.True(t, KindFormProduct.Is(KindFormProduct))
	assert.True(t, KindOrderItem.Is(KindOrderItem))
	assert.False(t, KindOrderItem.Is(KindFormProduct))

	_, err := NewItem(Kind(9), "1", nil)
	require.Error(t, err)
}
