package export

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/form-order-summary/internal/domain/order"
)

func TestEncode_SaveEntryShape(t *testing.T) {
	raw := NewSaveEntry(newSampleOrder(t), Config{}).ExportJSON()

	assert.JSONEq(t, `{
		"rows": {
			"body": [
				{"belongs_to":"body","currency":"USD","id":"1","is_line_item":true,"type":"form_product"}
			],
			"footer": [
				{"belongs_to":"footer","currency":"USD","id":"2","is_discount":true,"is_line_item":true,
				 "name":"Coupon","price":"-5.00","quantity":1,"sub_total":-5,"type":"order_item"}
			]
		},
		"v": "0.1"
	}`, string(raw))
}

func TestEncode_Errors(t *testing.T) {
	raw := Encode(Data{Errors: &Error{Message: "bad \"row\"", Code: 7}})
	assert.JSONEq(t, `{"errors":["bad \"row\"",7]}`, string(raw))
}

func TestDecodeSnapshot_RoundTrip(t *testing.T) {
	raw := NewSaveEntry(newSampleOrder(t), Config{}).ExportJSON()

	s, err := DecodeSnapshot(raw)
	require.NoError(t, err)

	assert.Equal(t, SnapshotVersion, s.Version)
	require.Len(t, s.Group(order.GroupFooter), 1)
	coupon := s.Group(order.GroupFooter)[0]
	assert.Equal(t, "Coupon", coupon[order.PropName])
	assert.Equal(t, true, coupon[order.PropIsDiscount])
	assert.True(t, decimal.NewFromInt(-5).Equal(coupon[order.PropSubTotal].(decimal.Decimal)))
}

func TestDecodeSnapshot_Versions(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantVersion string
		wantErr     error
	}{
		{
			name: "pre-versioning snapshot",
			raw:  `{"totals":{"total":12.5},"rows":{"body":[{"id":"1","options":[{"price":"2.50","option_label":"Size","option_name":"L"}]}]}}`,
		},
		{
			name:        "current version",
			raw:         `{"rows":{},"v":"0.1"}`,
			wantVersion: "0.1",
		},
		{
			name:    "future version",
			raw:     `{"v":"2.0"}`,
			wantErr: ErrUnsupportedVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSnapshot([]byte(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, s.Version)
		})
	}
}

func TestDecodeSnapshot_Options(t *testing.T) {
	s, err := DecodeSnapshot([]byte(
		`{"rows":{"body":[{"id":"1","options":[{"price":2.5,"option_label":"Size","option_name":"L","extra":null}]}]},"errors":["x",3]}`,
	))
	require.NoError(t, err)

	opts, ok := s.Group(order.GroupBody)[0][order.PropOptions].([]order.Option)
	require.True(t, ok)
	assert.Equal(t, []order.Option{{Price: "2.5", OptionLabel: "Size", OptionName: "L"}}, opts)
	require.NotNil(t, s.Errors)
	assert.Equal(t, Error{Message: "x", Code: 3}, *s.Errors)
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"rows":[`))
	require.Error(t, err)
}
