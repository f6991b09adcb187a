package export

import (
	"github.com/xenking/form-order-summary/internal/domain/currency"
	"github.com/xenking/form-order-summary/internal/domain/order"
)

// Keys added by the entry-details exporter.
const (
	KeyPriceMoney    = "price_money"
	KeySubTotalMoney = "sub_total_money"
	suffixMoney      = "_money"
)

// NewEntryDetails returns an exporter for the entry detail views: every item
// of every group with its unit price and sub-total formatted as money, plus a
// formatted copy of each total.
func NewEntryDetails(o *order.Order, cfg Config) *Exporter {
	return NewWithFormatter(o, cfg, FormatterFunc(formatEntryDetails))
}

func formatEntryDetails(o *order.Order, cfg Config, data *Data) error {
	code := cfg.Currency
	if code == "" {
		code = o.Currency()
	}
	cur := currency.Lookup(code)

	for _, group := range o.GroupNames() {
		for _, item := range o.GroupItems(group) {
			data.appendRow(group, FilterItemData(item, nil, map[string]any{
				KeyPriceMoney:    cur.Format(item.BasePrice()),
				KeySubTotalMoney: cur.Format(item.Total()),
			}))
		}
	}

	for _, label := range data.numericTotals() {
		data.Totals[label+suffixMoney] = cur.Format(toDecimal(data.Totals[label]))
	}
	return nil
}
