package export

import (
	"github.com/xenking/form-order-summary/internal/domain/order"
)

// SnapshotVersion marks the layout written by the save-entry exporter.
const SnapshotVersion = "0.1"

// productStoredFields are recomputed from the entry when a snapshot is read,
// so product rows do not carry them.
var productStoredFields = []string{
	order.PropName,
	order.PropPrice,
	order.PropQuantity,
	order.PropSubTotal,
	order.PropOptions,
}

// NewSaveEntry returns an exporter for the snapshot stored with an entry. Only
// line items are kept and totals are dropped, since they are recalculated when
// the snapshot is read.
func NewSaveEntry(o *order.Order, cfg Config) *Exporter {
	return NewWithFormatter(o, cfg, FormatterFunc(formatSaveEntry))
}

func formatSaveEntry(o *order.Order, _ Config, data *Data) error {
	for _, group := range o.GroupNames() {
		for _, item := range o.GroupItems(group) {
			if !item.IsLineItem {
				continue
			}
			var exclude []string
			if item.Kind() == order.KindFormProduct {
				exclude = productStoredFields
			}
			data.appendRow(group, FilterItemData(item, exclude, nil))
		}
	}

	data.Totals = nil
	data.Version = SnapshotVersion
	return nil
}
