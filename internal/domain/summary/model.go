package summary

import (
	"github.com/xenking/form-order-summary/internal/domain/order"
	"github.com/xenking/form-order-summary/internal/domain/order/export"
)

// Label keys available to views.
const (
	LabelOrder     = "order"
	LabelProduct   = "product"
	LabelQuantity  = "quantity"
	LabelUnitPrice = "unit_price"
	LabelPrice     = "price"
	LabelSubTotal  = "sub_total"
	LabelTotal     = "total"
)

// Model is what a view renders.
type Model struct {
	Labels map[string]string
	Body   []Row
	// Footer holds the footer group followed by any custom groups.
	Footer   []Row
	SubTotal string
	Total    string
	Receipt  bool
}

// Row is a single displayed item.
type Row struct {
	Name      string
	Options   []string
	Quantity  int
	UnitPrice string
	SubTotal  string
}

func labels(receipt bool) map[string]string {
	l := map[string]string{
		LabelOrder:     "Order",
		LabelProduct:   "Product",
		LabelQuantity:  "Qty",
		LabelUnitPrice: "Unit Price",
		LabelPrice:     "Price",
		LabelSubTotal:  "Sub Total",
		LabelTotal:     "Total",
	}
	if receipt {
		l[LabelOrder] = "Receipt"
	}
	return l
}

func newModel(groups []string, data export.Data, receipt bool) Model {
	m := Model{
		Labels:   labels(receipt),
		SubTotal: moneyTotal(data, order.LabelSubTotal),
		Total:    moneyTotal(data, order.LabelTotal),
		Receipt:  receipt,
	}
	for _, group := range groups {
		for _, p := range data.Group(group) {
			if group == order.GroupBody {
				m.Body = append(m.Body, newRow(p))
			} else {
				m.Footer = append(m.Footer, newRow(p))
			}
		}
	}
	return m
}

func newRow(p export.Projection) Row {
	r := Row{}
	r.Name, _ = p[order.PropName].(string)
	r.Quantity, _ = p[order.PropQuantity].(int)
	r.UnitPrice, _ = p[export.KeyPriceMoney].(string)
	r.SubTotal, _ = p[export.KeySubTotalMoney].(string)

	opts, _ := p[order.PropOptions].([]order.Option)
	for _, opt := range opts {
		switch {
		case opt.OptionLabel == "":
			r.Options = append(r.Options, opt.OptionName)
		case opt.OptionName == "":
			r.Options = append(r.Options, opt.OptionLabel)
		default:
			r.Options = append(r.Options, opt.OptionLabel+": "+opt.OptionName)
		}
	}
	return r
}

func moneyTotal(data export.Data, label string) string {
	s, _ := data.Totals[label+"_money"].(string)
	return s
}
