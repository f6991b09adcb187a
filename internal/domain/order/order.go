// Package order aggregates the priced items of a form submission into groups
// and computes their totals.
package order

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Total labels produced by Order.Totals.
const (
	LabelSubTotal = "sub_total"
	LabelTotal    = "total"
)

// index keeps items addressable by id while remembering insertion order.
type index struct {
	ids  []string
	byID map[string]*Item
}

func newIndex() *index {
	return &index{byID: make(map[string]*Item)}
}

func (x *index) put(item *Item) {
	if _, ok := x.byID[item.ID()]; !ok {
		x.ids = append(x.ids, item.ID())
	}
	x.byID[item.ID()] = item
}

func (x *index) remove(id string) {
	delete(x.byID, id)
	x.ids = slices.DeleteFunc(x.ids, func(v string) bool { return v == id })
}

func (x *index) list() []*Item {
	out := make([]*Item, 0, len(x.ids))
	for _, id := range x.ids {
		out = append(out, x.byID[id])
	}
	return out
}

func (x *index) toMap() map[string]*Item {
	out := make(map[string]*Item, len(x.byID))
	for id, item := range x.byID {
		out[id] = item
	}
	return out
}

// Order is the in-memory aggregate of the items contributed by one form
// submission. It is not safe for concurrent use.
type Order struct {
	currency string

	types map[string]*index
	// typeOrder and groupOrder keep lookups and exports deterministic.
	typeOrder  []string
	groups     map[string]*index
	groupOrder []string

	totals map[string]decimal.Decimal
}

// New returns an empty order whose items will all carry currencyCode.
func New(currencyCode string) *Order {
	return &Order{
		currency: currencyCode,
		types:    make(map[string]*index),
		groups:   make(map[string]*index),
		totals:   make(map[string]decimal.Decimal),
	}
}

// Currency returns the currency stamped onto every added item.
func (o *Order) Currency() string { return o.currency }

// AddItem adds item under its type and its belongs-to group. It returns false
// without changing the order when item is nil or an item with the same type
// and id is already present.
func (o *Order) AddItem(item *Item) bool {
	if item == nil || !item.Kind().valid() {
		return false
	}
	byType, ok := o.types[item.Type]
	if ok {
		if _, dup := byType.byID[item.ID()]; dup {
			return false
		}
	} else {
		byType = newIndex()
		o.types[item.Type] = byType
		o.typeOrder = append(o.typeOrder, item.Type)
	}

	item.Currency = o.currency
	byType.put(item)

	group, ok := o.groups[item.BelongsTo]
	if !ok {
		group = newIndex()
		o.groups[item.BelongsTo] = group
		o.groupOrder = append(o.groupOrder, item.BelongsTo)
	}
	group.put(item)

	clear(o.totals)
	return true
}

// AddItems adds every item, carrying on past rejected ones.
func (o *Order) AddItems(items ...*Item) {
	for _, item := range items {
		o.AddItem(item)
	}
}

// Items returns the items of the given type keyed by id. Unknown types yield an
// empty map.
func (o *Order) Items(itemType string) map[string]*Item {
	byType, ok := o.types[itemType]
	if !ok {
		return map[string]*Item{}
	}
	return byType.toMap()
}

// AllItems flattens every type into a single map keyed by id. When two types
// share an id, the type added last wins.
func (o *Order) AllItems() map[string]*Item {
	out := make(map[string]*Item)
	for _, t := range o.typeOrder {
		for id, item := range o.types[t].byID {
			out[id] = item
		}
	}
	return out
}

// ItemsByKind returns the flattened items that can stand in for kind.
func (o *Order) ItemsByKind(kind Kind) map[string]*Item {
	out := make(map[string]*Item)
	for id, item := range o.AllItems() {
		if item.Kind().Is(kind) {
			out[id] = item
		}
	}
	return out
}

// ItemsExcludeKind returns the flattened items not returned by ItemsByKind.
func (o *Order) ItemsExcludeKind(kind Kind) map[string]*Item {
	all := o.AllItems()
	for id := range o.ItemsByKind(kind) {
		delete(all, id)
	}
	return all
}

// DeleteItem removes the first item with the given id from its type and group
// and drops any computed totals.
func (o *Order) DeleteItem(id string) bool {
	// Type and BelongsTo may have been overridden since the item was added,
	// so remove it from the indexes that actually hold it.
	var item *Item
	for _, t := range o.typeOrder {
		if found, ok := o.types[t].byID[id]; ok {
			item = found
			o.types[t].remove(id)
			break
		}
	}
	if item == nil {
		return false
	}

	for _, name := range o.groupOrder {
		g := o.groups[name]
		if g.byID[id] == item {
			g.remove(id)
			break
		}
	}

	clear(o.totals)
	return true
}

// Item returns the first item with the given id.
func (o *Order) Item(id string) (*Item, bool) {
	for _, t := range o.typeOrder {
		if item, ok := o.types[t].byID[id]; ok {
			return item, true
		}
	}
	return nil, false
}

// ItemByProperty returns the first item whose property loosely equals value:
// numbers compare by value, booleans by truthiness, anything else by its
// printed form.
func (o *Order) ItemByProperty(property string, value any) (*Item, bool) {
	for _, t := range o.typeOrder {
		for _, item := range o.types[t].list() {
			v, ok := item.Get(property)
			if ok && looseEqual(v, value) {
				return item, true
			}
		}
	}
	return nil, false
}

// Group returns the items of the named group keyed by id, or an empty map.
func (o *Order) Group(name string) map[string]*Item {
	g, ok := o.groups[name]
	if !ok {
		return map[string]*Item{}
	}
	return g.toMap()
}

// Groups returns every group keyed by name.
func (o *Order) Groups() map[string]map[string]*Item {
	out := make(map[string]map[string]*Item, len(o.groups))
	for name, g := range o.groups {
		out[name] = g.toMap()
	}
	return out
}

// GroupNames returns group names in the order they were first used.
func (o *Order) GroupNames() []string {
	return slices.Clone(o.groupOrder)
}

// GroupItems returns the items of the named group in insertion order.
func (o *Order) GroupItems(name string) []*Item {
	g, ok := o.groups[name]
	if !ok {
		return nil
	}
	return g.list()
}

// Totals returns the order totals keyed by label. The sub-total sums the body
// group; the total adds the footer group to it. No label is ever negative.
func (o *Order) Totals() map[string]decimal.Decimal {
	if len(o.totals) == 0 {
		sub := o.groupTotal(GroupBody)
		o.totals[LabelSubTotal] = sub
		o.totals[LabelTotal] = sub.Add(o.groupTotal(GroupFooter))
	}

	out := make(map[string]decimal.Decimal, len(o.totals))
	for label, v := range o.totals {
		v = floorAtZero(v)
		o.totals[label] = v
		out[label] = v
	}
	return out
}

func (o *Order) groupTotal(name string) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.GroupItems(name) {
		sum = sum.Add(item.Total())
	}
	return sum
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Truthy reports whether v counts as set: false, zero numbers, "", "0", nil
// and empty collections do not.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "0"
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case decimal.Decimal:
		return !x.IsZero()
	case []Option:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return !Truthy(a) && !Truthy(b)
	}
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if aBool || bBool {
		return Truthy(a) == Truthy(b)
	}
	ad, aNum := asDecimal(a)
	bd, bNum := asDecimal(b)
	if aNum && bNum {
		return ad.Equal(bd)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case float64:
		return decimal.NewFromFloat(x), true
	case string:
		d, err := decimal.NewFromString(x)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}
