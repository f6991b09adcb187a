package export

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/form-order-summary/internal/domain/order"
)

// ErrUnsupportedVersion is returned for snapshots written by a newer layout.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Encode writes data as JSON with keys in sorted order.
func Encode(data Data) []byte {
	var e jx.Encoder
	e.ObjStart()
	if data.Totals != nil {
		e.FieldStart("totals")
		encodeMap(&e, data.Totals)
	}
	if len(data.Rows) > 0 {
		e.FieldStart("rows")
		e.ObjStart()
		for _, group := range slices.Sorted(maps.Keys(data.Rows)) {
			e.FieldStart(group)
			e.ArrStart()
			for _, p := range data.Rows[group] {
				encodeMap(&e, p)
			}
			e.ArrEnd()
		}
		e.ObjEnd()
	}
	if data.Errors != nil {
		e.FieldStart("errors")
		e.ArrStart()
		e.Str(data.Errors.Message)
		e.Int(data.Errors.Code)
		e.ArrEnd()
	}
	if data.Version != "" {
		e.FieldStart("v")
		e.Str(data.Version)
	}
	e.ObjEnd()
	return e.Bytes()
}

func encodeMap[M ~map[string]any](e *jx.Encoder, m M) {
	e.ObjStart()
	for _, key := range slices.Sorted(maps.Keys(m)) {
		e.FieldStart(key)
		encodeValue(e, m[key])
	}
	e.ObjEnd()
}

func encodeValue(e *jx.Encoder, v any) {
	switch x := v.(type) {
	case nil:
		e.Null()
	case string:
		e.Str(x)
	case bool:
		e.Bool(x)
	case int:
		e.Int(x)
	case int64:
		e.Int64(x)
	case float64:
		e.Float64(x)
	case decimal.Decimal:
		e.RawStr(x.String())
	case []order.Option:
		e.ArrStart()
		for _, o := range x {
			e.ObjStart()
			e.FieldStart("option_label")
			e.Str(o.OptionLabel)
			e.FieldStart("option_name")
			e.Str(o.OptionName)
			e.FieldStart("price")
			e.Str(o.Price)
			e.ObjEnd()
		}
		e.ArrEnd()
	case map[string]any:
		encodeMap(e, x)
	default:
		e.Str(fmt.Sprint(x))
	}
}

// Snapshot is a persisted save-entry export read back from storage.
type Snapshot struct {
	// Version is empty for snapshots written before versioning.
	Version string
	Rows    map[string][]Projection
	Totals  map[string]any
	Errors  *Error
}

// Group returns the projections of the named group.
func (s Snapshot) Group(name string) []Projection {
	return s.Rows[name]
}

// DecodeSnapshot parses a stored save-entry export. Numbers are returned as
// decimals and options as []order.Option.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	var s Snapshot
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "v":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "version")
			}
			s.Version = v
			return nil
		case "rows":
			return d.Obj(func(d *jx.Decoder, group string) error {
				return d.Arr(func(d *jx.Decoder) error {
					p, err := decodeMap(d)
					if err != nil {
						return errors.Wrapf(err, "row in %s", group)
					}
					if s.Rows == nil {
						s.Rows = make(map[string][]Projection)
					}
					s.Rows[group] = append(s.Rows[group], Projection(p))
					return nil
				})
			})
		case "totals":
			m, err := decodeMap(d)
			if err != nil {
				return errors.Wrap(err, "totals")
			}
			s.Totals = m
			return nil
		case "errors":
			s.Errors = &Error{}
			i := 0
			return d.Arr(func(d *jx.Decoder) error {
				defer func() { i++ }()
				switch i {
				case 0:
					msg, err := d.Str()
					s.Errors.Message = msg
					return err
				case 1:
					code, err := d.Int()
					s.Errors.Code = code
					return err
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "decode snapshot")
	}

	switch s.Version {
	case "", SnapshotVersion:
		return s, nil
	default:
		return Snapshot{}, errors.Wrapf(ErrUnsupportedVersion, "version %q", s.Version)
	}
}

func decodeMap(d *jx.Decoder) (map[string]any, error) {
	m := make(map[string]any)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == order.PropOptions {
			opts, err := decodeOptions(d)
			m[key] = opts
			return err
		}
		v, err := decodeValue(d)
		m[key] = v
		return err
	})
	return m, err
}

func decodeValue(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		return decimal.NewFromString(n.String())
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	case jx.Object:
		return decodeMap(d)
	default:
		raw, err := d.Raw()
		if err != nil {
			return nil, err
		}
		return raw.String(), nil
	}
}

func decodeOptions(d *jx.Decoder) ([]order.Option, error) {
	var opts []order.Option
	err := d.Arr(func(d *jx.Decoder) error {
		var o order.Option
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			s := fmt.Sprint(v)
			if v == nil {
				s = ""
			}
			switch key {
			case "price":
				o.Price = s
			case "option_label":
				o.OptionLabel = s
			case "option_name":
				o.OptionName = s
			}
			return nil
		}); err != nil {
			return err
		}
		opts = append(opts, o)
		return nil
	})
	return opts, err
}

func toDecimal(v any) decimal.Decimal {
	d, _ := v.(decimal.Decimal)
	return d
}
