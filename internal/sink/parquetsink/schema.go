package parquetsink

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"datalake/internal/model"
)

// layout maps a table's data columns onto parquet leaf columns. parquet.Group
// orders leaves by name, so leaf i holds table column cols[i].
type layout struct {
	schema *parquet.Schema
	cols   []int
}

func nodeFor(c model.Column) parquet.Node {
	var n parquet.Node
	switch c.Type {
	case model.TypeInt64:
		n = parquet.Int(64)
	case model.TypeFloat64:
		n = parquet.Leaf(parquet.DoubleType)
	case model.TypeTimestamp:
		n = parquet.Timestamp(parquet.Microsecond)
	default:
		n = parquet.String()
	}
	if c.Nullable {
		n = parquet.Optional(n)
	}
	return n
}

// newLayout builds the file schema for t from every column not listed in
// skip (the partition columns).
func newLayout(t *model.Table, skip map[int]bool) (*layout, error) {
	group := parquet.Group{}
	byName := map[string]int{}
	for i, c := range t.Columns {
		if skip[i] {
			continue
		}
		group[c.Name] = nodeFor(c)
		byName[c.Name] = i
	}
	if len(group) == 0 {
		return nil, fmt.Errorf("table %s: no data columns left after partitioning", t.Name)
	}

	schema := parquet.NewSchema(t.Name, group)
	paths := schema.Columns()
	l := &layout{schema: schema, cols: make([]int, len(paths))}
	for leaf, path := range paths {
		ci, ok := byName[path[0]]
		if !ok {
			return nil, fmt.Errorf("table %s: unexpected schema column %v", t.Name, path)
		}
		l.cols[leaf] = ci
	}
	return l, nil
}

// row converts one table row into a parquet row in leaf order.
func (l *layout) row(t *model.Table, vals []any) (parquet.Row, error) {
	out := make(parquet.Row, len(l.cols))
	for leaf, ci := range l.cols {
		col := t.Columns[ci]
		v := vals[ci]
		if v == nil {
			if !col.Nullable {
				return nil, fmt.Errorf("column %s: null in required column", col.Name)
			}
			out[leaf] = parquet.NullValue().Level(0, 0, leaf)
			continue
		}
		pv, err := valueOf(col, v)
		if err != nil {
			return nil, err
		}
		def := 0
		if col.Nullable {
			def = 1
		}
		out[leaf] = pv.Level(0, def, leaf)
	}
	return out, nil
}

func valueOf(col model.Column, v any) (parquet.Value, error) {
	switch col.Type {
	case model.TypeInt64:
		switch n := v.(type) {
		case int64:
			return parquet.Int64Value(n), nil
		case int:
			return parquet.Int64Value(int64(n)), nil
		case int32:
			return parquet.Int64Value(int64(n)), nil
		}
	case model.TypeFloat64:
		switch f := v.(type) {
		case float64:
			return parquet.DoubleValue(f), nil
		case float32:
			return parquet.DoubleValue(float64(f)), nil
		}
	case model.TypeTimestamp:
		if ts, ok := v.(time.Time); ok {
			return parquet.Int64Value(ts.UnixMicro()), nil
		}
	default:
		if s, ok := v.(string); ok {
			return parquet.ByteArrayValue([]byte(s)), nil
		}
	}
	return parquet.Value{}, fmt.Errorf("column %s: cannot store %T as %s", col.Name, v, col.Type)
}
