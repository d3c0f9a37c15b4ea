package tensor

import (
	"encoding/json"
	"fmt"
	"math"
)

// Values holds tensor elements in row-major order together with the
// nesting observed when they were decoded
type Values struct {
	Data []float64

	// Dims is the rectangular nesting seen on decode; nil when ragged or built in code
	Dims []int

	// Ragged is set when nested rows had differing lengths or depths
	Ragged bool
}

// FromRows builds values from a row slice, recording the nesting
func FromRows(rows [][]float64) Values {
	v := Values{Dims: []int{len(rows), 0}}
	for i, row := range rows {
		if i == 0 {
			v.Dims[1] = len(row)
		} else if len(row) != v.Dims[1] {
			v.Ragged = true
		}
		v.Data = append(v.Data, row...)
	}
	if v.Ragged {
		v.Dims = nil
	}
	return v
}

// Len returns the number of decoded elements
func (v Values) Len() int {
	return len(v.Data)
}

// UnmarshalJSON accepts a flat or arbitrarily nested array of numbers.
// A null element decodes as NaN.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode values: %w", err)
	}

	if raw == nil {
		*v = Values{}
		return nil
	}

	list, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("values must be an array, got %T", raw)
	}

	w := &walker{leaf: -1}
	if err := w.walk(list, 0); err != nil {
		return err
	}

	// Scalars must sit at the deepest level
	if w.leaf >= 0 && w.leaf != len(w.dims)-1 {
		w.ragged = true
	}

	*v = Values{Data: w.data, Ragged: w.ragged}
	if !w.ragged {
		v.Dims = w.dims
	}
	return nil
}

// MarshalJSON writes rows for rank-2 nesting and a flat array otherwise.
// NaN is written as null.
func (v Values) MarshalJSON() ([]byte, error) {
	if len(v.Dims) == 2 && !v.Ragged && v.Dims[0]*v.Dims[1] == len(v.Data) {
		rows := make([][]any, v.Dims[0])
		for r := range rows {
			rows[r] = scalars(v.Data[r*v.Dims[1] : (r+1)*v.Dims[1]])
		}
		return json.Marshal(rows)
	}
	return json.Marshal(scalars(v.Data))
}

func scalars(data []float64) []any {
	out := make([]any, len(data))
	for i, x := range data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			out[i] = nil
			continue
		}
		out[i] = x
	}
	return out
}

// walker flattens nested JSON arrays and tracks the length seen at each depth
type walker struct {
	data   []float64
	dims   []int
	leaf   int
	ragged bool
}

func (w *walker) walk(list []any, depth int) error {
	if depth == len(w.dims) {
		w.dims = append(w.dims, len(list))
	} else if w.dims[depth] != len(list) {
		w.ragged = true
	}

	for _, item := range list {
		switch x := item.(type) {
		case []any:
			if w.leaf >= 0 && w.leaf <= depth {
				w.ragged = true
			}
			if err := w.walk(x, depth+1); err != nil {
				return err
			}
		case float64:
			w.scalar(x, depth)
		case nil:
			w.scalar(math.NaN(), depth)
		default:
			return fmt.Errorf("unexpected %T in values at depth %d", item, depth)
		}
	}
	return nil
}

func (w *walker) scalar(x float64, depth int) {
	if w.leaf < 0 {
		w.leaf = depth
	} else if w.leaf != depth {
		w.ragged = true
	}
	w.data = append(w.data, x)
}
