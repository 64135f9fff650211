// Package dataset holds an opened n-dimensional labeled array store: named
// dimensions, coordinate variables, data variables and attribute maps.
//
// A Dataset is immutable once built. Every operation returns a new Dataset
// and leaves the receiver untouched, so one opened file can serve many
// concurrent queries.
package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/cftime"
)

type Attrs map[string]any

// String returns a string attribute, joining char arrays read as []string.
func (a Attrs) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		return strings.Join(t, ""), true
	case []byte:
		return string(t), true
	}
	return "", false
}

// Float returns the first element of a numeric attribute.
func (a Attrs) Float(key string) (float64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	vals, err := toFloat64s(v)
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

type Dim struct {
	Name string
	Size int
}

// Variable is one named array. Numeric values (including raw time
// offsets) live in Data; character variables use Text. When the variable is
// a CF time coordinate, Times carries the decoded instants aligned with Data.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	DType string
	Data  []float64
	Text  []string
	Times []cftime.Time
	Attrs Attrs
}

func (v *Variable) Len() int { return product(v.Shape) }

func (v *Variable) IsScalar() bool { return len(v.Dims) == 0 }

func (v *Variable) IsTime() bool { return len(v.Times) > 0 }

func (v *Variable) IsText() bool { return v.Text != nil }

// DimIndex returns the position of dim within v.Dims, or -1.
func (v *Variable) DimIndex(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// At reads the numeric value at the given per-dimension indices.
func (v *Variable) At(idx ...int) (float64, error) {
	off, err := v.offset(idx)
	if err != nil {
		return math.NaN(), err
	}
	return v.Data[off], nil
}

// Value returns the element at idx as a JSON-friendly value: a float64
// (NaN for missing), a string, or a formatted time.
func (v *Variable) Value(idx ...int) (any, error) {
	off, err := v.offset(idx)
	if err != nil {
		return nil, err
	}
	switch {
	case v.IsTime():
		return v.Times[off].String(), nil
	case v.IsText():
		return v.Text[off], nil
	}
	return v.Data[off], nil
}

func (v *Variable) offset(idx []int) (int, error) {
	if len(idx) != len(v.Shape) {
		return 0, fmt.Errorf("variable %s: %d indices for %d dims", v.Name, len(idx), len(v.Shape))
	}
	off := 0
	st := strides(v.Shape)
	for i, n := range idx {
		if n < 0 || n >= v.Shape[i] {
			return 0, fmt.Errorf("variable %s: index %d out of range for dim %s (size %d)", v.Name, n, v.Dims[i], v.Shape[i])
		}
		off += n * st[i]
	}
	return off, nil
}

// Label renders the element at flat offset i the way it is shown to users.
func (v *Variable) Label(i int) string {
	switch {
	case v.IsTime():
		return v.Times[i].String()
	case v.IsText():
		return v.Text[i]
	}
	return fmt.Sprint(v.Data[i])
}

// empty allocates a variable like v with a new shape and no values.
func (v *Variable) empty(dims []string, shape []int) *Variable {
	n := product(shape)
	out := &Variable{Name: v.Name, Dims: dims, Shape: shape, DType: v.DType, Attrs: v.Attrs}
	if v.IsText() {
		out.Text = make([]string, n)
	} else {
		out.Data = make([]float64, n)
	}
	if v.IsTime() {
		out.Times = make([]cftime.Time, n)
	}
	return out
}

func (v *Variable) copyAt(dst int, src *Variable, s int) {
	if src.IsText() {
		v.Text[dst] = src.Text[s]
	} else {
		v.Data[dst] = src.Data[s]
	}
	if src.IsTime() {
		v.Times[dst] = src.Times[s]
	}
}

// Dataset groups coordinate and data variables sharing dimensions.
type Dataset struct {
	Dims   []Dim
	Coords []*Variable
	Vars   []*Variable
	Attrs  Attrs
}

// New builds a dataset and derives its dimension table, checking that every
// variable agrees on dimension sizes.
func New(coords, vars []*Variable, attrs Attrs) (*Dataset, error) {
	ds := &Dataset{Coords: coords, Vars: vars, Attrs: attrs}
	if ds.Attrs == nil {
		ds.Attrs = Attrs{}
	}
	dims, err := deriveDims(coords, vars)
	if err != nil {
		return nil, err
	}
	ds.Dims = dims
	return ds, nil
}

func deriveDims(groups ...[]*Variable) ([]Dim, error) {
	var dims []Dim
	seen := map[string]int{}
	for _, g := range groups {
		for _, v := range g {
			if len(v.Dims) != len(v.Shape) {
				return nil, fmt.Errorf("variable %s: %d dims but shape %v", v.Name, len(v.Dims), v.Shape)
			}
			if v.IsText() && len(v.Text) != v.Len() || !v.IsText() && len(v.Data) != v.Len() {
				return nil, fmt.Errorf("variable %s: value count does not match shape %v", v.Name, v.Shape)
			}
			for i, d := range v.Dims {
				if n, ok := seen[d]; ok {
					if n != v.Shape[i] {
						return nil, fmt.Errorf("dimension %s: conflicting sizes %d and %d", d, n, v.Shape[i])
					}
					continue
				}
				seen[d] = v.Shape[i]
				dims = append(dims, Dim{Name: d, Size: v.Shape[i]})
			}
		}
	}
	return dims, nil
}

func (ds *Dataset) DimSize(name string) (int, bool) {
	for _, d := range ds.Dims {
		if d.Name == name {
			return d.Size, true
		}
	}
	return 0, false
}

func (ds *Dataset) Coord(name string) *Variable {
	for _, c := range ds.Coords {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (ds *Dataset) Var(name string) *Variable {
	for _, v := range ds.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Lookup finds a coordinate or data variable by name.
func (ds *Dataset) Lookup(name string) *Variable {
	if c := ds.Coord(name); c != nil {
		return c
	}
	return ds.Var(name)
}

// Subset keeps the named data variables and the coordinates whose
// dimensions they span.
func (ds *Dataset) Subset(names []string) (*Dataset, error) {
	vars := make([]*Variable, 0, len(names))
	used := map[string]bool{}
	for _, n := range names {
		v := ds.Var(n)
		if v == nil {
			return nil, fmt.Errorf("variable %q not in dataset", n)
		}
		vars = append(vars, v)
		for _, d := range v.Dims {
			used[d] = true
		}
	}
	var coords []*Variable
	for _, c := range ds.Coords {
		keep := true
		for _, d := range c.Dims {
			if !used[d] {
				keep = false
				break
			}
		}
		if keep {
			coords = append(coords, c)
		}
	}
	return New(coords, vars, ds.Attrs)
}

// WithAttr returns a copy of ds with one global attribute set.
func (ds *Dataset) WithAttr(key string, val any) *Dataset {
	out := *ds
	out.Attrs = ds.Attrs.Clone()
	out.Attrs[key] = val
	return &out
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func strides(shape []int) []int {
	st := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= shape[i]
	}
	return st
}
