package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Isel selects, for each named dimension, the listed indices (in order).
// Dimensions not named are kept whole.
func (ds *Dataset) Isel(sel map[string][]int) (*Dataset, error) {
	for dim, idx := range sel {
		size, ok := ds.DimSize(dim)
		if !ok {
			return nil, fmt.Errorf("isel: no dimension %q", dim)
		}
		for _, i := range idx {
			if i < 0 || i >= size {
				return nil, fmt.Errorf("isel: index %d out of range for %s (size %d)", i, dim, size)
			}
		}
	}
	coords := make([]*Variable, len(ds.Coords))
	for i, c := range ds.Coords {
		coords[i] = iselVar(c, sel)
	}
	vars := make([]*Variable, len(ds.Vars))
	for i, v := range ds.Vars {
		vars[i] = iselVar(v, sel)
	}
	return New(coords, vars, ds.Attrs)
}

func iselVar(v *Variable, sel map[string][]int) *Variable {
	maps := make([][]int, len(v.Dims))
	shape := make([]int, len(v.Dims))
	touched := false
	for i, d := range v.Dims {
		if idx, ok := sel[d]; ok {
			maps[i] = idx
			shape[i] = len(idx)
			touched = true
			continue
		}
		shape[i] = v.Shape[i]
	}
	if !touched {
		return v
	}
	out := v.empty(append([]string(nil), v.Dims...), shape)
	src := strides(v.Shape)
	pos := make([]int, len(shape))
	for k, n := 0, product(shape); k < n; k++ {
		s := 0
		for i, p := range pos {
			if maps[i] != nil {
				s += maps[i][p] * src[i]
			} else {
				s += p * src[i]
			}
		}
		out.copyAt(k, v, s)
		advance(pos, shape)
	}
	return out
}

// Index selects a single position along dim and drops that dimension.
func (ds *Dataset) Index(dim string, i int) (*Dataset, error) {
	sub, err := ds.Isel(map[string][]int{dim: {i}})
	if err != nil {
		return nil, err
	}
	drop := func(group []*Variable) []*Variable {
		out := make([]*Variable, len(group))
		for k, v := range group {
			j := v.DimIndex(dim)
			if j < 0 {
				out[k] = v
				continue
			}
			nv := *v
			nv.Dims = append(append([]string(nil), v.Dims[:j]...), v.Dims[j+1:]...)
			nv.Shape = append(append([]int(nil), v.Shape[:j]...), v.Shape[j+1:]...)
			out[k] = &nv
		}
		return out
	}
	return New(drop(sub.Coords), drop(sub.Vars), sub.Attrs)
}

// Pointwise performs vectorized selection: every indexer in sel has the same
// length n, and the i-th output sample takes index sel[d][i] on every
// dimension d. The indexed dimensions are replaced by a single new
// dimension newDim. When a variable's indexed dimensions are adjacent the
// new dimension takes their place, otherwise it becomes the leading one.
func (ds *Dataset) Pointwise(sel map[string][]int, newDim string) (*Dataset, error) {
	n := -1
	for dim, idx := range sel {
		size, ok := ds.DimSize(dim)
		if !ok {
			return nil, fmt.Errorf("pointwise: no dimension %q", dim)
		}
		if n >= 0 && len(idx) != n {
			return nil, fmt.Errorf("pointwise: indexers have different lengths")
		}
		n = len(idx)
		for _, i := range idx {
			if i < 0 || i >= size {
				return nil, fmt.Errorf("pointwise: index %d out of range for %s (size %d)", i, dim, size)
			}
		}
	}
	if n < 0 {
		return ds, nil
	}
	coords := make([]*Variable, len(ds.Coords))
	for i, c := range ds.Coords {
		coords[i] = pointwiseVar(c, sel, newDim, n)
	}
	vars := make([]*Variable, len(ds.Vars))
	for i, v := range ds.Vars {
		vars[i] = pointwiseVar(v, sel, newDim, n)
	}
	return New(coords, vars, ds.Attrs)
}

func pointwiseVar(v *Variable, sel map[string][]int, newDim string, n int) *Variable {
	var indexed []int
	for i, d := range v.Dims {
		if _, ok := sel[d]; ok {
			indexed = append(indexed, i)
		}
	}
	if len(indexed) == 0 {
		return v
	}
	adjacent := indexed[len(indexed)-1]-indexed[0] == len(indexed)-1

	// kept lists, per output axis, the source axis it reads from (-1 for newDim)
	var dims []string
	var shape []int
	var kept []int
	if !adjacent {
		dims, shape, kept = append(dims, newDim), append(shape, n), append(kept, -1)
	}
	for i, d := range v.Dims {
		if _, ok := sel[d]; ok {
			if adjacent && i == indexed[0] {
				dims, shape, kept = append(dims, newDim), append(shape, n), append(kept, -1)
			}
			continue
		}
		dims, shape, kept = append(dims, d), append(shape, v.Shape[i]), append(kept, i)
	}

	out := v.empty(dims, shape)
	src := strides(v.Shape)
	pos := make([]int, len(shape))
	for k, total := 0, product(shape); k < total; k++ {
		s := 0
		for j, p := range pos {
			if kept[j] >= 0 {
				s += p * src[kept[j]]
				continue
			}
			for _, i := range indexed {
				s += sel[v.Dims[i]][p] * src[i]
			}
		}
		out.copyAt(k, v, s)
		advance(pos, shape)
	}
	return out
}

// Mask sets to NaN every cell of the variables spanning both yDim and xDim
// for which keep returns false. Integer variables become float64 once a
// cell is masked.
func (ds *Dataset) Mask(yDim, xDim string, keep func(yi, xi int) bool) (*Dataset, error) {
	vars := make([]*Variable, len(ds.Vars))
	for i, v := range ds.Vars {
		yi, xi := v.DimIndex(yDim), v.DimIndex(xDim)
		if yi < 0 || xi < 0 || v.IsText() {
			vars[i] = v
			continue
		}
		out := v.empty(v.Dims, v.Shape)
		copy(out.Data, v.Data)
		st := strides(v.Shape)
		masked := false
		for k := range out.Data {
			y := (k / st[yi]) % v.Shape[yi]
			x := (k / st[xi]) % v.Shape[xi]
			if !keep(y, x) {
				out.Data[k] = math.NaN()
				masked = true
			}
		}
		if masked && !strings.HasPrefix(out.DType, "float") {
			out.DType = "float64"
		}
		vars[i] = out
	}
	return New(ds.Coords, vars, ds.Attrs)
}

// Stack joins datasets with identical variables along a new leading
// dimension. Coordinates equal in every input are kept once.
func Stack(parts []*Dataset, dim string) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("stack: nothing to stack")
	}
	first := parts[0]
	stackGroup := func(group func(*Dataset) []*Variable, shared bool) ([]*Variable, error) {
		var out []*Variable
		for i, v := range group(first) {
			members := make([]*Variable, len(parts))
			for p, ds := range parts {
				g := group(ds)
				if i >= len(g) || g[i].Name != v.Name || !equalShape(g[i].Shape, v.Shape) {
					return nil, fmt.Errorf("stack: variable %s differs between parts", v.Name)
				}
				members[p] = g[i]
			}
			if shared && allEqual(members) {
				out = append(out, v)
				continue
			}
			s := v.empty(append([]string{dim}, v.Dims...), append([]int{len(parts)}, v.Shape...))
			n := v.Len()
			for p, m := range members {
				for k := 0; k < n; k++ {
					s.copyAt(p*n+k, m, k)
				}
			}
			out = append(out, s)
		}
		return out, nil
	}
	coords, err := stackGroup(func(d *Dataset) []*Variable { return d.Coords }, true)
	if err != nil {
		return nil, err
	}
	vars, err := stackGroup(func(d *Dataset) []*Variable { return d.Vars }, false)
	if err != nil {
		return nil, err
	}
	return New(coords, vars, first.Attrs)
}

// NearestIndex returns the index of the coordinate value closest to target.
// Ties resolve to the lower index; NaN samples are never chosen.
func NearestIndex(coord []float64, target float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, c := range coord {
		if math.IsNaN(c) {
			continue
		}
		if d := math.Abs(c - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// IndicesInRange returns, in ascending order, the indices whose coordinate
// value lies within [lo, hi] (bounds may be given in either order).
func IndicesInRange(coord []float64, lo, hi float64) []int {
	if lo > hi {
		lo, hi = hi, lo
	}
	var out []int
	for i, c := range coord {
		if c >= lo && c <= hi {
			out = append(out, i)
		}
	}
	return out
}

// Span returns the contiguous index range [min, max] covering idx.
func Span(idx []int) []int {
	if len(idx) == 0 {
		return nil
	}
	s := append([]int(nil), idx...)
	sort.Ints(s)
	out := make([]int, 0, s[len(s)-1]-s[0]+1)
	for i := s[0]; i <= s[len(s)-1]; i++ {
		out = append(out, i)
	}
	return out
}

func advance(pos, shape []int) {
	for i := len(pos) - 1; i >= 0; i-- {
		pos[i]++
		if pos[i] < shape[i] {
			return
		}
		pos[i] = 0
	}
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allEqual(vs []*Variable) bool {
	for _, v := range vs[1:] {
		if v.IsText() {
			for i := range v.Text {
				if v.Text[i] != vs[0].Text[i] {
					return false
				}
			}
			continue
		}
		for i := range v.Data {
			a, b := v.Data[i], vs[0].Data[i]
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				return false
			}
		}
	}
	return true
}
