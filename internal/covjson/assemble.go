package covjson

import (
	"fmt"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/axes"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
)

// Dimension names introduced by scattered selection.
const (
	PointsDim     = "points"
	TrajectoryDim = "trajectory"
)

func temporalRef() Reference {
	return Reference{
		Coordinates: []string{"t"},
		System:      System{Type: "TemporalRS", Calendar: "Gregorian"},
	}
}

// spatialRef references the horizontal axes of the dataset, in dimension
// order, to its CRS. Vertical or other extra dimensions are left out.
func spatialRef(p axes.Properties) Reference {
	var coords []string
	for _, a := range p.Axes {
		if a != p.XLabel && a != p.YLabel {
			continue
		}
		coords = append(coords, p.Rename(a))
	}
	if len(coords) != 2 {
		coords = []string{"x", "y"}
	}
	sys := System{Type: axes.Geographic, ID: axes.CRS84URL}
	if p.CRSType == axes.Projected {
		sys = System{Type: axes.Projected, ID: p.BBoxCRS, InverseFlattening: p.InverseFlattening}
	}
	return Reference{Coordinates: coords, System: sys}
}

func coordValues(ds *dataset.Dataset, name string) ([]any, error) {
	c := ds.Coord(name)
	if c == nil {
		return nil, fmt.Errorf("coordinate %q missing from selection", name)
	}
	out := make([]any, c.Len())
	for i := range out {
		switch {
		case c.IsTime():
			out[i] = c.Times[i].String()
		case c.IsText():
			out[i] = c.Text[i]
		default:
			out[i] = jsonValue(c.Data[i])
		}
	}
	return out, nil
}

func rangeOf(v *dataset.Variable, p axes.Properties) (*NdArray, error) {
	names := make([]string, len(v.Dims))
	for i, d := range v.Dims {
		names[i] = p.Rename(d)
	}
	values := make([]any, v.Len())
	for i := range values {
		if v.IsText() {
			values[i] = v.Text[i]
			continue
		}
		values[i] = jsonValue(v.Data[i])
	}
	a := &NdArray{
		Type:      TypeNdArray,
		DataType:  DataType(v.DType),
		AxisNames: names,
		Shape:     append([]int{}, v.Shape...),
		Values:    values,
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("range %s: %w", v.Name, err)
	}
	return a, nil
}

func ranges(ds *dataset.Dataset, params []string, p axes.Properties) (map[string]*NdArray, error) {
	out := make(map[string]*NdArray, len(params))
	for _, name := range params {
		v := ds.Var(name)
		if v == nil {
			return nil, fmt.Errorf("parameter %q missing from selection", name)
		}
		r, err := rangeOf(v, p)
		if err != nil {
			return nil, err
		}
		out[name] = r
	}
	return out, nil
}

// Grid assembles an area or cube selection whose x, y and time dimensions
// are intact.
func Grid(ds *dataset.Dataset, p axes.Properties, params []string, desc map[string]Parameter) (*Coverage, error) {
	ax, err := xytAxes(ds, p)
	if err != nil {
		return nil, err
	}
	rs, err := ranges(ds, params, p)
	if err != nil {
		return nil, err
	}
	return &Coverage{
		Type: TypeCoverage,
		Domain: &Domain{
			Type:        TypeDomain,
			DomainType:  DomainGrid,
			Axes:        ax,
			Referencing: []Reference{spatialRef(p), temporalRef()},
		},
		Parameters: desc,
		Ranges:     rs,
	}, nil
}

func xytAxes(ds *dataset.Dataset, p axes.Properties) (map[string]Axis, error) {
	out := make(map[string]Axis, 3)
	for key, name := range map[string]string{"x": p.XLabel, "y": p.YLabel, "t": p.TimeLabel} {
		vals, err := coordValues(ds, name)
		if err != nil {
			return nil, err
		}
		out[key] = Axis{Values: vals}
	}
	return out, nil
}

// Points decomposes a selection along the points dimension into one
// coverage per sample.
func Points(ds *dataset.Dataset, p axes.Properties, params []string, desc map[string]Parameter) (*CoverageCollection, error) {
	n, ok := ds.DimSize(PointsDim)
	if !ok {
		return nil, fmt.Errorf("selection has no %s dimension", PointsDim)
	}
	covs := make([]*Coverage, 0, n)
	for i := 0; i < n; i++ {
		sample, err := ds.Index(PointsDim, i)
		if err != nil {
			return nil, err
		}
		ax, err := xytAxes(sample, p)
		if err != nil {
			return nil, err
		}
		rs, err := ranges(sample, params, p)
		if err != nil {
			return nil, err
		}
		covs = append(covs, &Coverage{
			Type:   TypeCoverage,
			Domain: &Domain{Type: TypeDomain, Axes: ax},
			Ranges: rs,
		})
	}
	return &CoverageCollection{
		Type:        TypeCollection,
		DomainType:  DomainPoint,
		Parameters:  desc,
		Referencing: []Reference{spatialRef(p), temporalRef()},
		Coverages:   covs,
	}, nil
}

// Trajectory assembles a selection along the trajectory dimension as a
// single coverage with a composite (t, x, y) axis.
func Trajectory(ds *dataset.Dataset, p axes.Properties, params []string, desc map[string]Parameter) (*Coverage, error) {
	c, err := trajectoryCoverage(ds, p, params)
	if err != nil {
		return nil, err
	}
	c.DomainType = DomainTrajectory
	c.Domain.DomainType = DomainTrajectory
	c.Domain.Referencing = []Reference{temporalRef(), spatialRef(p)}
	c.Parameters = desc
	return c, nil
}

// Corridor wraps one trajectory coverage per corridor line.
func Corridor(lines []*dataset.Dataset, p axes.Properties, params []string, desc map[string]Parameter) (*CoverageCollection, error) {
	covs := make([]*Coverage, 0, len(lines))
	for i, ds := range lines {
		c, err := trajectoryCoverage(ds, p, params)
		if err != nil {
			return nil, fmt.Errorf("corridor line %d: %w", i, err)
		}
		covs = append(covs, c)
	}
	return &CoverageCollection{
		Type:        TypeCollection,
		DomainType:  DomainTrajectory,
		Parameters:  desc,
		Referencing: []Reference{temporalRef(), spatialRef(p)},
		Coverages:   covs,
	}, nil
}

func trajectoryCoverage(ds *dataset.Dataset, p axes.Properties, params []string) (*Coverage, error) {
	n, ok := ds.DimSize(TrajectoryDim)
	if !ok {
		return nil, fmt.Errorf("selection has no %s dimension", TrajectoryDim)
	}
	var composite []any
	rs := make(map[string]*NdArray, len(params))
	for _, name := range params {
		v := ds.Var(name)
		if v == nil {
			return nil, fmt.Errorf("parameter %q missing from selection", name)
		}
		rs[name] = &NdArray{
			Type:      TypeNdArray,
			DataType:  DataType(v.DType),
			AxisNames: []string{"composite"},
			Shape:     []int{0},
			Values:    []any{},
		}
	}
	for i := 0; i < n; i++ {
		sample, err := ds.Index(TrajectoryDim, i)
		if err != nil {
			return nil, err
		}
		ts, err := coordValues(sample, p.TimeLabel)
		if err != nil {
			return nil, err
		}
		xs, err := coordValues(sample, p.XLabel)
		if err != nil {
			return nil, err
		}
		ys, err := coordValues(sample, p.YLabel)
		if err != nil {
			return nil, err
		}
		for k, t := range ts {
			composite = append(composite, []any{t, xs[0], ys[0]})
			for _, name := range params {
				val, err := trajectoryValue(sample.Var(name), p.TimeLabel, k)
				if err != nil {
					return nil, err
				}
				rs[name].Values = append(rs[name].Values, jsonValue(val))
				rs[name].Shape[0]++
			}
		}
	}
	if composite == nil {
		composite = []any{}
	}
	return &Coverage{
		Type: TypeCoverage,
		Domain: &Domain{
			Type: TypeDomain,
			Axes: map[string]Axis{
				"composite": {DataType: "tuple", Coordinates: []string{"t", "x", "y"}, Values: composite},
			},
		},
		Ranges: rs,
	}, nil
}

// trajectoryValue reads the value of v at the k-th time step of one
// trajectory sample. Time-invariant variables repeat their single value.
func trajectoryValue(v *dataset.Variable, timeDim string, k int) (any, error) {
	switch {
	case len(v.Dims) == 0:
		return v.Value()
	case len(v.Dims) == 1 && v.Dims[0] == timeDim:
		return v.Value(k)
	}
	return nil, fmt.Errorf("parameter %q has dimensions %v beyond the trajectory axes", v.Name, v.Dims)
}
