package provider

import (
	"context"
	"math"

	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/axes"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/cftime"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/geometry"
)

func (g *GridProvider) selectTime(ctx context.Context, ds *dataset.Dataset, p axes.Properties, dt *model.Datetime) (*dataset.Dataset, error) {
	if dt == nil {
		return ds, nil
	}
	idx, err := g.timeIndices(ctx, ds.Coord(p.TimeLabel), dt)
	if err != nil {
		return nil, err
	}
	out, err := ds.Isel(map[string][]int{p.TimeLabel: idx})
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "select time")
	}
	return out, nil
}

// timeIndices resolves dt against the time coordinate: an instant picks the
// nearest step, an interval every step inside its closed bounds. A nil dt
// keeps every step.
func (g *GridProvider) timeIndices(ctx context.Context, tc *dataset.Variable, dt *model.Datetime) ([]int, error) {
	if tc == nil {
		return nil, edrerr.NewNotFound("time axis missing from dataset")
	}
	if dt == nil {
		return allIndices(tc.Len()), nil
	}
	if !tc.IsTime() {
		return nil, edrerr.NewInvalidInput("datetime filter needs a CF encoded time axis")
	}
	cal := tc.Times[0].Calendar
	parse := func(s string) (cftime.Time, error) {
		t, err := cftime.Parse(s, cal)
		if err != nil {
			return cftime.Time{}, edrerr.Wrap(edrerr.InvalidInput, err, "datetime %q", s)
		}
		return t, nil
	}

	if !dt.Interval {
		t, err := parse(dt.Start)
		if err != nil {
			return nil, err
		}
		best, bestDist := 0, math.Inf(1)
		for i, v := range tc.Times {
			if d := math.Abs(v.Sub(t)); d < bestDist {
				best, bestDist = i, d
			}
		}
		return []int{best}, nil
	}

	var lo, hi *cftime.Time
	if dt.Start != model.Open {
		t, err := parse(dt.Start)
		if err != nil {
			return nil, err
		}
		lo = &t
	}
	if dt.End != model.Open {
		t, err := parse(dt.End)
		if err != nil {
			return nil, err
		}
		hi = &t
	}
	if lo != nil && hi != nil && lo.Compare(*hi) > 0 {
		g.log.WarnContext(ctx, "datetime interval start after end; swapping", "datetime", dt.String())
		lo, hi = hi, lo
	}
	var out []int
	for i, v := range tc.Times {
		if lo != nil && v.Compare(*lo) < 0 || hi != nil && v.Compare(*hi) > 0 {
			continue
		}
		out = append(out, i)
	}
	if len(out) == 0 {
		return nil, edrerr.NewNotFound("no time steps within %s", dt.String())
	}
	return out, nil
}

// queryCRS resolves the CRS named by a request. An empty or unreadable value
// means CRS84; the latter is logged.
func (g *GridProvider) queryCRS(ctx context.Context, s string) geometry.CRS {
	if s == "" {
		return geometry.CRS84()
	}
	crs, ok := geometry.ParseCRS(s)
	if !ok {
		g.log.WarnContext(ctx, "unrecognised crs, falling back to CRS84", "crs", s)
		return geometry.CRS84()
	}
	return crs
}

// toGrid expresses gm in the grid's coordinates. Geographic grids take
// longitude/latitude; projected grids are assumed to share the request CRS.
func toGrid(gm geom.T, crs geometry.CRS, p axes.Properties) (geom.T, error) {
	if crs.IsGeographic() || p.CRSType == axes.Projected {
		return gm, nil
	}
	var out geom.T
	switch t := gm.(type) {
	case *geom.Point:
		out = t.Clone()
	case *geom.MultiPoint:
		out = t.Clone()
	case *geom.LineString:
		out = t.Clone()
	case *geom.Polygon:
		out = t.Clone()
	case *geom.MultiPolygon:
		out = t.Clone()
	default:
		return nil, edrerr.NewInvalidInput("cannot reproject %T", gm)
	}
	flat, stride := out.FlatCoords(), out.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		lon, lat, err := crs.ToLonLat(flat[i], flat[i+1])
		if err != nil {
			return nil, err
		}
		flat[i], flat[i+1] = lon, lat
	}
	return out, nil
}

// nearest picks, for each coordinate, the closest grid cell on x and y and
// gathers them along the new dimension dim.
func nearest(ds *dataset.Dataset, p axes.Properties, coords []geom.Coord, dim string) (*dataset.Dataset, error) {
	xs, ys := ds.Coord(p.XLabel).Data, ds.Coord(p.YLabel).Data
	xi := make([]int, len(coords))
	yi := make([]int, len(coords))
	for i, c := range coords {
		xi[i] = dataset.NearestIndex(xs, c.X())
		yi[i] = dataset.NearestIndex(ys, c.Y())
		if xi[i] < 0 || yi[i] < 0 {
			return nil, edrerr.NewNotFound("grid has no valid x/y samples")
		}
	}
	out, err := ds.Pointwise(map[string][]int{p.XLabel: xi, p.YLabel: yi}, dim)
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "select %s", dim)
	}
	return out, nil
}

// clip crops ds to the bounding box of region and masks the cells whose
// centre falls outside it. The x, y and time dimensions are kept.
func clip(ds *dataset.Dataset, p axes.Properties, region *geometry.Region) (*dataset.Dataset, error) {
	b := region.Bounds()
	xi := dataset.Span(dataset.IndicesInRange(ds.Coord(p.XLabel).Data, b[0], b[2]))
	yi := dataset.Span(dataset.IndicesInRange(ds.Coord(p.YLabel).Data, b[1], b[3]))
	if len(xi) == 0 || len(yi) == 0 {
		return nil, edrerr.NewNotFound("no grid cells inside the requested area")
	}
	sub, err := ds.Isel(map[string][]int{p.XLabel: xi, p.YLabel: yi})
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "crop to area")
	}
	xs, ys := sub.Coord(p.XLabel).Data, sub.Coord(p.YLabel).Data
	inside := make([][]bool, len(ys))
	hit := false
	for y := range ys {
		inside[y] = make([]bool, len(xs))
		for x := range xs {
			if region.Contains(xs[x], ys[y]) {
				inside[y][x] = true
				hit = true
			}
		}
	}
	if !hit {
		return nil, edrerr.NewNotFound("no grid cells inside the requested area")
	}
	out, err := sub.Mask(p.YLabel, p.XLabel, func(y, x int) bool { return inside[y][x] })
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "mask to area")
	}
	return out, nil
}
