package geometry

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
)

// Region is a polygonal area used to clip grids.
type Region struct {
	polys []*geom.Polygon
	bbox  *geom.Bounds
}

// NewRegion wraps a polygon or multipolygon for clipping.
func NewRegion(g geom.T) (*Region, error) {
	r := &Region{bbox: g.Bounds()}
	switch t := g.(type) {
	case *geom.Polygon:
		r.polys = []*geom.Polygon{t}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			r.polys = append(r.polys, t.Polygon(i))
		}
	default:
		return nil, edrerr.NewInvalidInput("expected a polygon, got %T", g)
	}
	if len(r.polys) == 0 || r.polys[0].NumLinearRings() == 0 {
		return nil, edrerr.NewInvalidInput("empty polygon")
	}
	return r, nil
}

// Contains reports whether (x, y) lies inside or on the boundary of the
// region, honouring holes.
func (r *Region) Contains(x, y float64) bool {
	if x < r.bbox.Min(0) || x > r.bbox.Max(0) || y < r.bbox.Min(1) || y > r.bbox.Max(1) {
		return false
	}
	c := geom.Coord{x, y}
	for _, p := range r.polys {
		if !xy.IsPointInRing(p.Layout(), c, p.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for i := 1; i < p.NumLinearRings(); i++ {
			if xy.IsPointInRing(p.Layout(), c, p.LinearRing(i).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Bounds returns [minx, miny, maxx, maxy].
func (r *Region) Bounds() [4]float64 {
	return [4]float64{r.bbox.Min(0), r.bbox.Min(1), r.bbox.Max(0), r.bbox.Max(1)}
}
