package geometry

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/units"
)

// minimum cosine between a vertex normal and its segment normal; caps mitre
// length at 5x the offset on sharp turns
const mitreFloor = 0.2

// CorridorLines offsets the centreline lineWKT on both sides, working in the
// world azimuthal equidistant projection. Without a grid resolution one line
// is produced per side at half the width. With resolution r each side gets
// round(halfWidth/r) lines at r, 2r, ... The result runs from the leftmost
// line to the rightmost one; the centreline itself is not included.
func CorridorLines(lineWKT string, crs CRS, width float64, unit string, gridResolution *float64) ([]*geom.LineString, error) {
	coords, err := CoordsFromWKTReformatZM(lineWKT)
	if err != nil {
		return nil, err
	}
	metres, err := units.Metres(width, unit)
	if err != nil {
		return nil, err
	}
	if metres <= 0 || math.IsNaN(metres) {
		return nil, edrerr.NewInvalidInput("corridor width must be positive, got %v %s", width, unit)
	}
	half := metres / 2

	var pts [][2]float64
	for _, c := range coords {
		x, y, err := toAEQD(crs, c.X(), c.Y())
		if err != nil {
			return nil, err
		}
		if n := len(pts); n > 0 && pts[n-1][0] == x && pts[n-1][1] == y {
			continue
		}
		pts = append(pts, [2]float64{x, y})
	}
	if len(pts) < 2 {
		return nil, edrerr.NewInvalidInput("corridor centreline needs two distinct vertices")
	}

	var dists []float64
	if gridResolution == nil {
		dists = []float64{half}
	} else {
		r := *gridResolution
		if r <= 0 || math.IsNaN(r) {
			return nil, edrerr.NewInvalidInput("grid resolution must be positive, got %v", r)
		}
		for k := 1; k <= int(math.Round(half/r)); k++ {
			dists = append(dists, float64(k)*r)
		}
	}

	out := make([]*geom.LineString, 0, 2*len(dists))
	for i := len(dists) - 1; i >= 0; i-- {
		l, err := offsetLine(pts, dists[i], crs)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	for _, d := range dists {
		l, err := offsetLine(pts, -d, crs)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// offsetLine shifts pts by d metres to the left (d > 0) or right (d < 0)
// with mitred joins, then returns the line in crs.
func offsetLine(pts [][2]float64, d float64, crs CRS) (*geom.LineString, error) {
	normals := make([][2]float64, len(pts)-1)
	for i := range normals {
		dx, dy := pts[i+1][0]-pts[i][0], pts[i+1][1]-pts[i][1]
		l := math.Hypot(dx, dy)
		normals[i] = [2]float64{-dy / l, dx / l}
	}
	coords := make([]geom.Coord, len(pts))
	for i, p := range pts {
		var n [2]float64
		scale := d
		switch {
		case i == 0:
			n = normals[0]
		case i == len(pts)-1:
			n = normals[len(normals)-1]
		default:
			a, b := normals[i-1], normals[i]
			m := [2]float64{a[0] + b[0], a[1] + b[1]}
			ml := math.Hypot(m[0], m[1])
			if ml < 1e-12 {
				n = b
				break
			}
			n = [2]float64{m[0] / ml, m[1] / ml}
			scale = d / math.Max(n[0]*b[0]+n[1]*b[1], mitreFloor)
		}
		x, y, err := fromAEQD(crs, p[0]+n[0]*scale, p[1]+n[1]*scale)
		if err != nil {
			return nil, err
		}
		coords[i] = geom.Coord{x, y}
	}
	ls, err := geom.NewLineString(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "build corridor line")
	}
	return ls, nil
}
