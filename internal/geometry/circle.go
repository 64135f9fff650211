package geometry

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/units"
)

// DefaultQuadSegs is the number of segments per quarter circle.
const DefaultQuadSegs = 16

// CircleWKT buffers the point pointWKT (expressed in crs) by radius unit,
// measured in the world azimuthal equidistant projection, and returns the
// resulting polygon in crs as WKT.
func CircleWKT(pointWKT string, crs CRS, radius float64, unit string, quadSegs int) (string, error) {
	coords, err := CoordsFromWKT(pointWKT)
	if err != nil {
		return "", err
	}
	metres, err := units.Metres(radius, unit)
	if err != nil {
		return "", err
	}
	if metres <= 0 || math.IsNaN(metres) {
		return "", edrerr.NewInvalidInput("radius must be positive, got %v %s", radius, unit)
	}
	if quadSegs <= 0 {
		quadSegs = DefaultQuadSegs
	}
	cx, cy, err := toAEQD(crs, coords[0].X(), coords[0].Y())
	if err != nil {
		return "", err
	}

	n := 4 * quadSegs
	ring := make([]geom.Coord, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		x, y, err := fromAEQD(crs, cx+metres*math.Cos(a), cy+metres*math.Sin(a))
		if err != nil {
			return "", err
		}
		ring = append(ring, geom.Coord{x, y})
	}
	ring = append(ring, ring[0])

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return "", edrerr.Wrap(edrerr.Internal, err, "build circle")
	}
	return Marshal(poly)
}
