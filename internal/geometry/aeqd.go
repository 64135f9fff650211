package geometry

import "math"

// World azimuthal equidistant (ESRI:54032): centre 0°N 0°E, WGS84 semi-major
// axis used as the sphere radius.
const earthRadius = 6378137.0

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// aeqdForward projects longitude/latitude degrees to metres.
func aeqdForward(lon, lat float64) (float64, float64) {
	l, p := lon*deg2rad, lat*deg2rad
	cosc := math.Cos(p) * math.Cos(l)
	c := math.Acos(math.Max(-1, math.Min(1, cosc)))
	k := 1.0
	if s := math.Sin(c); s != 0 {
		k = c / s
	}
	return earthRadius * k * math.Cos(p) * math.Sin(l), earthRadius * k * math.Sin(p)
}

// aeqdInverse maps projected metres back to longitude/latitude degrees.
func aeqdInverse(x, y float64) (float64, float64) {
	rho := math.Hypot(x, y)
	if rho == 0 {
		return 0, 0
	}
	c := rho / earthRadius
	sinc, cosc := math.Sin(c), math.Cos(c)
	lat := math.Asin(math.Max(-1, math.Min(1, y*sinc/rho)))
	lon := math.Atan2(x*sinc, rho*cosc)
	return lon * rad2deg, lat * rad2deg
}

// toAEQD projects a coordinate expressed in crs.
func toAEQD(crs CRS, x, y float64) (float64, float64, error) {
	lon, lat, err := crs.ToLonLat(x, y)
	if err != nil {
		return 0, 0, err
	}
	px, py := aeqdForward(lon, lat)
	return px, py, nil
}

func fromAEQD(crs CRS, x, y float64) (float64, float64, error) {
	lon, lat := aeqdInverse(x, y)
	return crs.FromLonLat(lon, lat)
}
