package geometry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
)

// DefaultCRS is used whenever a request names no CRS or one that cannot be
// parsed.
const DefaultCRS = "urn:ogc:def:crs:OGC:1.3:CRS84"

const wgs84Proj4 = "+proj=longlat +datum=WGS84 +no_defs"

var crs84Aliases = map[string]bool{
	"urn:ogc:def:crs:ogc:1.3:crs84":                 true,
	"http://www.opengis.net/def/crs/ogc/1.3/crs84":  true,
	"https://www.opengis.net/def/crs/ogc/1.3/crs84": true,
	"crs84":     true,
	"ogc:crs84": true,
}

var epsgForms = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^epsg:(\d+)$`),
	regexp.MustCompile(`(?i)^urn:ogc:def:crs:epsg:[^:]*:(\d+)$`),
	regexp.MustCompile(`(?i)^https?://www\.opengis\.net/def/crs/epsg/[^/]+/(\d+)$`),
}

// CRS is a parsed coordinate reference system. Geographic systems take
// longitude/latitude degrees in x/y order.
type CRS struct {
	Name string
	sr   *proj.SR
}

// ParseCRS resolves a user-supplied CRS identifier: OGC CRS84 URNs and URLs,
// EPSG codes (4326, 3857 and the WGS84 UTM zones), proj4 strings and WKT.
// ok is false when s cannot be interpreted.
func ParseCRS(s string) (CRS, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, false
	}
	def, err := proj4For(s)
	if err != nil {
		return CRS{}, false
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return CRS{}, false
	}
	return CRS{Name: s, sr: sr}, true
}

// CRS84 returns WGS84 longitude/latitude.
func CRS84() CRS {
	sr, err := proj.Parse(wgs84Proj4)
	if err != nil {
		panic(fmt.Sprintf("geometry: %v", err))
	}
	return CRS{Name: DefaultCRS, sr: sr}
}

func proj4For(s string) (string, error) {
	if crs84Aliases[strings.ToLower(s)] {
		return wgs84Proj4, nil
	}
	for _, re := range epsgForms {
		if m := re.FindStringSubmatch(s); m != nil {
			code, _ := strconv.Atoi(m[1])
			return epsgProj4(code)
		}
	}
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"+PROJ=", "PROJCS[", "GEOGCS["} {
		if strings.HasPrefix(upper, prefix) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unrecognised CRS %q", s)
}

func epsgProj4(code int) (string, error) {
	switch {
	case code == 4326:
		return wgs84Proj4, nil
	case code == 3857 || code == 900913:
		return "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +no_defs", nil
	case code > 32600 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), nil
	case code > 32700 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), nil
	}
	return "", fmt.Errorf("unsupported EPSG code %d", code)
}

// IsGeographic reports whether coordinates are longitude/latitude degrees.
func (c CRS) IsGeographic() bool {
	return c.sr == nil || c.sr.Name == "longlat"
}

func (c CRS) String() string { return c.Name }

// ToLonLat converts x/y in c to WGS84 longitude/latitude.
func (c CRS) ToLonLat(x, y float64) (float64, float64, error) {
	if c.IsGeographic() {
		return x, y, nil
	}
	t, err := c.sr.NewTransform(CRS84().sr)
	if err != nil {
		return 0, 0, edrerr.Wrap(edrerr.Internal, err, "transform from %s", c.Name)
	}
	return t(x, y)
}

// FromLonLat converts WGS84 longitude/latitude to c.
func (c CRS) FromLonLat(lon, lat float64) (float64, float64, error) {
	if c.IsGeographic() {
		return lon, lat, nil
	}
	t, err := CRS84().sr.NewTransform(c.sr)
	if err != nil {
		return 0, 0, edrerr.Wrap(edrerr.Internal, err, "transform to %s", c.Name)
	}
	return t(lon, lat)
}
