// Package geometry parses query geometries and builds the derived shapes
// (circles, corridor lines, rectangles) used by selection.
package geometry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
)

// Parse decodes WKT text.
func Parse(s string) (geom.T, error) {
	g, err := wkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return nil, edrerr.Wrap(edrerr.InvalidInput, err, "malformed WKT %q", s)
	}
	return g, nil
}

// CoordsFromWKT returns the vertices of a geometry. Multi geometries and
// collections yield the vertices of every member, in member order.
func CoordsFromWKT(s string) ([]geom.Coord, error) {
	g, err := Parse(s)
	if err != nil {
		return nil, err
	}
	out := Coords(g)
	if len(out) == 0 {
		return nil, edrerr.NewInvalidInput("geometry %q has no coordinates", s)
	}
	return out, nil
}

// Coords flattens the vertices of g.
func Coords(g geom.T) []geom.Coord {
	if gc, ok := g.(*geom.GeometryCollection); ok {
		var out []geom.Coord
		for _, member := range gc.Geoms() {
			out = append(out, Coords(member)...)
		}
		return out
	}
	flat, stride := g.FlatCoords(), g.Stride()
	if stride == 0 {
		return nil
	}
	out := make([]geom.Coord, 0, len(flat)/stride)
	for i := 0; i+stride <= len(flat); i += stride {
		out = append(out, geom.Coord(append([]float64(nil), flat[i:i+stride]...)))
	}
	return out
}

var zmTag = regexp.MustCompile(`(?i)^\s*([A-Z]+?)\s*(ZM|Z|M)?\s*\(`)

// ReformatZM rewrites "LINESTRINGZM(" style tags as "LINESTRING ZM (" so the
// WKT decoder recognises the ordinate suffix.
func ReformatZM(s string) string {
	m := zmTag.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	tag := strings.ToUpper(s[m[2]:m[3]])
	suffix := ""
	if m[4] >= 0 {
		suffix = strings.ToUpper(s[m[4]:m[5]])
	}
	head := tag
	if suffix != "" {
		head += " " + suffix
	}
	return head + " (" + s[m[1]:]
}

// CoordsFromWKTReformatZM applies ReformatZM before parsing.
func CoordsFromWKTReformatZM(s string) ([]geom.Coord, error) {
	return CoordsFromWKT(ReformatZM(s))
}

// BBoxWKT returns the rectangle [minx, miny, maxx, maxy] as polygon WKT.
func BBoxWKT(minx, miny, maxx, maxy float64) string {
	return fmt.Sprintf("POLYGON((%[1]v %[2]v, %[1]v %[4]v, %[3]v %[4]v, %[3]v %[2]v, %[1]v %[2]v))",
		minx, miny, maxx, maxy)
}

// Marshal encodes g as WKT.
func Marshal(g geom.T) (string, error) {
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", edrerr.Wrap(edrerr.Internal, err, "encode WKT")
	}
	return s, nil
}
