// Package locations reads the named places a collection can be queried at
// from an ESRI shapefile or a GeoJSON feature collection.
package locations

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
)

// Row is one location: its attribute values keyed by column and its
// geometry (Point, Polygon or MultiPolygon).
type Row struct {
	Values   map[string]string
	Geometry geom.T
}

func (r Row) bounds() *geom.Bounds { return r.Geometry.Bounds() }

// Table holds every row of a location source. Columns keep the order of the
// source's attribute table.
type Table struct {
	Columns []string
	Rows    []Row
}

// Load reads path according to its extension. A row whose geometry cannot
// be represented fails the whole load.
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return loadShapefile(path)
	case ".geojson", ".json":
		return loadGeoJSON(path)
	}
	return nil, edrerr.NewInternal("unsupported location source %q", path)
}

func loadShapefile(path string) (*Table, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "open shapefile %s", path)
	}
	defer r.Close()

	fields := r.Fields()
	t := &Table{Columns: make([]string, len(fields))}
	for i, f := range fields {
		t.Columns[i] = f.String()
	}
	for r.Next() {
		n, s := r.Shape()
		g, err := shapeGeometry(s)
		if err != nil {
			return nil, edrerr.Wrap(edrerr.Internal, err, "shapefile %s row %d", path, n)
		}
		row := Row{Values: make(map[string]string, len(fields)), Geometry: g}
		for i, c := range t.Columns {
			row.Values[c] = cleanAttribute(r.ReadAttribute(n, i))
		}
		t.Rows = append(t.Rows, row)
	}
	if err := r.Err(); err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "read shapefile %s", path)
	}
	return t, nil
}

// cleanAttribute strips the NUL and space padding of a dBase field.
func cleanAttribute(v string) string {
	return strings.TrimFunc(v, func(r rune) bool { return r == 0 || unicode.IsSpace(r) })
}

func shapeGeometry(s shp.Shape) (geom.T, error) {
	switch v := s.(type) {
	case *shp.Point:
		return geom.NewPoint(geom.XY).SetCoords(geom.Coord{v.X, v.Y})
	case *shp.Polygon:
		return polygonFromParts(v.Parts, v.Points)
	}
	return nil, fmt.Errorf("unsupported shape %T", s)
}

// polygonFromParts groups shapefile rings: a clockwise ring opens a new
// polygon, a counter-clockwise ring is a hole in the current one.
func polygonFromParts(parts []int32, pts []shp.Point) (geom.T, error) {
	var polys [][][]geom.Coord
	for i, start := range parts {
		end := len(pts)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		ring := make([]geom.Coord, 0, end-int(start))
		for _, p := range pts[start:end] {
			ring = append(ring, geom.Coord{p.X, p.Y})
		}
		if signedArea(ring) <= 0 || len(polys) == 0 {
			polys = append(polys, [][]geom.Coord{ring})
			continue
		}
		last := len(polys) - 1
		polys[last] = append(polys[last], ring)
	}
	switch len(polys) {
	case 0:
		return nil, fmt.Errorf("polygon without rings")
	case 1:
		return geom.NewPolygon(geom.XY).SetCoords(polys[0])
	}
	return geom.NewMultiPolygon(geom.XY).SetCoords(polys)
}

func signedArea(ring []geom.Coord) float64 {
	var a float64
	for i := 0; i+1 < len(ring); i++ {
		a += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return a / 2
}

func loadGeoJSON(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "decode %s", path)
	}
	cols := map[string]bool{}
	hasID := false
	t := &Table{}
	for i, f := range fc.Features {
		switch f.Geometry.(type) {
		case *geom.Point, *geom.Polygon, *geom.MultiPolygon:
		default:
			return nil, edrerr.NewInternal("%s feature %d: unsupported geometry %T", path, i, f.Geometry)
		}
		row := Row{Values: make(map[string]string, len(f.Properties)+1), Geometry: f.Geometry}
		for k, v := range f.Properties {
			cols[k] = true
			if v != nil {
				row.Values[k] = fmt.Sprint(v)
			}
		}
		if f.ID != "" {
			if _, clash := f.Properties["id"]; !clash {
				row.Values["id"] = f.ID
				hasID = true
			}
		}
		t.Rows = append(t.Rows, row)
	}
	for c := range cols {
		t.Columns = append(t.Columns, c)
	}
	sort.Strings(t.Columns)
	if hasID && !cols["id"] {
		t.Columns = append([]string{"id"}, t.Columns...)
	}
	return t, nil
}

// IDField returns configured when it names a column, otherwise the first
// column whose values are all distinct.
func (t *Table) IDField(configured string) (string, error) {
	if configured != "" {
		for _, c := range t.Columns {
			if c == configured {
				return c, nil
			}
		}
		return "", edrerr.NewNotFound("location id field %q not in source", configured)
	}
	for _, c := range t.Columns {
		seen := make(map[string]bool, len(t.Rows))
		unique := true
		for _, r := range t.Rows {
			v := r.Values[c]
			if seen[v] {
				unique = false
				break
			}
			seen[v] = true
		}
		if unique {
			return c, nil
		}
	}
	return "", edrerr.NewNotFound("location source has no column with unique values")
}

// Find returns the first row whose idField equals id.
func (t *Table) Find(idField, id string) (Row, error) {
	for _, r := range t.Rows {
		if r.Values[idField] == id {
			return r, nil
		}
	}
	return Row{}, edrerr.NewNotFound("location %q not found", id)
}

// Within keeps the rows whose geometry bounds intersect bbox
// [minx, miny, maxx, maxy]. A nil bbox keeps every row.
func (t *Table) Within(bbox []float64) []Row {
	if len(bbox) < 4 {
		return t.Rows
	}
	q := geom.NewBounds(geom.XY).Set(bbox[0], bbox[1], bbox[2], bbox[3])
	var out []Row
	for _, r := range t.Rows {
		if r.bounds().Overlaps(geom.XY, q) {
			out = append(out, r)
		}
	}
	return out
}

// Page applies offset and limit to rows.
func Page(rows []Row, offset, limit int) []Row {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
