// Package axes infers the spatial and temporal axes of a gridded dataset.
package axes

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/cftime"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
)

const (
	CRS84URL   = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"
	Geographic = "GeographicCRS"
	Projected  = "ProjectedCRS"
)

// Overrides name the coordinates to use instead of the inferred ones.
type Overrides struct {
	X    string `json:"x_field,omitempty"`
	Y    string `json:"y_field,omitempty"`
	Time string `json:"time_field,omitempty"`
}

// Properties is the per-dataset axis summary used by selection and
// CoverageJSON assembly.
type Properties struct {
	XLabel    string `json:"x_axis_label"`
	YLabel    string `json:"y_axis_label"`
	TimeLabel string `json:"time_axis_label"`

	BBox      []float64 `json:"bbox"`
	TimeRange []string  `json:"time_range"`
	BBoxUnits string    `json:"bbox_units"`

	Width  int `json:"width"`
	Height int `json:"height"`
	Time   int `json:"time"`

	ResX         float64 `json:"resx"`
	ResY         float64 `json:"resy"`
	ResTime      string  `json:"restime,omitempty"`
	TimeDuration string  `json:"time_duration"`

	BBoxCRS           string   `json:"bbox_crs"`
	CRSType           string   `json:"crs_type"`
	EPSGCode          string   `json:"epsg_code,omitempty"`
	InverseFlattening *float64 `json:"inverse_flattening,omitempty"`

	Fields []string `json:"fields"`
	Axes   []string `json:"axes"`
}

// Discover classifies the coordinates of ds and summarises them. It never
// fails: anything that cannot be derived is left empty and logged.
func Discover(ds *dataset.Dataset, ov Overrides, log *slog.Logger) Properties {
	if log == nil {
		log = slog.Default()
	}
	var x, y, t string
	for _, c := range ds.Coords {
		if strings.EqualFold(c.Name, "time") {
			t = c.Name
			continue
		}
		units, _ := c.Attrs.String("units")
		switch units {
		case "degrees_north":
			y = c.Name
		case "degrees_east":
			x = c.Name
		}
	}
	if ov.X != "" {
		x = ov.X
	}
	if ov.Y != "" {
		y = ov.Y
	}
	if ov.Time != "" {
		t = ov.Time
	}

	p := Properties{
		XLabel:    x,
		YLabel:    y,
		TimeLabel: t,
		BBoxUnits: "degrees",
		BBoxCRS:   CRS84URL,
		CRSType:   Geographic,
	}

	xc, yc, tc := ds.Coord(x), ds.Coord(y), ds.Coord(t)
	if xc == nil || yc == nil || len(xc.Data) == 0 || len(yc.Data) == 0 {
		log.Warn("axes: spatial coordinates not found", "x", x, "y", y)
	} else {
		p.BBox = []float64{xc.Data[0], yc.Data[0], xc.Data[len(xc.Data)-1], yc.Data[len(yc.Data)-1]}
		p.Width, p.Height = xc.Len(), yc.Len()
		if r, ok := step(xc.Data); ok {
			p.ResX = r
		} else {
			log.Warn("axes: x resolution needs two samples", "x", x)
		}
		if r, ok := step(yc.Data); ok {
			p.ResY = r
		} else {
			log.Warn("axes: y resolution needs two samples", "y", y)
		}
	}

	switch {
	case tc == nil:
		log.Warn("axes: time coordinate not found", "time", t)
	case !tc.IsTime():
		log.Warn("axes: time coordinate is not CF-encoded", "time", t)
		p.Time = tc.Len()
	default:
		p.Time = tc.Len()
		p.TimeRange = []string{tc.Times[0].String(), tc.Times[len(tc.Times)-1].String()}
		p.ResTime = cftime.Resolution(tc.Times)
		p.TimeDuration = cftime.Duration(tc.Times)
	}

	if crs := ds.Var("crs"); crs != nil {
		p.CRSType = Projected
		if code, ok := crs.Attrs.String("epsg_code"); ok {
			p.EPSGCode = code
			p.BBoxCRS = epsgURL(code)
		} else if n, ok := crs.Attrs.Float("epsg_code"); ok {
			p.EPSGCode = fmt.Sprintf("EPSG:%d", int(n))
			p.BBoxCRS = epsgURL(p.EPSGCode)
		}
		if f, ok := crs.Attrs.Float("inverse_flattening"); ok {
			p.InverseFlattening = &f
		}
	}

	for _, v := range ds.Vars {
		if len(v.Dims) >= 3 {
			p.Fields = append(p.Fields, v.Name)
		}
	}
	if len(p.Fields) > 0 {
		p.Axes = append([]string(nil), ds.Var(p.Fields[0]).Dims...)
	} else {
		log.Warn("axes: no variable spans three or more dimensions")
	}
	return p
}

func step(c []float64) (float64, bool) {
	if len(c) < 2 {
		return 0, false
	}
	return math.Abs(c[1] - c[0]), true
}

func epsgURL(code string) string {
	n := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(code)), "EPSG:")
	return "http://www.opengis.net/def/crs/EPSG/0/" + n
}

// Validate reports whether the x, y and time labels resolve to coordinates
// of ds. Selection cannot proceed otherwise.
func (p Properties) Validate(ds *dataset.Dataset) error {
	for _, l := range []struct{ role, name string }{
		{"x", p.XLabel}, {"y", p.YLabel}, {"time", p.TimeLabel},
	} {
		if l.name == "" || ds.Coord(l.name) == nil {
			return edrerr.NewNotFound("%s axis %q is not a coordinate of the dataset", l.role, l.name)
		}
	}
	return nil
}

// Rename maps a dimension name to its CoverageJSON axis name (x, y or t).
func (p Properties) Rename(dim string) string {
	switch dim {
	case p.XLabel:
		return "x"
	case p.YLabel:
		return "y"
	case p.TimeLabel:
		return "t"
	}
	return dim
}
