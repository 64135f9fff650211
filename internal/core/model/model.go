// Package model defines the normalized query types handed from the HTTP
// layer to coverage providers.
package model

import (
	"errors"
	"fmt"
	"strings"
)

type QueryType string

const (
	Position   QueryType = "position"
	Area       QueryType = "area"
	Cube       QueryType = "cube"
	Radius     QueryType = "radius"
	Trajectory QueryType = "trajectory"
	Corridor   QueryType = "corridor"
	Item       QueryType = "item"
	Items      QueryType = "items"
	Location   QueryType = "location"
	Locations  QueryType = "locations"
)

// Media types a query can be answered in.
const (
	MediaJSON    = "application/json"
	MediaHTML    = "text/html"
	MediaCovJSON = "application/prs.coverage+json"
	MediaGeoJSON = "application/geo+json"
	MediaNetCDF  = "application/x-netcdf"
)

// Open marks an unbounded end of a datetime interval.
const Open = ".."

// Datetime is an instant or an interval. Interval ends equal to Open are
// unbounded.
type Datetime struct {
	Start    string
	End      string
	Interval bool
}

// ParseDatetime reads "t", "a/b", "../b" or "a/..". An empty value yields nil.
func ParseDatetime(s string) (*Datetime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	start, end, interval := strings.Cut(s, "/")
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if !interval {
		if start == Open {
			return nil, errors.New("datetime instant cannot be open")
		}
		return &Datetime{Start: start}, nil
	}
	if start == "" {
		start = Open
	}
	if end == "" {
		end = Open
	}
	if start == Open && end == Open {
		return nil, fmt.Errorf("datetime %q: both ends open", s)
	}
	return &Datetime{Start: start, End: end, Interval: true}, nil
}

func (d *Datetime) String() string {
	if d == nil {
		return ""
	}
	if !d.Interval {
		return d.Start
	}
	return d.Start + "/" + d.End
}

// Common carries the arguments shared by every coverage query. Z and the
// resolution values are accepted and passed through unused.
type Common struct {
	Collection    string
	Datetime      *Datetime
	ParameterName string
	CRS           string
	Z             string
	MediaType     string
}

type PositionQuery struct {
	Common
	Coords string
}

type AreaQuery struct {
	Common
	Coords string
}

// CubeQuery's BBox is minx, miny, maxx, maxy; six-number boxes are reduced
// to their horizontal extent by the router.
type CubeQuery struct {
	Common
	BBox []float64
}

type RadiusQuery struct {
	Common
	Coords      string
	Within      string
	WithinUnits string
}

type TrajectoryQuery struct {
	Common
	Coords string
}

// CorridorQuery's Resolution, when set, is the spacing in metres between the
// generated offset lines.
type CorridorQuery struct {
	Common
	Coords      string
	Width       string
	WidthUnits  string
	Height      string
	HeightUnits string
	Resolution  *float64
}

type ItemsQuery struct {
	Collection string
	BBox       []float64
	Datetime   *Datetime
	Limit      int
	Offset     int
}

type LocationQuery struct {
	Common
	LocationID string
}

type LocationsQuery struct {
	Collection string
	BBox       []float64
	Datetime   *Datetime
	Limit      int
	Offset     int
}
