// Package provider answers EDR queries against a collection's data.
//
// A CoverageProvider turns a normalized query into either a JSON document
// (CoverageJSON, GeoJSON or a plain object) or native netCDF bytes. Failures
// are edrerr errors so the HTTP layer can tell bad input from missing data.
package provider

import (
	"context"
	"log/slog"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/axes"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset/ncio"
)

// Result is the outcome of a query. Exactly one of Doc and Body is set:
// Doc for JSON documents, Body for native netCDF.
type Result struct {
	MediaType string
	Doc       any
	Body      []byte
}

type CoverageProvider interface {
	Position(ctx context.Context, q model.PositionQuery) (Result, error)
	Area(ctx context.Context, q model.AreaQuery) (Result, error)
	Cube(ctx context.Context, q model.CubeQuery) (Result, error)
	Radius(ctx context.Context, q model.RadiusQuery) (Result, error)
	Trajectory(ctx context.Context, q model.TrajectoryQuery) (Result, error)
	Corridor(ctx context.Context, q model.CorridorQuery) (Result, error)
	Item(ctx context.Context, collection, id string) (Result, error)
	Items(ctx context.Context, q model.ItemsQuery) (Result, error)
	Location(ctx context.Context, q model.LocationQuery) (Result, error)
	Locations(ctx context.Context, q model.LocationsQuery) (Result, error)
}

// DatasetSource opens the dataset stored at path. fingerprint identifies the
// file contents; it is empty when the source cannot tell, which disables
// axis caching.
type DatasetSource interface {
	Open(ctx context.Context, path string) (ds *dataset.Dataset, fingerprint string, err error)
}

// AxisCache stores discovered axis properties by collection and dataset
// fingerprint.
type AxisCache interface {
	Get(ctx context.Context, collection, fingerprint string) (axes.Properties, bool)
	Put(ctx context.Context, collection, fingerprint string, p axes.Properties)
}

// FileSource reads the file on every call.
type FileSource struct{}

func (FileSource) Open(_ context.Context, path string) (*dataset.Dataset, string, error) {
	ds, err := ncio.Open(path)
	if err != nil {
		return nil, "", edrerr.Wrap(edrerr.Internal, err, "open dataset")
	}
	return ds, "", nil
}

type Limits struct {
	ItemsMax         int
	LocationsDefault int
	LocationsMax     int
}

func DefaultLimits() Limits {
	return Limits{ItemsMax: 10000, LocationsDefault: 10, LocationsMax: 1000}
}

// Deps are shared by every provider built from a registry.
type Deps struct {
	Datasets DatasetSource
	Axes     AxisCache
	Logger   *slog.Logger
	BaseURL  string
	Limits   Limits
	QuadSegs int
}

func (d Deps) withDefaults() Deps {
	if d.Datasets == nil {
		d.Datasets = FileSource{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	def := DefaultLimits()
	if d.Limits.ItemsMax < 1 {
		d.Limits.ItemsMax = def.ItemsMax
	}
	if d.Limits.LocationsMax < 1 {
		d.Limits.LocationsMax = def.LocationsMax
	}
	if d.Limits.LocationsDefault < 1 {
		d.Limits.LocationsDefault = min(def.LocationsDefault, d.Limits.LocationsMax)
	}
	return d
}

// clampLimit applies the listing rules: below 1 means the default, above
// max is cut to max.
func clampLimit(limit, def, maxLimit int) int {
	if limit < 1 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
