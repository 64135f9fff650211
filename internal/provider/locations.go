package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/features"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/locations"
)

func (g *GridProvider) locationTable() (*locations.Table, string, error) {
	src := g.coll.Provider.LocShapefile
	if src == "" {
		return nil, "", edrerr.NewNotFound("collection %s has no locations", g.coll.ID)
	}
	tbl, err := locations.Load(src)
	if err != nil {
		return nil, "", err
	}
	idField, err := tbl.IDField(g.coll.Provider.LocIDField)
	if err != nil {
		return nil, "", err
	}
	return tbl, idField, nil
}

// Location selects the data at a named location: a point location takes
// the nearest grid cell, an areal one clips the grid to its outline.
// Location geometries are in the grid's coordinates.
func (g *GridProvider) Location(ctx context.Context, q model.LocationQuery) (Result, error) {
	return g.run(ctx, model.Location, func() (Result, error) {
		tbl, idField, err := g.locationTable()
		if err != nil {
			return Result{}, err
		}
		row, err := tbl.Find(idField, q.LocationID)
		if err != nil {
			return Result{}, err
		}
		s, err := g.prepare(ctx, q.Common)
		if err != nil {
			return Result{}, err
		}
		if _, ok := row.Geometry.(*geom.Point); ok {
			c := q.Common
			c.CRS = ""
			return g.points(ctx, s, c, row.Geometry)
		}
		return g.clipTo(s, q.MediaType, row.Geometry)
	})
}

// Locations lists the named locations overlapping bbox. Every feature links
// to its CoverageJSON and netCDF data.
func (g *GridProvider) Locations(ctx context.Context, q model.LocationsQuery) (Result, error) {
	return g.run(ctx, model.Locations, func() (Result, error) {
		def, maxLimit := g.deps.Limits.LocationsDefault, g.deps.Limits.LocationsMax
		if n := g.coll.Provider.LimitMax; n > 0 {
			maxLimit = n
		}
		if n := g.coll.Provider.LimitDefault; n > 0 {
			def = min(n, maxLimit)
		}
		limit := clampLimit(q.Limit, def, maxLimit)
		offset := max(q.Offset, 0)

		tbl, idField, err := g.locationTable()
		if err != nil {
			return Result{}, err
		}
		_, p, err := g.open(ctx)
		if err != nil {
			return Result{}, err
		}
		titleField := g.coll.Provider.TitleField
		if titleField == "" {
			titleField = idField
		}
		var when any
		if len(p.TimeRange) == 2 {
			when = strings.Join(p.TimeRange, "/")
		}

		rows := tbl.Within(q.BBox)
		page := locations.Page(rows, offset, limit)
		feats := make([]*features.Feature, 0, len(page))
		for _, r := range page {
			id := r.Values[idField]
			label := r.Values[titleField]
			href := g.deps.BaseURL + "/collections/" + g.coll.ID + "/locations/" + url.PathEscape(id)
			f, err := features.NewFeature(id, r.Geometry, features.EdrProperties{
				Datetime:         when,
				Label:            &label,
				EdrQueryEndpoint: href,
				ParameterNames:   p.Fields,
			}, nil,
				features.DataLink(href+"?f=coveragejson", model.MediaCovJSON, label+" (coveragejson)"),
				features.DataLink(href+"?f=netcdf", model.MediaNetCDF, label+" (netcdf)"),
			)
			if err != nil {
				return Result{}, edrerr.Wrap(edrerr.Internal, err, "location %s", id)
			}
			feats = append(feats, f)
		}
		return Result{MediaType: model.MediaGeoJSON, Doc: features.NewCollection(feats, len(rows))}, nil
	})
}
