package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/provider"
)

func position(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	coords, err := required(r, "coords")
	if err != nil {
		return provider.Result{}, err
	}
	return p.Position(ctx, model.PositionQuery{Common: c, Coords: coords})
}

func area(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	coords, err := required(r, "coords")
	if err != nil {
		return provider.Result{}, err
	}
	return p.Area(ctx, model.AreaQuery{Common: c, Coords: coords})
}

func cube(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	raw, err := required(r, "bbox")
	if err != nil {
		return provider.Result{}, err
	}
	bbox, err := parseBBox(raw)
	if err != nil {
		return provider.Result{}, err
	}
	return p.Cube(ctx, model.CubeQuery{Common: c, BBox: bbox})
}

func radius(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	coords, err := required(r, "coords")
	if err != nil {
		return provider.Result{}, err
	}
	within, err := required(r, "within")
	if err != nil {
		return provider.Result{}, err
	}
	return p.Radius(ctx, model.RadiusQuery{
		Common:      c,
		Coords:      coords,
		Within:      within,
		WithinUnits: strings.TrimSpace(r.URL.Query().Get("within-units")),
	})
}

func trajectory(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	coords, err := required(r, "coords")
	if err != nil {
		return provider.Result{}, err
	}
	return p.Trajectory(ctx, model.TrajectoryQuery{Common: c, Coords: coords})
}

// corridor reads the line spacing from resolution-x; without it one line is
// generated on each side.
func corridor(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	coords, err := required(r, "coords")
	if err != nil {
		return provider.Result{}, err
	}
	width, err := required(r, "corridor-width")
	if err != nil {
		return provider.Result{}, err
	}
	res, err := optionalFloat(r, "resolution-x")
	if err != nil {
		return provider.Result{}, err
	}
	q := r.URL.Query()
	return p.Corridor(ctx, model.CorridorQuery{
		Common:      c,
		Coords:      coords,
		Width:       width,
		WidthUnits:  strings.TrimSpace(q.Get("width-units")),
		Height:      strings.TrimSpace(q.Get("corridor-height")),
		HeightUnits: strings.TrimSpace(q.Get("height-units")),
		Resolution:  res,
	})
}

func items(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	l, err := parseListing(r)
	if err != nil {
		return provider.Result{}, err
	}
	return p.Items(ctx, model.ItemsQuery{
		Collection: c.Collection,
		BBox:       l.bbox,
		Datetime:   c.Datetime,
		Limit:      l.limit,
		Offset:     l.offset,
	})
}

func item(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	return p.Item(ctx, c.Collection, chi.URLParam(r, "itemId"))
}

func locations(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	l, err := parseListing(r)
	if err != nil {
		return provider.Result{}, err
	}
	return p.Locations(ctx, model.LocationsQuery{
		Collection: c.Collection,
		BBox:       l.bbox,
		Datetime:   c.Datetime,
		Limit:      l.limit,
		Offset:     l.offset,
	})
}

func location(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error) {
	return p.Location(ctx, model.LocationQuery{Common: c, LocationID: chi.URLParam(r, "locId")})
}
