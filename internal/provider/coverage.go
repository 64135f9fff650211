package provider

import (
	"context"
	"math"
	"strconv"

	"github.com/twpayne/go-geom"
	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/covjson"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset/ncio"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/geometry"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/units"
)

// corridorDim stacks the per-line trajectories of a corridor for netCDF
// export.
const corridorDim = "corridor"

func (g *GridProvider) Position(ctx context.Context, q model.PositionQuery) (Result, error) {
	return g.run(ctx, model.Position, func() (Result, error) {
		s, err := g.prepare(ctx, q.Common)
		if err != nil {
			return Result{}, err
		}
		gm, err := geometry.Parse(q.Coords)
		if err != nil {
			return Result{}, err
		}
		return g.points(ctx, s, q.Common, gm)
	})
}

func (g *GridProvider) points(ctx context.Context, s *subset, c model.Common, gm geom.T) (Result, error) {
	switch gm.(type) {
	case *geom.Point, *geom.MultiPoint:
	default:
		return Result{}, edrerr.NewInvalidInput("position needs a POINT or MULTIPOINT, got %T", gm)
	}
	gm, err := toGrid(gm, g.queryCRS(ctx, c.CRS), s.props)
	if err != nil {
		return Result{}, err
	}
	sel, err := nearest(s.ds, s.props, geometry.Coords(gm), covjson.PointsDim)
	if err != nil {
		return Result{}, err
	}
	return render(c.MediaType, sel, func() (any, error) {
		return covjson.Points(sel, s.props, s.params, s.desc)
	})
}

func (g *GridProvider) Area(ctx context.Context, q model.AreaQuery) (Result, error) {
	return g.run(ctx, model.Area, func() (Result, error) {
		return g.area(ctx, q.Common, q.Coords, g.queryCRS(ctx, q.CRS))
	})
}

func (g *GridProvider) Cube(ctx context.Context, q model.CubeQuery) (Result, error) {
	return g.run(ctx, model.Cube, func() (Result, error) {
		if len(q.BBox) != 4 {
			return Result{}, edrerr.NewInvalidInput("bbox needs 4 numbers, got %d", len(q.BBox))
		}
		b := q.BBox
		return g.area(ctx, q.Common, geometry.BBoxWKT(b[0], b[1], b[2], b[3]), g.queryCRS(ctx, q.CRS))
	})
}

// Radius buffers the point by the requested distance and clips to the
// resulting circle. An unreadable distance is an input error.
func (g *GridProvider) Radius(ctx context.Context, q model.RadiusQuery) (Result, error) {
	return g.run(ctx, model.Radius, func() (Result, error) {
		metres, err := units.ParseMetres(q.Within, q.WithinUnits)
		if err != nil {
			return Result{}, err
		}
		crs := g.queryCRS(ctx, q.CRS)
		circle, err := geometry.CircleWKT(q.Coords, crs, metres, "m", g.deps.QuadSegs)
		if err != nil {
			return Result{}, err
		}
		return g.area(ctx, q.Common, circle, crs)
	})
}

func (g *GridProvider) area(ctx context.Context, c model.Common, wkt string, crs geometry.CRS) (Result, error) {
	gm, err := geometry.Parse(wkt)
	if err != nil {
		return Result{}, err
	}
	s, err := g.prepare(ctx, c)
	if err != nil {
		return Result{}, err
	}
	gm, err = toGrid(gm, crs, s.props)
	if err != nil {
		return Result{}, err
	}
	return g.clipTo(s, c.MediaType, gm)
}

func (g *GridProvider) clipTo(s *subset, mediaType string, gm geom.T) (Result, error) {
	region, err := geometry.NewRegion(gm)
	if err != nil {
		return Result{}, err
	}
	sel, err := clip(s.ds, s.props, region)
	if err != nil {
		return Result{}, err
	}
	return render(mediaType, sel, func() (any, error) {
		return covjson.Grid(sel, s.props, s.params, s.desc)
	})
}

func (g *GridProvider) Trajectory(ctx context.Context, q model.TrajectoryQuery) (Result, error) {
	return g.run(ctx, model.Trajectory, func() (Result, error) {
		gm, err := geometry.Parse(geometry.ReformatZM(q.Coords))
		if err != nil {
			return Result{}, err
		}
		if _, ok := gm.(*geom.LineString); !ok {
			return Result{}, edrerr.NewInvalidInput("trajectory needs a LINESTRING, got %T", gm)
		}
		s, err := g.prepare(ctx, q.Common)
		if err != nil {
			return Result{}, err
		}
		gm, err = toGrid(gm, g.queryCRS(ctx, q.CRS), s.props)
		if err != nil {
			return Result{}, err
		}
		sel, err := trajectory(s, geometry.Coords(gm))
		if err != nil {
			return Result{}, err
		}
		return render(q.MediaType, sel, func() (any, error) {
			return covjson.Trajectory(sel, s.props, s.params, s.desc)
		})
	})
}

func trajectory(s *subset, coords []geom.Coord) (*dataset.Dataset, error) {
	sel, err := nearest(s.ds, s.props, coords, covjson.TrajectoryDim)
	if err != nil {
		return nil, err
	}
	return sel.WithAttr("featureType", "trajectory"), nil
}

// Corridor samples one trajectory per offset line of the corridor. The
// lines stay separate: CoverageJSON gets one coverage per line and netCDF
// stacks them along a corridor dimension.
func (g *GridProvider) Corridor(ctx context.Context, q model.CorridorQuery) (Result, error) {
	return g.run(ctx, model.Corridor, func() (Result, error) {
		width, err := strconv.ParseFloat(q.Width, 64)
		if err != nil {
			return Result{}, edrerr.Wrap(edrerr.InvalidInput, err, "corridor-width %q", q.Width)
		}
		if q.Height != "" {
			if _, err := units.ParseMetres(q.Height, q.HeightUnits); err != nil {
				return Result{}, err
			}
		}
		if r := q.Resolution; r != nil && (*r <= 0 || math.IsNaN(*r)) {
			return Result{}, edrerr.NewInvalidInput("corridor resolution must be positive")
		}
		crs := g.queryCRS(ctx, q.CRS)
		lines, err := geometry.CorridorLines(q.Coords, crs, width, q.WidthUnits, q.Resolution)
		if err != nil {
			return Result{}, err
		}
		s, err := g.prepare(ctx, q.Common)
		if err != nil {
			return Result{}, err
		}

		parts := make([]*dataset.Dataset, len(lines))
		var eg errgroup.Group
		for i, l := range lines {
			eg.Go(func() error {
				gm, err := toGrid(l, crs, s.props)
				if err != nil {
					return err
				}
				parts[i], err = trajectory(s, geometry.Coords(gm))
				return err
			})
		}
		if err := eg.Wait(); err != nil {
			return Result{}, err
		}

		if q.MediaType == model.MediaNetCDF {
			stacked, err := dataset.Stack(parts, corridorDim)
			if err != nil {
				return Result{}, edrerr.Wrap(edrerr.Internal, err, "stack corridor lines")
			}
			b, err := ncio.Export(stacked)
			if err != nil {
				return Result{}, edrerr.Wrap(edrerr.Internal, err, "export netCDF")
			}
			return Result{MediaType: model.MediaNetCDF, Body: b}, nil
		}
		return render(q.MediaType, nil, func() (any, error) {
			return covjson.Corridor(parts, s.props, s.params, s.desc)
		})
	})
}
