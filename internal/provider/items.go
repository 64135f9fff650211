package provider

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/axes"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/features"
)

// cell addresses one grid cell by its full-grid time, y and x indices.
type cell struct{ t, y, x int }

func (c cell) id() string { return fmt.Sprintf("%d_%d_%d", c.t, c.y, c.x) }

func parseItemID(id string) (cell, error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return cell{}, edrerr.NewInvalidInput("item id %q is not t_y_x", id)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return cell{}, edrerr.Wrap(edrerr.InvalidInput, err, "item id %q", id)
		}
		n[i] = v
	}
	return cell{t: n[0], y: n[1], x: n[2]}, nil
}

// cellValue reads v at c. Dimensions other than time, y and x are read at
// index 0. Missing values come back as nil.
func cellValue(v *dataset.Variable, p axes.Properties, c cell) (any, error) {
	idx := make([]int, len(v.Dims))
	for i, d := range v.Dims {
		switch d {
		case p.TimeLabel:
			idx[i] = c.t
		case p.YLabel:
			idx[i] = c.y
		case p.XLabel:
			idx[i] = c.x
		}
	}
	val, err := v.Value(idx...)
	if err != nil {
		return nil, err
	}
	if f, ok := val.(float64); ok && math.IsNaN(f) {
		return nil, nil
	}
	return val, nil
}

// Item returns the value of every field at the cell named by id.
func (g *GridProvider) Item(ctx context.Context, collection, id string) (Result, error) {
	return g.run(ctx, model.Item, func() (Result, error) {
		c, err := parseItemID(id)
		if err != nil {
			return Result{}, err
		}
		ds, p, err := g.open(ctx)
		if err != nil {
			return Result{}, err
		}
		for _, d := range []struct {
			name string
			i    int
		}{{p.TimeLabel, c.t}, {p.YLabel, c.y}, {p.XLabel, c.x}} {
			if n, _ := ds.DimSize(d.name); d.i < 0 || d.i >= n {
				return Result{}, edrerr.NewNotFound("item %q not in collection %s", id, collection)
			}
		}
		out := make(map[string]any, len(p.Fields))
		for _, f := range p.Fields {
			v, err := cellValue(ds.Var(f), p, c)
			if err != nil {
				return Result{}, edrerr.Wrap(edrerr.Internal, err, "read %s", f)
			}
			out[f] = v
		}
		return Result{MediaType: model.MediaJSON, Doc: out}, nil
	})
}

// Items lists grid cells as GeoJSON point features in time, y, x order.
// Only the requested page is visited.
func (g *GridProvider) Items(ctx context.Context, q model.ItemsQuery) (Result, error) {
	return g.run(ctx, model.Items, func() (Result, error) {
		limit := clampLimit(q.Limit, g.deps.Limits.ItemsMax, g.deps.Limits.ItemsMax)
		offset := max(q.Offset, 0)

		ds, p, err := g.open(ctx)
		if err != nil {
			return Result{}, err
		}
		tc, xc, yc := ds.Coord(p.TimeLabel), ds.Coord(p.XLabel), ds.Coord(p.YLabel)
		ti, err := g.timeIndices(ctx, tc, q.Datetime)
		if err != nil {
			return Result{}, err
		}
		xi, yi := allIndices(xc.Len()), allIndices(yc.Len())
		if len(q.BBox) == 4 {
			xi = dataset.IndicesInRange(xc.Data, q.BBox[0], q.BBox[2])
			yi = dataset.IndicesInRange(yc.Data, q.BBox[1], q.BBox[3])
		}

		matched := len(ti) * len(yi) * len(xi)
		end := min(offset+limit, matched)
		feats := make([]*features.Feature, 0, max(end-offset, 0))
		base := g.deps.BaseURL + "/collections/" + g.coll.ID + "/items/"
		for k := offset; k < end; k++ {
			c := cell{
				t: ti[k/(len(yi)*len(xi))],
				y: yi[k/len(xi)%len(yi)],
				x: xi[k%len(xi)],
			}
			f, err := g.itemFeature(ds, p, c, base, tc.Label(c.t), xc.Data[c.x], yc.Data[c.y])
			if err != nil {
				return Result{}, err
			}
			feats = append(feats, f)
		}
		return Result{MediaType: model.MediaGeoJSON, Doc: features.NewCollection(feats, matched)}, nil
	})
}

func (g *GridProvider) itemFeature(ds *dataset.Dataset, p axes.Properties, c cell, base, when string, x, y float64) (*features.Feature, error) {
	id := c.id()
	vals := make(map[string]any, len(p.Fields))
	for _, name := range p.Fields {
		v, err := cellValue(ds.Var(name), p, c)
		if err != nil {
			return nil, edrerr.Wrap(edrerr.Internal, err, "read %s", name)
		}
		vals[name] = v
	}
	pt, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{x, y})
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "item %s geometry", id)
	}
	href := base + id
	f, err := features.NewFeature(id, pt, features.EdrProperties{
		Datetime:         when,
		Label:            &id,
		EdrQueryEndpoint: href,
		ParameterNames:   p.Fields,
	}, vals, features.DataLink(href, model.MediaGeoJSON, id))
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "item %s", id)
	}
	return f, nil
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
