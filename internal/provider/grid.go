package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/axes"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/config"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/observability"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/covjson"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset/ncio"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/params"
)

// GridProvider serves a collection backed by one gridded netCDF file.
type GridProvider struct {
	coll config.Collection
	deps Deps
	log  *slog.Logger
}

var _ CoverageProvider = (*GridProvider)(nil)

func NewGridProvider(coll config.Collection, deps Deps) *GridProvider {
	deps = deps.withDefaults()
	return &GridProvider{
		coll: coll,
		deps: deps,
		log:  deps.Logger.With("collection", coll.ID, "provider", coll.Provider.Name),
	}
}

// run times fn and logs its failure at warn before handing it back.
func (g *GridProvider) run(ctx context.Context, qt model.QueryType, fn func() (Result, error)) (Result, error) {
	start := time.Now()
	res, err := fn()
	outcome := "ok"
	if err != nil {
		outcome = edrerr.CodeOf(err).String()
		g.log.WarnContext(ctx, "query failed", "query_type", string(qt), "err", err)
	}
	observability.ObserveQuery(string(qt), outcome, time.Since(start).Seconds())
	return res, err
}

// open loads the dataset and its axis properties, consulting the axis cache
// when the source can fingerprint the file.
func (g *GridProvider) open(ctx context.Context) (*dataset.Dataset, axes.Properties, error) {
	ds, fp, err := g.deps.Datasets.Open(ctx, g.coll.Provider.Data)
	if err != nil {
		return nil, axes.Properties{}, err
	}
	cacheable := fp != "" && g.deps.Axes != nil
	if cacheable {
		if p, ok := g.deps.Axes.Get(ctx, g.coll.ID, fp); ok {
			if err := p.Validate(ds); err == nil {
				return ds, p, nil
			}
		}
	}
	p := axes.Discover(ds, axes.Overrides{
		X:    g.coll.Provider.XField,
		Y:    g.coll.Provider.YField,
		Time: g.coll.Provider.TimeField,
	}, g.log)
	if err := p.Validate(ds); err != nil {
		return nil, axes.Properties{}, err
	}
	if cacheable {
		g.deps.Axes.Put(ctx, g.coll.ID, fp, p)
	}
	return ds, p, nil
}

// subset is a dataset narrowed to the requested parameters and time span,
// ready for spatial selection.
type subset struct {
	ds     *dataset.Dataset
	props  axes.Properties
	params []string
	desc   map[string]covjson.Parameter
}

func (g *GridProvider) prepare(ctx context.Context, c model.Common) (*subset, error) {
	ds, p, err := g.open(ctx)
	if err != nil {
		return nil, err
	}
	names, err := params.Resolve(c.ParameterName, p.Fields)
	if err != nil {
		return nil, err
	}
	keep := names
	if ds.Var("crs") != nil {
		keep = append(append([]string(nil), names...), "crs")
	}
	ds, err = ds.Subset(keep)
	if err != nil {
		return nil, edrerr.Wrap(edrerr.Internal, err, "subset parameters")
	}
	ds, err = g.selectTime(ctx, ds, p, c.Datetime)
	if err != nil {
		return nil, err
	}
	return &subset{
		ds:     ds,
		props:  p,
		params: names,
		desc:   params.Describe(ds, names, g.coll.Parameters),
	}, nil
}

// render exports ds as netCDF when asked to, otherwise assembles the JSON
// document with build.
func render(mediaType string, ds *dataset.Dataset, build func() (any, error)) (Result, error) {
	if mediaType == model.MediaNetCDF {
		b, err := ncio.Export(ds)
		if err != nil {
			return Result{}, edrerr.Wrap(edrerr.Internal, err, "export netCDF")
		}
		return Result{MediaType: model.MediaNetCDF, Body: b}, nil
	}
	doc, err := build()
	if err != nil {
		return Result{}, edrerr.Wrap(edrerr.Internal, err, "assemble CoverageJSON")
	}
	if mediaType == "" {
		mediaType = model.MediaCovJSON
	}
	return Result{MediaType: mediaType, Doc: doc}, nil
}
