package router

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
)

// parseCommon reads the arguments every coverage query shares.
func parseCommon(r *http.Request, collection, mediaType string) (model.Common, error) {
	q := r.URL.Query()
	dt, err := model.ParseDatetime(q.Get("datetime"))
	if err != nil {
		return model.Common{}, edrerr.Wrap(edrerr.InvalidInput, err, "invalid datetime")
	}
	return model.Common{
		Collection:    collection,
		Datetime:      dt,
		ParameterName: strings.TrimSpace(q.Get("parameter-name")),
		CRS:           strings.TrimSpace(q.Get("crs")),
		Z:             strings.TrimSpace(q.Get("z")),
		MediaType:     mediaType,
	}, nil
}

func required(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", edrerr.NewInvalidInput("missing required parameter: %s", name)
	}
	return v, nil
}

// parseBBox reads "minx,miny,maxx,maxy" or the six-number form with
// vertical bounds, which is reduced to its horizontal extent. An empty
// value yields nil.
func parseBBox(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 && len(parts) != 6 {
		return nil, edrerr.NewInvalidInput("bbox: expected 4 or 6 comma-separated numbers, got %d", len(parts))
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		f, err := parseFloat(p)
		if err != nil {
			return nil, edrerr.Wrap(edrerr.InvalidInput, err, "bbox value %d", i+1)
		}
		vals[i] = f
	}
	if len(vals) == 6 {
		vals = []float64{vals[0], vals[1], vals[3], vals[4]}
	}
	if vals[2] < vals[0] || vals[3] < vals[1] {
		return nil, edrerr.NewInvalidInput("bbox: coordinates must satisfy maxx>=minx and maxy>=miny")
	}
	return vals, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

// optionalInt reads an integer parameter; absent means 0.
func optionalInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, edrerr.Wrap(edrerr.InvalidInput, err, "%s must be an integer", name)
	}
	return n, nil
}

func optionalFloat(r *http.Request, name string) (*float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := parseFloat(v)
	if err != nil {
		return nil, edrerr.Wrap(edrerr.InvalidInput, err, "%s must be a number", name)
	}
	return &f, nil
}

type listing struct {
	bbox          []float64
	limit, offset int
}

func parseListing(r *http.Request) (listing, error) {
	var (
		l   listing
		err error
	)
	if l.bbox, err = parseBBox(r.URL.Query().Get("bbox")); err != nil {
		return listing{}, err
	}
	if l.limit, err = optionalInt(r, "limit"); err != nil {
		return listing{}, err
	}
	if l.offset, err = optionalInt(r, "offset"); err != nil {
		return listing{}, err
	}
	return l, nil
}
