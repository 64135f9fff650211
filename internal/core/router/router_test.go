package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/config"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/observability"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset/datasettest"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/provider"
)

// fakeProvider records the last query it received.
type fakeProvider struct {
	last any
	err  error
}

func (f *fakeProvider) answer(q any) (provider.Result, error) {
	f.last = q
	if f.err != nil {
		return provider.Result{}, f.err
	}
	return provider.Result{Doc: map[string]any{"ok": true}, Body: []byte("CDF\x01")}, nil
}

func (f *fakeProvider) Position(_ context.Context, q model.PositionQuery) (provider.Result, error) {
	return f.answer(q)
}

func (f *fakeProvider) Area(_ context.Context, q model.AreaQuery) (provider.Result, error) {
	return f.answer(q)
}

func (f *fakeProvider) Cube(_ context.Context, q model.CubeQuery) (provider.Result, error) {
	return f.answer(q)
}

func (f *fakeProvider) Radius(_ context.Context, q model.RadiusQuery) (provider.Result, error) {
	return f.answer(q)
}

func (f *fakeProvider) Trajectory(_ context.Context, q model.TrajectoryQuery) (provider.Result, error) {
	return f.answer(q)
}

func (f *fakeProvider) Corridor(_ context.Context, q model.CorridorQuery) (provider.Result, error) {
	return f.answer(q)
}

func (f *fakeProvider) Item(_ context.Context, collection, id string) (provider.Result, error) {
	return f.answer(collection + "/" + id)
}

func (f *fakeProvider) Items(_ context.Context, q model.ItemsQuery) (provider.Result, error) {
	return f.answer(q)
}

func (f *fakeProvider) Location(_ context.Context, q model.LocationQuery) (provider.Result, error) {
	return f.answer(q)
}

func (f *fakeProvider) Locations(_ context.Context, q model.LocationsQuery) (provider.Result, error) {
	return f.answer(q)
}

func newServer(providers map[string]provider.CoverageProvider) http.Handler {
	r := chi.NewRouter()
	New(slog.New(slog.NewTextHandler(io.Discard, nil)), providers, nil).Routes(r)
	return r
}

func get(h http.Handler, target string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeException(t *testing.T, rr *httptest.ResponseRecorder) exception {
	t.Helper()
	var e exception
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("exception body %q: %v", rr.Body.String(), err)
	}
	return e
}

func TestRoutes_ParseIntoQueries(t *testing.T) {
	fp := &fakeProvider{}
	h := newServer(map[string]provider.CoverageProvider{"metoffice": fp})

	rr := get(h, "/collections/metoffice/position?coords=POINT(-2%2051)&datetime=2018-02-12T00:00:00Z/..&parameter-name=temperature&crs=EPSG:4326")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != model.MediaCovJSON {
		t.Fatalf("content-type=%q want %q", ct, model.MediaCovJSON)
	}
	pq := fp.last.(model.PositionQuery)
	if pq.Coords != "POINT(-2 51)" || pq.Collection != "metoffice" || pq.ParameterName != "temperature" || pq.CRS != "EPSG:4326" {
		t.Fatalf("position query=%+v", pq)
	}
	if pq.Datetime == nil || !pq.Datetime.Interval || pq.Datetime.End != model.Open {
		t.Fatalf("datetime=%+v", pq.Datetime)
	}

	rr = get(h, "/collections/metoffice/cube?bbox=-3,50,0,-1,52,10&f=netcdf")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != model.MediaNetCDF || rr.Body.String() != "CDF\x01" {
		t.Fatalf("cube status=%d ct=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	cq := fp.last.(model.CubeQuery)
	if len(cq.BBox) != 4 || cq.BBox[2] != -1 || cq.BBox[3] != 52 || cq.MediaType != model.MediaNetCDF {
		t.Fatalf("cube query=%+v", cq)
	}

	_ = get(h, "/collections/metoffice/radius?coords=POINT(0%200)&within=5&within-units=km")
	if rq := fp.last.(model.RadiusQuery); rq.Within != "5" || rq.WithinUnits != "km" {
		t.Fatalf("radius query=%+v", rq)
	}

	_ = get(h, "/collections/metoffice/corridor?coords=LINESTRING(0%200,1%201)&corridor-width=10&width-units=km&corridor-height=100&height-units=m&resolution-x=2000")
	kq := fp.last.(model.CorridorQuery)
	if kq.Width != "10" || kq.WidthUnits != "km" || kq.Height != "100" || kq.Resolution == nil || *kq.Resolution != 2000 {
		t.Fatalf("corridor query=%+v", kq)
	}

	rr = get(h, "/collections/metoffice/items?bbox=-3,50,-1,52&limit=5&offset=10&datetime=2018-02-12T06:00:00Z")
	if rr.Header().Get("Content-Type") != model.MediaGeoJSON {
		t.Fatalf("items content-type=%q", rr.Header().Get("Content-Type"))
	}
	iq := fp.last.(model.ItemsQuery)
	if iq.Limit != 5 || iq.Offset != 10 || len(iq.BBox) != 4 || iq.Datetime == nil {
		t.Fatalf("items query=%+v", iq)
	}

	rr = get(h, "/collections/metoffice/items/0_1_2")
	if fp.last.(string) != "metoffice/0_1_2" || rr.Header().Get("Content-Type") != model.MediaJSON {
		t.Fatalf("item call=%v ct=%q", fp.last, rr.Header().Get("Content-Type"))
	}

	_ = get(h, "/collections/metoffice/locations/Bristol%20Airport", "Accept", "application/x-netcdf")
	if lq := fp.last.(model.LocationQuery); lq.LocationID != "Bristol Airport" || lq.MediaType != model.MediaNetCDF {
		t.Fatalf("location query=%+v", lq)
	}
}

func TestRoutes_Errors(t *testing.T) {
	fp := &fakeProvider{}
	h := newServer(map[string]provider.CoverageProvider{"metoffice": fp})

	cases := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown collection", "/collections/nope/position?coords=POINT(0%200)", http.StatusNotFound, "NotFound"},
		{"missing coords", "/collections/metoffice/area", http.StatusBadRequest, "InvalidParameterValue"},
		{"bad bbox", "/collections/metoffice/cube?bbox=1,2,3", http.StatusBadRequest, "InvalidParameterValue"},
		{"inverted bbox", "/collections/metoffice/cube?bbox=3,2,1,4", http.StatusBadRequest, "InvalidParameterValue"},
		{"bad datetime", "/collections/metoffice/position?coords=POINT(0%200)&datetime=../..", http.StatusBadRequest, "InvalidParameterValue"},
		{"bad limit", "/collections/metoffice/items?limit=ten", http.StatusBadRequest, "InvalidParameterValue"},
		{"html not offered", "/collections/metoffice/position?coords=POINT(0%200)&f=html", http.StatusBadRequest, "InvalidParameterValue"},
		{"netcdf not offered for items", "/collections/metoffice/items?f=netcdf", http.StatusBadRequest, "InvalidParameterValue"},
		{"unknown format", "/collections/metoffice/position?coords=POINT(0%200)&f=xml", http.StatusBadRequest, "InvalidParameterValue"},
		{"corridor without width", "/collections/metoffice/corridor?coords=LINESTRING(0%200,1%201)", http.StatusBadRequest, "InvalidParameterValue"},
	}
	for _, tc := range cases {
		fp.last = nil
		rr := get(h, tc.target)
		if rr.Code != tc.status {
			t.Fatalf("%s: status=%d want %d (%s)", tc.name, rr.Code, tc.status, rr.Body.String())
		}
		if e := decodeException(t, rr); e.Code != tc.code || e.Description == "" {
			t.Fatalf("%s: exception=%+v", tc.name, e)
		}
		if fp.last != nil {
			t.Fatalf("%s: provider must not be called", tc.name)
		}
	}
}

func TestRoutes_ProviderErrorsMapToStatus(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
		desc   string
	}{
		{edrerr.NewNotFound("no data in range"), http.StatusNotFound, "no data in range"},
		{edrerr.NewInvalidInput("bad unit %q", "parsecs"), http.StatusBadRequest, `bad unit "parsecs"`},
		{edrerr.NewInternal("disk on fire"), http.StatusInternalServerError, "internal server error"},
	} {
		h := newServer(map[string]provider.CoverageProvider{"metoffice": &fakeProvider{err: tc.err}})
		rr := get(h, "/collections/metoffice/area?coords=POLYGON((0%200,1%200,1%201,0%200))")
		if rr.Code != tc.status {
			t.Fatalf("%v: status=%d want %d", tc.err, rr.Code, tc.status)
		}
		if e := decodeException(t, rr); e.Description != tc.desc {
			t.Fatalf("%v: description=%q want %q", tc.err, e.Description, tc.desc)
		}
	}
}

func TestRoutes_HTTPMetricsUseRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	t.Cleanup(func() { observability.Init(nil, false) })

	h := newServer(map[string]provider.CoverageProvider{"metoffice": &fakeProvider{}})
	_ = get(h, "/collections/metoffice/items/1_2_3")
	_ = get(h, "/collections/metoffice/items/4_5_6")

	want := `
# HELP http_requests_total Total number of HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/collections/{collectionId}/items/{itemId}",status="200"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "http_requests_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

type fixedSource struct{ ds *dataset.Dataset }

func (s fixedSource) Open(context.Context, string) (*dataset.Dataset, string, error) {
	return s.ds, "", nil
}

func TestPosition_EndToEnd(t *testing.T) {
	coll := config.Collection{ID: "metoffice", Provider: config.ProviderDef{Name: "xarray-edr", Data: "grid.nc"}}
	gp := provider.NewGridProvider(coll, provider.Deps{
		Datasets: fixedSource{ds: datasettest.Grid(datasettest.DefaultGrid())},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	h := newServer(map[string]provider.CoverageProvider{"metoffice": gp})

	rr := get(h, "/collections/metoffice/position?coords=POINT(-2%2051)&parameter-name=temperature", "Accept", "application/json;q=0.5, application/prs.coverage+json")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != model.MediaCovJSON {
		t.Fatalf("content-type=%q", ct)
	}
	var doc map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("body: %v", err)
	}
	if !strings.Contains(rr.Body.String(), `"temperature"`) {
		t.Fatalf("temperature range missing: %s", rr.Body.String())
	}

	rr = get(h, "/collections/metoffice/position?coords=POINT(-2%2051)&f=netcdf")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "CDF") {
		t.Fatalf("netcdf status=%d prefix=%q", rr.Code, rr.Body.String()[:min(4, rr.Body.Len())])
	}
}
