package axes

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset/datasettest"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDiscover_SyntheticGrid(t *testing.T) {
	ds := datasettest.Grid(datasettest.DefaultGrid())
	p := Discover(ds, Overrides{}, quiet())

	if p.XLabel != "lon" || p.YLabel != "lat" || p.TimeLabel != "time" {
		t.Fatalf("labels=%q,%q,%q", p.XLabel, p.YLabel, p.TimeLabel)
	}
	if want := []float64{-3, 50, -1, 52}; !reflect.DeepEqual(p.BBox, want) {
		t.Fatalf("bbox=%v want %v", p.BBox, want)
	}
	if p.Width != 3 || p.Height != 3 || p.Time != 2 {
		t.Fatalf("extent=%d,%d,%d", p.Width, p.Height, p.Time)
	}
	if p.ResX != 1 || p.ResY != 1 {
		t.Fatalf("res=%v,%v", p.ResX, p.ResY)
	}
	if p.ResTime != "6 hours" || p.TimeDuration != "6 hours" {
		t.Fatalf("restime=%q duration=%q", p.ResTime, p.TimeDuration)
	}
	if want := []string{"2018-02-12T00:00:00Z", "2018-02-12T06:00:00Z"}; !reflect.DeepEqual(p.TimeRange, want) {
		t.Fatalf("time_range=%v", p.TimeRange)
	}
	if want := []string{"temperature", "pressure"}; !reflect.DeepEqual(p.Fields, want) {
		t.Fatalf("fields=%v want %v", p.Fields, want)
	}
	if want := []string{"time", "lat", "lon"}; !reflect.DeepEqual(p.Axes, want) {
		t.Fatalf("axes=%v", p.Axes)
	}
	if p.CRSType != Geographic || p.BBoxCRS != CRS84URL || p.InverseFlattening != nil {
		t.Fatalf("crs=%q %q", p.CRSType, p.BBoxCRS)
	}
	if err := p.Validate(ds); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDiscover_Idempotent(t *testing.T) {
	ds := datasettest.Grid(datasettest.DefaultGrid())
	a := Discover(ds, Overrides{}, quiet())
	b := Discover(ds, Overrides{}, quiet())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("discovery not idempotent:\n%+v\n%+v", a, b)
	}
}

func TestDiscover_BBoxUsesFirstAndLastSamples(t *testing.T) {
	o := datasettest.DefaultGrid()
	o.Lats = []float64{52, 51, 50}
	p := Discover(datasettest.Grid(o), Overrides{}, quiet())
	if want := []float64{-3, 52, -1, 50}; !reflect.DeepEqual(p.BBox, want) {
		t.Fatalf("bbox=%v want %v", p.BBox, want)
	}
}

func TestDiscover_CRSVariable(t *testing.T) {
	o := datasettest.DefaultGrid()
	o.WithCRS = true
	p := Discover(datasettest.Grid(o), Overrides{}, quiet())
	if p.CRSType != Projected {
		t.Fatalf("crs_type=%q", p.CRSType)
	}
	if p.EPSGCode != "EPSG:4326" || p.BBoxCRS != "http://www.opengis.net/def/crs/EPSG/0/4326" {
		t.Fatalf("epsg=%q bbox_crs=%q", p.EPSGCode, p.BBoxCRS)
	}
	if p.InverseFlattening == nil || *p.InverseFlattening != 298.257223563 {
		t.Fatalf("inverse_flattening=%v", p.InverseFlattening)
	}
}

func TestDiscover_NonGregorianTimeRange(t *testing.T) {
	o := datasettest.DefaultGrid()
	o.Calendar = "julian"
	p := Discover(datasettest.Grid(o), Overrides{}, quiet())
	if want := []string{"2018-02-12", "2018-02-12"}; !reflect.DeepEqual(p.TimeRange, want) {
		t.Fatalf("julian time_range=%v", p.TimeRange)
	}

	o.Calendar = "360_day"
	p = Discover(datasettest.Grid(o), Overrides{}, quiet())
	if p.TimeRange[1] != "2018-02-12T06:00:00.000000Z" {
		t.Fatalf("360_day time_range=%v", p.TimeRange)
	}
}

func TestDiscover_OverridesWin(t *testing.T) {
	ds := datasettest.Grid(datasettest.DefaultGrid())
	p := Discover(ds, Overrides{X: "lat", Y: "lon"}, quiet())
	if p.XLabel != "lat" || p.YLabel != "lon" {
		t.Fatalf("overrides ignored: %q %q", p.XLabel, p.YLabel)
	}
	if p.Rename("lat") != "x" || p.Rename("time") != "t" || p.Rename("other") != "other" {
		t.Fatalf("Rename mismatch")
	}
}

func TestDiscover_MissingAxesNeverFails(t *testing.T) {
	v := &dataset.Variable{Name: "v", Dims: []string{"a"}, Shape: []int{2}, DType: "float64", Data: []float64{1, 2}}
	ds, err := dataset.New(nil, []*dataset.Variable{v}, nil)
	if err != nil {
		t.Fatal(err)
	}
	p := Discover(ds, Overrides{}, quiet())
	if p.BBox != nil || p.Fields != nil {
		t.Fatalf("unexpected properties %+v", p)
	}
	if err := p.Validate(ds); !edrerr.Is(err, edrerr.NotFound) {
		t.Fatalf("Validate err=%v want NotFound", err)
	}
}
