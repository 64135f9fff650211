package ncio

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset/datasettest"
)

func TestExportThenOpen_PreservesGrid(t *testing.T) {
	o := datasettest.DefaultGrid()
	o.WithCRS = true
	src := datasettest.Grid(o)

	b, err := Export(src)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(b) < 4 || string(b[:3]) != "CDF" {
		t.Fatalf("export is not a netCDF classic file: % x", b[:4])
	}
	path := filepath.Join(t.TempDir(), "grid.nc")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}

	ds, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, name := range []string{"time", "lat", "lon"} {
		if ds.Coord(name) == nil {
			t.Fatalf("coordinate %s missing", name)
		}
	}
	temp := ds.Var("temperature")
	if temp == nil || !reflect.DeepEqual(temp.Shape, []int{2, 3, 3}) {
		t.Fatalf("temperature=%+v", temp)
	}
	if temp.DType != "float32" {
		t.Fatalf("dtype=%q want float32", temp.DType)
	}
	if v, _ := temp.At(1, 2, 0); v != datasettest.Value(1, 2, 0) {
		t.Fatalf("temperature[1,2,0]=%v", v)
	}
	if got, _ := temp.Attrs.String("long_name"); got != "Air temperature" {
		t.Fatalf("long_name=%q", got)
	}
	if got := ds.Coord("time").Times[1].String(); got != "2018-02-12T06:00:00Z" {
		t.Fatalf("time[1]=%s", got)
	}
	if ds.Var("crs") == nil {
		t.Fatalf("crs variable missing")
	}
	if got, _ := ds.Attrs.String("title"); got != "synthetic grid" {
		t.Fatalf("title=%q", got)
	}
}

func TestExport_MaskedValuesRoundTripAsNaN(t *testing.T) {
	src := datasettest.Grid(datasettest.DefaultGrid())
	masked, err := src.Mask("lat", "lon", func(y, x int) bool { return x > 0 })
	if err != nil {
		t.Fatal(err)
	}
	b, err := Export(masked)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	path := filepath.Join(t.TempDir(), "masked.nc")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	temp := ds.Var("temperature")
	if v, _ := temp.At(0, 0, 0); !math.IsNaN(v) {
		t.Fatalf("masked cell=%v want NaN", v)
	}
	if v, _ := temp.At(0, 0, 1); v != datasettest.Value(0, 0, 1) {
		t.Fatalf("kept cell=%v", v)
	}
	if _, ok := temp.Attrs["_FillValue"]; ok {
		t.Fatalf("_FillValue should be consumed on read")
	}
}

func TestExport_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	if _, err := Export(datasettest.Grid(datasettest.DefaultGrid())); err != nil {
		t.Fatalf("Export: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir not cleaned: %v", entries)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.nc")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestExport_DropsReservedAttributes(t *testing.T) {
	src := datasettest.Grid(datasettest.DefaultGrid())
	src.Var("temperature").Attrs["_CoordinateAxes"] = "time lat lon"
	src.Attrs["_NCProperties"] = "version=2"

	b, err := Export(src)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	path := filepath.Join(t.TempDir(), "reserved.nc")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	temp := ds.Var("temperature")
	if _, ok := temp.Attrs["_CoordinateAxes"]; ok {
		t.Fatalf("reserved variable attribute exported: %v", temp.Attrs)
	}
	if got, _ := temp.Attrs.String("units"); got != "K" {
		t.Fatalf("units=%q want K", got)
	}
	if _, ok := ds.Attrs["_NCProperties"]; ok {
		t.Fatalf("reserved global attribute exported: %v", ds.Attrs)
	}
}
