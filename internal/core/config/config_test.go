package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	c := FromEnv()
	if c.Addr != ":5000" || c.ItemsLimitMax != 10000 {
		t.Fatalf("addr=%q items max=%d", c.Addr, c.ItemsLimitMax)
	}
	if c.LocationsLimitDefault != 10 || c.LocationsLimitMax != 1000 {
		t.Fatalf("locations limits=%d/%d", c.LocationsLimitDefault, c.LocationsLimitMax)
	}
	if c.CORSOrigins != nil {
		t.Fatalf("cors origins=%v want none", c.CORSOrigins)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("SERVER_URL", "https://edr.example.org/")
	t.Setenv("LOCATIONS_LIMIT_MAX", "50")
	t.Setenv("LOCATIONS_LIMIT_DEFAULT", "500")
	t.Setenv("AXIS_CACHE_TTL", "30s")
	t.Setenv("AXIS_CACHE_TTL_OVERRIDES", "era5=5m, bad, =1s")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	c := FromEnv()
	if c.Addr != ":9999" || c.BaseURL != "https://edr.example.org" {
		t.Fatalf("addr=%q base=%q", c.Addr, c.BaseURL)
	}
	if c.LocationsLimitMax != 50 || c.LocationsLimitDefault != 10 {
		t.Fatalf("locations limits=%d/%d", c.LocationsLimitDefault, c.LocationsLimitMax)
	}
	if c.AxisTTL("era5") != 5*time.Minute || c.AxisTTL("other") != 30*time.Second {
		t.Fatalf("ttl era5=%v other=%v", c.AxisTTL("era5"), c.AxisTTL("other"))
	}
	if len(c.AxisCacheTTLOvr) != 1 {
		t.Fatalf("overrides=%v", c.AxisCacheTTLOvr)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins=%v", c.CORSOrigins)
	}
}

const sampleCollections = `
collections:
  - id: icoads-sst
    title: ICOADS sea surface temperature
    provider:
      name: netcdf-grid
      data: /data/sst.nc
      x_field: lon
      loc_shapefile: /data/ports.shp
      limitmax: 500
    parameters:
      sst:
        description: Sea surface temperature
        unit: degC
        data_type: float
`

func TestLoadCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.yml")
	if err := os.WriteFile(path, []byte(sampleCollections), 0o600); err != nil {
		t.Fatal(err)
	}
	cs, err := LoadCollections(path)
	if err != nil {
		t.Fatalf("LoadCollections: %v", err)
	}
	c, ok := cs.Get("icoads-sst")
	if !ok {
		t.Fatalf("collection missing")
	}
	if c.Provider.Data != "/data/sst.nc" || c.Provider.XField != "lon" || c.Provider.LimitMax != 500 {
		t.Fatalf("provider=%+v", c.Provider)
	}
	if c.Parameters["sst"].Unit != "degC" {
		t.Fatalf("parameters=%+v", c.Parameters)
	}
	if _, ok := cs.Get("nope"); ok {
		t.Fatalf("unknown collection found")
	}
	if len(cs.List()) != 1 {
		t.Fatalf("list=%v", cs.List())
	}
}

func TestParseCollections_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing data":   "collections:\n  - id: a\n    provider:\n      name: netcdf-grid\n",
		"bad data type":  strings.Replace(sampleCollections, "data_type: float", "data_type: complex", 1),
		"unknown field":  "collections:\n  - id: a\n    colour: red\n",
		"negative limit": strings.Replace(sampleCollections, "limitmax: 500", "limitmax: -1", 1),
		"duplicate ids":  sampleCollections + strings.SplitN(sampleCollections, "collections:\n", 2)[1],
	}
	for name, doc := range cases {
		if _, err := ParseCollections([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
