package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseBBox(t *testing.T) {
	cases := []struct {
		raw  string
		want []float64
		ok   bool
	}{
		{"", nil, true},
		{"-3,50,-1,52", []float64{-3, 50, -1, 52}, true},
		{" -3 , 50 , 0 , -1 , 52 , 100 ", []float64{-3, 50, -1, 52}, true},
		{"1,2,3", nil, false},
		{"1,2,3,4,5", nil, false},
		{"a,2,3,4", nil, false},
		{"0,0,NaN,1", nil, false},
		{"5,0,1,1", nil, false},
	}
	for _, tc := range cases {
		got, err := parseBBox(tc.raw)
		if (err == nil) != tc.ok {
			t.Fatalf("%q: err=%v want ok=%v", tc.raw, err, tc.ok)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%q: got %v want %v", tc.raw, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%q: got %v want %v", tc.raw, got, tc.want)
			}
		}
	}
}

func TestParseListing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?limit=-3&offset=7", nil)
	l, err := parseListing(req)
	if err != nil {
		t.Fatalf("parseListing: %v", err)
	}
	// clamping is the provider's job
	if l.limit != -3 || l.offset != 7 || l.bbox != nil {
		t.Fatalf("listing=%+v", l)
	}
	req = httptest.NewRequest(http.MethodGet, "/x?offset=1.5", nil)
	if _, err := parseListing(req); err == nil {
		t.Fatalf("expected error for fractional offset")
	}
}

func TestParseCommon_TrimsAndKeepsMediaType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?parameter-name=%20temperature,pressure%20&z=850&crs=%20EPSG:27700", nil)
	c, err := parseCommon(req, "metoffice", "application/x-netcdf")
	if err != nil {
		t.Fatalf("parseCommon: %v", err)
	}
	if c.ParameterName != "temperature,pressure" || c.Z != "850" || c.CRS != "EPSG:27700" || c.Datetime != nil {
		t.Fatalf("common=%+v", c)
	}
	if c.Collection != "metoffice" || c.MediaType != "application/x-netcdf" {
		t.Fatalf("common=%+v", c)
	}
}
