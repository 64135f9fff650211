package units

import (
	"math"
	"testing"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
)

func TestMetres(t *testing.T) {
	cases := []struct {
		value float64
		unit  string
		want  float64
	}{
		{1, "km", 1000},
		{2, "Kilometres", 2000},
		{10, "m", 10},
		{1, "mi", 1609.344},
		{3, "ft", 0.9144},
		{250, "cm", 2.5},
		{2, "kilometers", 2000},
		{3, "feet", 0.9144},
	}
	for _, tc := range cases {
		got, err := Metres(tc.value, tc.unit)
		if err != nil {
			t.Fatalf("Metres(%v, %q): %v", tc.value, tc.unit, err)
		}
		if diff := got - tc.want; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("Metres(%v, %q)=%v want %v", tc.value, tc.unit, got, tc.want)
		}
	}
}

func TestMetres_UnknownUnitIsInvalidInput(t *testing.T) {
	_, err := Metres(5, "not-a-unit")
	if !edrerr.Is(err, edrerr.InvalidInput) {
		t.Fatalf("err=%v want InvalidInput", err)
	}
}

func TestMetres_NonLengthIsInvalidInput(t *testing.T) {
	_, err := Metres(5, "kg")
	if !edrerr.Is(err, edrerr.InvalidInput) {
		t.Fatalf("err=%v want InvalidInput", err)
	}
}

func TestParseMetres(t *testing.T) {
	got, err := ParseMetres(" 2.5 ", "km")
	if err != nil || math.Abs(got-2500) > 1e-6 {
		t.Fatalf("ParseMetres=%v,%v", got, err)
	}
	if _, err := ParseMetres("ten", "km"); !edrerr.Is(err, edrerr.InvalidInput) {
		t.Fatalf("err=%v want InvalidInput", err)
	}
}
