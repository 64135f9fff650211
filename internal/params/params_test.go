package params

import (
	"reflect"
	"testing"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/config"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset/datasettest"
)

func TestResolve(t *testing.T) {
	fields := []string{"temperature", "pressure"}
	got, err := Resolve("", fields)
	if err != nil || !reflect.DeepEqual(got, fields) {
		t.Fatalf("empty -> %v, %v", got, err)
	}
	got, err = Resolve(" pressure , temperature,pressure", fields)
	if err != nil || !reflect.DeepEqual(got, []string{"pressure", "temperature"}) {
		t.Fatalf("list -> %v, %v", got, err)
	}
	if _, err := Resolve("humidity", fields); !edrerr.Is(err, edrerr.InvalidInput) {
		t.Fatalf("unknown -> %v", err)
	}
	if _, err := Resolve("", nil); !edrerr.Is(err, edrerr.NotFound) {
		t.Fatalf("no fields -> %v", err)
	}
}

func TestDescribe_FromAttributes(t *testing.T) {
	ds := datasettest.Grid(datasettest.DefaultGrid())
	got := Describe(ds, []string{"temperature", "pressure", "orography"}, nil)

	temp := got["temperature"]
	if temp.Description["en"] != "Air temperature" || temp.Label["en"] != "air_temperature" {
		t.Fatalf("temperature=%+v", temp)
	}
	if temp.Unit.Symbol == nil || temp.Unit.Symbol.Value != "K" || temp.Unit.Label["en"] != "K" {
		t.Fatalf("unit=%+v", temp.Unit)
	}
	if temp.DataType != "float32" || temp.ObservedProperty.ID != "temperature" {
		t.Fatalf("temperature=%+v", temp)
	}

	// no standard_name: label falls back to long_name
	if got["pressure"].Label["en"] != "Surface pressure" {
		t.Fatalf("pressure label=%v", got["pressure"].Label)
	}
	// no long_name or standard_name: nulls, not errors
	oro := got["orography"]
	if oro.Description != nil || oro.Label != nil || oro.Unit.Symbol.Value != "m" {
		t.Fatalf("orography=%+v", oro)
	}
}

func TestDescribe_ConfiguredWins(t *testing.T) {
	ds := datasettest.Grid(datasettest.DefaultGrid())
	got := Describe(ds, []string{"temperature"}, map[string]config.ParameterDesc{
		"temperature": {Description: "2m temperature", Unit: "Cel"},
	})
	temp := got["temperature"]
	if temp.Description["en"] != "2m temperature" || temp.Label["en"] != "2m temperature" {
		t.Fatalf("temperature=%+v", temp)
	}
	if temp.Unit.Symbol.Value != "Cel" || temp.DataType != "float32" {
		t.Fatalf("temperature=%+v", temp)
	}
}
