// Package covjson models CoverageJSON documents and assembles them from
// selected dataset subsets.
package covjson

import (
	"fmt"
	"math"
	"strings"
)

const (
	TypeCoverage   = "Coverage"
	TypeCollection = "CoverageCollection"
	TypeDomain     = "Domain"
	TypeNdArray    = "NdArray"
	TypeParameter  = "Parameter"

	DomainGrid       = "Grid"
	DomainPoint      = "Point"
	DomainTrajectory = "Trajectory"
)

type Coverage struct {
	Type       string               `json:"type"`
	DomainType string               `json:"domainType,omitempty"`
	Domain     *Domain              `json:"domain"`
	Parameters map[string]Parameter `json:"parameters,omitempty"`
	Ranges     map[string]*NdArray  `json:"ranges"`
}

type CoverageCollection struct {
	Type        string               `json:"type"`
	DomainType  string               `json:"domainType,omitempty"`
	Parameters  map[string]Parameter `json:"parameters"`
	Referencing []Reference          `json:"referencing"`
	Coverages   []*Coverage          `json:"coverages"`
}

type Domain struct {
	Type        string          `json:"type"`
	DomainType  string          `json:"domainType,omitempty"`
	Axes        map[string]Axis `json:"axes"`
	Referencing []Reference     `json:"referencing,omitempty"`
}

// Axis is either a plain value list or a composite tuple axis.
type Axis struct {
	DataType    string   `json:"dataType,omitempty"`
	Coordinates []string `json:"coordinates,omitempty"`
	Values      []any    `json:"values"`
}

type Reference struct {
	Coordinates []string `json:"coordinates"`
	System      System   `json:"system"`
}

type System struct {
	Type              string   `json:"type"`
	ID                string   `json:"id,omitempty"`
	Calendar          string   `json:"calendar,omitempty"`
	InverseFlattening *float64 `json:"inverseFlattening,omitempty"`
}

type NdArray struct {
	Type      string   `json:"type"`
	DataType  string   `json:"dataType"`
	AxisNames []string `json:"axisNames"`
	Shape     []int    `json:"shape"`
	Values    []any    `json:"values"`
}

// Validate checks that values fill shape and every axis is named.
func (a *NdArray) Validate() error {
	if len(a.AxisNames) != len(a.Shape) {
		return fmt.Errorf("ndarray: %d axis names for %d dims", len(a.AxisNames), len(a.Shape))
	}
	n := 1
	for _, s := range a.Shape {
		n *= s
	}
	if n != len(a.Values) {
		return fmt.Errorf("ndarray: %d values for shape %v", len(a.Values), a.Shape)
	}
	return nil
}

type Parameter struct {
	Type             string            `json:"type"`
	ID               string            `json:"id,omitempty"`
	Description      map[string]string `json:"description"`
	Label            map[string]string `json:"label"`
	DataType         string            `json:"data-type,omitempty"`
	Unit             Unit              `json:"unit"`
	ObservedProperty ObservedProperty  `json:"observedProperty"`
}

type Unit struct {
	Label  map[string]string `json:"label"`
	Symbol *Symbol           `json:"symbol"`
}

type Symbol struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type ObservedProperty struct {
	ID    string            `json:"id,omitempty"`
	Label map[string]string `json:"label"`
}

// DataType maps an element type name onto the CoverageJSON range data types.
func DataType(dtype string) string {
	d := strings.ToLower(dtype)
	switch {
	case strings.HasPrefix(d, "int"), strings.HasPrefix(d, "uint"):
		return "integer"
	case strings.HasPrefix(d, "float"):
		return "float"
	}
	return "string"
}

// jsonValue turns missing numbers into null.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}
