// Package params resolves requested parameter names and describes them.
package params

import (
	"strings"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/config"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/covjson"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
)

const ucum = "http://www.opengis.net/def/uom/UCUM/"

// Resolve splits a comma separated parameter-name value. An empty value
// selects every field; unknown names are rejected.
func Resolve(parameterName string, fields []string) ([]string, error) {
	if strings.TrimSpace(parameterName) == "" {
		if len(fields) == 0 {
			return nil, edrerr.NewNotFound("collection has no data fields")
		}
		return append([]string(nil), fields...), nil
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, p := range strings.Split(parameterName, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		if !known[p] {
			return nil, edrerr.NewInvalidInput("unknown parameter %q", p)
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, edrerr.NewInvalidInput("no parameter names in %q", parameterName)
	}
	return out, nil
}

// Describe builds the CoverageJSON parameter block for names. Configured
// descriptions take precedence over variable attributes.
func Describe(ds *dataset.Dataset, names []string, configured map[string]config.ParameterDesc) map[string]covjson.Parameter {
	out := make(map[string]covjson.Parameter, len(names))
	for _, n := range names {
		if c, ok := configured[n]; ok {
			out[n] = fromConfig(n, c, ds.Var(n))
			continue
		}
		if v := ds.Var(n); v != nil {
			out[n] = fromAttrs(n, v)
		}
	}
	return out
}

func fromAttrs(name string, v *dataset.Variable) covjson.Parameter {
	longName, hasLong := v.Attrs.String("long_name")
	label, hasLabel := v.Attrs.String("standard_name")
	if !hasLabel {
		label, hasLabel = longName, hasLong
	}
	units, hasUnits := v.Attrs.String("units")

	p := covjson.Parameter{
		Type:             covjson.TypeParameter,
		ID:               name,
		DataType:         v.DType,
		ObservedProperty: covjson.ObservedProperty{ID: name},
	}
	if hasLong {
		p.Description = en(longName)
	}
	if hasLabel {
		p.Label = en(label)
		p.ObservedProperty.Label = en(label)
	}
	if hasUnits {
		p.Unit = covjson.Unit{Label: en(units), Symbol: &covjson.Symbol{Type: ucum, Value: units}}
	}
	return p
}

func fromConfig(name string, c config.ParameterDesc, v *dataset.Variable) covjson.Parameter {
	p := covjson.Parameter{
		Type:             covjson.TypeParameter,
		ID:               name,
		DataType:         c.DataType,
		ObservedProperty: covjson.ObservedProperty{ID: name},
	}
	if p.DataType == "" && v != nil {
		p.DataType = v.DType
	}
	if c.Description != "" {
		p.Description = en(c.Description)
	}
	label := c.Label
	if label == "" {
		label = c.Description
	}
	if label != "" {
		p.Label = en(label)
		p.ObservedProperty.Label = en(label)
	}
	if c.Unit != "" {
		sym := c.Symbol
		if sym == "" {
			sym = c.Unit
		}
		p.Unit = covjson.Unit{Label: en(c.Unit), Symbol: &covjson.Symbol{Type: ucum, Value: sym}}
	}
	return p
}

func en(s string) map[string]string { return map[string]string{"en": s} }
