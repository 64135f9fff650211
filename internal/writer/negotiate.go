package writer

import (
	"strconv"
	"strings"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
)

// formatTokens maps the f query parameter to a media type.
var formatTokens = map[string]string{
	"json":         model.MediaJSON,
	"html":         model.MediaHTML,
	"coveragejson": model.MediaCovJSON,
	"covjson":      model.MediaCovJSON,
	"geojson":      model.MediaGeoJSON,
	"netcdf":       model.MediaNetCDF,
}

type NegotiationInput struct {
	AcceptHeader string
	Format       string
	Offered      []string
}

// Negotiate picks the response media type. The f parameter wins, then the
// offered type with the highest Accept q-value, then the first offered
// type. An unknown f token is rejected.
func Negotiate(in NegotiationInput) (string, error) {
	def := model.MediaJSON
	if len(in.Offered) > 0 {
		def = in.Offered[0]
	}

	if f := strings.ToLower(strings.TrimSpace(in.Format)); f != "" {
		if mt, ok := formatTokens[f]; ok {
			return mt, nil
		}
		if strings.Contains(f, "/") {
			return f, nil
		}
		return "", edrerr.NewInvalidInput("unknown format %q", in.Format)
	}

	offered := make(map[string]bool, len(in.Offered))
	for _, o := range in.Offered {
		offered[o] = true
	}
	bestQ := 0.0
	best := ""
	for part := range strings.SplitSeq(strings.ToLower(in.AcceptHeader), ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		mt := token
		params := ""
		if i := strings.Index(token, ";"); i >= 0 {
			mt = strings.TrimSpace(token[:i])
			params = token[i+1:]
		}
		q := 1.0
		for p := range strings.SplitSeq(params, ";") {
			p = strings.TrimSpace(p)
			if after, ok := strings.CutPrefix(p, "q="); ok {
				if v, err := strconv.ParseFloat(after, 64); err == nil {
					q = v
				}
			}
		}
		var cand string
		switch {
		case mt == "*/*":
			cand = def
		case offered[mt]:
			cand = mt
		}
		if cand != "" && q > bestQ {
			bestQ = q
			best = cand
		}
	}
	if best != "" {
		return best, nil
	}
	return def, nil
}
