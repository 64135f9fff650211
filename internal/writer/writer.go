// Package writer renders provider results in a negotiated media type.
package writer

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/provider"
)

// Category groups the results that share a set of output formats.
type Category string

const (
	// Coverage results come from position, area, cube, radius, trajectory,
	// corridor and location queries.
	Coverage Category = "coverage"
	// Listing results are the items and locations feature collections.
	Listing Category = "listing"
	// Object results are plain JSON objects such as a single item.
	Object Category = "object"
)

type ResultWriter interface {
	MediaType() string
	Write(w io.Writer, res provider.Result) error
}

type jsonWriter struct{ mediaType string }

func (j jsonWriter) MediaType() string { return j.mediaType }

func (j jsonWriter) Write(w io.Writer, res provider.Result) error {
	if res.Doc == nil {
		return edrerr.NewInternal("no document to encode as %s", j.mediaType)
	}
	if err := json.NewEncoder(w).Encode(res.Doc); err != nil {
		return fmt.Errorf("encode %s: %w", j.mediaType, err)
	}
	return nil
}

type netcdfWriter struct{}

func (netcdfWriter) MediaType() string { return model.MediaNetCDF }

func (netcdfWriter) Write(w io.Writer, res provider.Result) error {
	if res.Body == nil {
		return edrerr.NewInternal("no netCDF payload")
	}
	if _, err := w.Write(res.Body); err != nil {
		return fmt.Errorf("write netCDF: %w", err)
	}
	return nil
}

func JSON(mediaType string) ResultWriter { return jsonWriter{mediaType: mediaType} }

func NetCDF() ResultWriter { return netcdfWriter{} }

type key struct {
	cat       Category
	mediaType string
}

// Registry selects a writer by result category and media type. Offered
// lists the media types of a category in registration order; the first one
// is the category default.
type Registry struct {
	writers map[key]ResultWriter
	offered map[Category][]string
}

func NewRegistry() *Registry {
	return &Registry{writers: map[key]ResultWriter{}, offered: map[Category][]string{}}
}

// DefaultRegistry registers the JSON family and netCDF. HTML has no writer.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Coverage, JSON(model.MediaCovJSON))
	r.Register(Coverage, JSON(model.MediaJSON))
	r.Register(Coverage, NetCDF())
	r.Register(Listing, JSON(model.MediaGeoJSON))
	r.Register(Listing, JSON(model.MediaJSON))
	r.Register(Object, JSON(model.MediaJSON))
	return r
}

func (r *Registry) Register(cat Category, w ResultWriter) {
	k := key{cat: cat, mediaType: w.MediaType()}
	if _, dup := r.writers[k]; !dup {
		r.offered[cat] = append(r.offered[cat], w.MediaType())
	}
	r.writers[k] = w
}

func (r *Registry) Lookup(cat Category, mediaType string) (ResultWriter, error) {
	if w, ok := r.writers[key{cat: cat, mediaType: mediaType}]; ok {
		return w, nil
	}
	return nil, edrerr.NewInvalidInput("format %s is not available for this query", mediaType)
}

func (r *Registry) Offered(cat Category) []string {
	return append([]string(nil), r.offered[cat]...)
}
