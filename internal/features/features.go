// Package features models the GeoJSON documents returned by the items and
// locations listings.
package features

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const (
	relData      = "data"
	typeFeature  = "Feature"
	typeFeatColl = "FeatureCollection"
)

type Link struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

func DataLink(href, mediaType, title string) Link {
	return Link{Href: href, Rel: relData, Type: mediaType, Title: title}
}

// EdrProperties is the fixed part of a feature's properties. Label is a
// pointer so a missing title serialises as null.
type EdrProperties struct {
	Datetime         any
	Label            *string
	EdrQueryEndpoint string
	ParameterNames   []string
}

type Feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
	Links      []Link            `json:"links,omitempty"`
}

type FeatureCollection struct {
	Type           string     `json:"type"`
	Features       []*Feature `json:"features"`
	NumberMatched  int        `json:"numberMatched"`
	NumberReturned int        `json:"numberReturned"`
}

// NewFeature encodes g and merges extra into the EDR properties. Extra keys
// never override the EDR ones.
func NewFeature(id string, g geom.T, p EdrProperties, extra map[string]any, links ...Link) (*Feature, error) {
	var enc *geojson.Geometry
	if g != nil {
		var err error
		enc, err = geojson.Encode(g)
		if err != nil {
			return nil, fmt.Errorf("feature %s: encode geometry: %w", id, err)
		}
	}
	props := make(map[string]any, len(extra)+4)
	for k, v := range extra {
		props[k] = v
	}
	props["datetime"] = p.Datetime
	props["label"] = p.Label
	props["edrqueryendpoint"] = p.EdrQueryEndpoint
	props["parameter-name"] = p.ParameterNames
	return &Feature{Type: typeFeature, ID: id, Geometry: enc, Properties: props, Links: links}, nil
}

// NewCollection always yields a non-nil feature list so an empty page
// renders as [].
func NewCollection(fs []*Feature, matched int) *FeatureCollection {
	if fs == nil {
		fs = []*Feature{}
	}
	return &FeatureCollection{Type: typeFeatColl, Features: fs, NumberMatched: matched, NumberReturned: len(fs)}
}
