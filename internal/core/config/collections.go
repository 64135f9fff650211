package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ParameterDesc overrides the description derived from variable attributes.
type ParameterDesc struct {
	Description string `yaml:"description"`
	Label       string `yaml:"label"`
	Unit        string `yaml:"unit"`
	Symbol      string `yaml:"symbol"`
	DataType    string `yaml:"data_type" validate:"omitempty,oneof=integer float string"`
}

// ProviderDef configures the data backend of a collection.
type ProviderDef struct {
	Name      string `yaml:"name" validate:"required"`
	Data      string `yaml:"data" validate:"required"`
	XField    string `yaml:"x_field"`
	YField    string `yaml:"y_field"`
	TimeField string `yaml:"time_field"`

	LocShapefile string `yaml:"loc_shapefile"`
	LocIDField   string `yaml:"locid_field"`
	TitleField   string `yaml:"title_field"`

	LimitDefault int `yaml:"limitdefault" validate:"gte=0"`
	LimitMax     int `yaml:"limitmax" validate:"gte=0"`
}

type Collection struct {
	ID          string                   `yaml:"id" validate:"required"`
	Title       string                   `yaml:"title"`
	Description string                   `yaml:"description"`
	Provider    ProviderDef              `yaml:"provider"`
	Parameters  map[string]ParameterDesc `yaml:"parameters" validate:"dive"`
}

// Collections is the validated, read-only collection catalogue.
type Collections struct {
	list []Collection
	byID map[string]int
}

type collectionsFile struct {
	Collections []Collection `yaml:"collections" validate:"dive"`
}

var validate = validator.New()

// LoadCollections reads and validates a collections YAML file.
func LoadCollections(path string) (*Collections, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collections: %w", err)
	}
	return ParseCollections(b)
}

func ParseCollections(b []byte) (*Collections, error) {
	var f collectionsFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid collections: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("invalid collections: %w", err)
	}
	return NewCollections(f.Collections...)
}

// NewCollections indexes collections by id, rejecting duplicates.
func NewCollections(cs ...Collection) (*Collections, error) {
	out := &Collections{byID: make(map[string]int, len(cs))}
	for _, c := range cs {
		if _, dup := out.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate collection id %q", c.ID)
		}
		out.byID[c.ID] = len(out.list)
		out.list = append(out.list, c)
	}
	return out, nil
}

func (c *Collections) Get(id string) (Collection, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Collection{}, false
	}
	return c.list[i], true
}

func (c *Collections) List() []Collection {
	return append([]Collection(nil), c.list...)
}
