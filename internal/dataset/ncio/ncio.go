// Package ncio reads netCDF files into datasets and writes datasets back out
// as netCDF bytes.
package ncio

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/cftime"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
)

// encoding attributes consumed while decoding values
var encodingAttrs = []string{"_FillValue", "missing_value", "scale_factor", "add_offset"}

// Open reads every variable of a netCDF-3 or netCDF-4 file. Fill values
// become NaN, packed values are unpacked and CF time coordinates are decoded.
func Open(path string) (*dataset.Dataset, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer g.Close()
	ds, err := FromGroup(g)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, nil
}

// FromGroup converts an opened netCDF group.
func FromGroup(g api.Group) (*dataset.Dataset, error) {
	names := g.ListVariables()
	read := make([]*dataset.Variable, 0, len(names))
	coordNames := map[string]bool{}
	for _, name := range names {
		raw, err := g.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		v, err := convert(name, raw)
		if err != nil {
			return nil, err
		}
		if len(v.Dims) == 1 && v.Dims[0] == name {
			coordNames[name] = true
		}
		if s, ok := v.Attrs.String("coordinates"); ok {
			for _, c := range strings.Fields(s) {
				coordNames[c] = true
			}
		}
		read = append(read, v)
	}
	var coords, vars []*dataset.Variable
	for _, v := range read {
		if coordNames[v.Name] {
			coords = append(coords, v)
		} else {
			vars = append(vars, v)
		}
	}
	return dataset.New(coords, vars, attrsOf(g.Attributes()))
}

func convert(name string, raw *api.Variable) (*dataset.Variable, error) {
	v := &dataset.Variable{
		Name:  name,
		Dims:  append([]string(nil), raw.Dimensions...),
		Attrs: attrsOf(raw.Attributes),
	}
	switch vals := raw.Values.(type) {
	case string:
		// char arrays carry their string length as the last dimension
		if len(v.Dims) > 0 {
			v.Dims = v.Dims[:len(v.Dims)-1]
		}
		v.DType, v.Text = "string", []string{strings.TrimRight(vals, "\x00")}
		v.Shape = make([]int, len(v.Dims))
		for i := range v.Shape {
			v.Shape[i] = 1
		}
		return v, nil
	case []string:
		if len(v.Dims) > 0 {
			v.Dims = v.Dims[:len(v.Dims)-1]
		}
		v.DType, v.Shape = "string", []int{len(vals)}
		for _, s := range vals {
			v.Text = append(v.Text, strings.TrimRight(s, "\x00"))
		}
		return v, nil
	}

	data, shape, err := dataset.Flatten(raw.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	if len(shape) != len(v.Dims) {
		return nil, fmt.Errorf("variable %s: values have %d dims, header declares %d", name, len(shape), len(v.Dims))
	}
	v.Shape, v.Data, v.DType = shape, data, dataset.ElemKind(raw.Values)
	decodeCF(v)

	if units, ok := v.Attrs.String("units"); ok && strings.Contains(units, " since ") {
		cal, _ := v.Attrs.String("calendar")
		if times, err := cftime.Decode(v.Data, units, cal); err == nil {
			v.Times = times
		}
	}
	return v, nil
}

func decodeCF(v *dataset.Variable) {
	for _, key := range []string{"_FillValue", "missing_value"} {
		fill, ok := v.Attrs.Float(key)
		if !ok || math.IsNaN(fill) {
			continue
		}
		for i, x := range v.Data {
			if x == fill {
				v.Data[i] = math.NaN()
				v.DType = floatType(v.DType)
			}
		}
	}
	scale, hasScale := v.Attrs.Float("scale_factor")
	offset, hasOffset := v.Attrs.Float("add_offset")
	if hasScale || hasOffset {
		if !hasScale {
			scale = 1
		}
		for i := range v.Data {
			v.Data[i] = v.Data[i]*scale + offset
		}
		v.DType = "float64"
	}
	for _, key := range encodingAttrs {
		delete(v.Attrs, key)
	}
}

func floatType(dtype string) string {
	if strings.HasPrefix(dtype, "float") {
		return dtype
	}
	return "float64"
}

func attrsOf(m api.AttributeMap) dataset.Attrs {
	out := dataset.Attrs{}
	if m == nil {
		return out
	}
	for _, k := range m.Keys() {
		if val, ok := m.Get(k); ok {
			out[k] = val
		}
	}
	return out
}

func sortedKeys(a dataset.Attrs) []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Export encodes ds as a netCDF file and returns its bytes. The file is
// staged in the temp directory and removed before returning.
func Export(ds *dataset.Dataset) ([]byte, error) {
	f, err := os.CreateTemp("", "edr-*.nc")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	defer os.Remove(path)

	if err := write(ds, path); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return b, nil
}

// WriteFile stores ds at path.
func WriteFile(ds *dataset.Dataset, path string) error {
	return write(ds, path)
}
