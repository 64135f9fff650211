package ncio

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
)

func write(ds *dataset.Dataset, path string) (err error) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cw.Close(); err == nil {
			err = cerr
		}
	}()

	for _, group := range [][]*dataset.Variable{ds.Coords, ds.Vars} {
		for _, v := range group {
			vr, err := encode(v)
			if err != nil {
				return err
			}
			if err := cw.AddVar(v.Name, vr); err != nil {
				return fmt.Errorf("variable %s: %w", v.Name, err)
			}
		}
	}
	global, err := orderedAttrs(ds.Attrs)
	if err != nil {
		return err
	}
	return cw.AddAttributes(global)
}

func encode(v *dataset.Variable) (api.Variable, error) {
	attrs := v.Attrs.Clone()
	if v.IsText() {
		return encodeText(v, attrs)
	}
	// Float fill stays implicit: the writer rejects reserved names such as
	// _FillValue, and readers already take NaN as missing.
	am, err := orderedAttrs(attrs)
	if err != nil {
		return api.Variable{}, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	return api.Variable{
		Values:     dataset.Nest(v.Data, v.Shape, v.DType),
		Dimensions: append([]string(nil), v.Dims...),
		Attributes: am,
	}, nil
}

// encodeText writes strings as a char array padded to the longest value.
func encodeText(v *dataset.Variable, attrs dataset.Attrs) (api.Variable, error) {
	width := 1
	for _, s := range v.Text {
		if len(s) > width {
			width = len(s)
		}
	}
	padded := make([]string, len(v.Text))
	for i, s := range v.Text {
		padded[i] = s + strings.Repeat("\x00", width-len(s))
	}
	am, err := orderedAttrs(attrs)
	if err != nil {
		return api.Variable{}, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	dims := append(append([]string(nil), v.Dims...), fmt.Sprintf("%s_strlen", v.Name))
	var values any = padded
	if len(v.Dims) == 0 {
		values = padded[0]
	}
	return api.Variable{Values: values, Dimensions: dims, Attributes: am}, nil
}

// validAttrName matches the names the netCDF writer accepts.
var validAttrName = regexp.MustCompile(`^[\pL\pN][^\pC/]*$`)

// orderedAttrs drops attributes the writer cannot store, such as the
// underscore-prefixed reserved ones.
func orderedAttrs(a dataset.Attrs) (api.AttributeMap, error) {
	keys := make([]string, 0, len(a))
	vals := make(map[string]any, len(a))
	for _, k := range sortedKeys(a) {
		if !validAttrName.MatchString(k) {
			continue
		}
		keys = append(keys, k)
		vals[k] = a[k]
	}
	return util.NewOrderedMap(keys, vals)
}
