package dataset

import (
	"fmt"
	"reflect"
)

// Flatten walks a scalar, slice, or nested slice of numbers (as produced by
// netCDF readers for multi-dimensional variables) and returns the row-major
// values and the shape implied by the nesting.
func Flatten(v any) ([]float64, []int, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil, fmt.Errorf("nil value")
	}
	var shape []int
	for t := rv; t.Kind() == reflect.Slice || t.Kind() == reflect.Array; {
		shape = append(shape, t.Len())
		if t.Len() == 0 {
			break
		}
		t = t.Index(0)
	}
	out := make([]float64, 0, product(shape))
	var walk func(reflect.Value) error
	walk = func(x reflect.Value) error {
		switch x.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < x.Len(); i++ {
				if err := walk(x.Index(i)); err != nil {
					return err
				}
			}
			return nil
		case reflect.Float32, reflect.Float64:
			out = append(out, x.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, float64(x.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, float64(x.Uint()))
		case reflect.Interface:
			return walk(x.Elem())
		default:
			return fmt.Errorf("unsupported element kind %s", x.Kind())
		}
		return nil
	}
	if err := walk(rv); err != nil {
		return nil, nil, err
	}
	if len(out) != product(shape) {
		return nil, nil, fmt.Errorf("ragged array: %d values for shape %v", len(out), shape)
	}
	return out, shape, nil
}

// ElemKind reports the Go element type name of a possibly nested slice,
// e.g. "float32" for [][]float32.
func ElemKind(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Kind().String()
}

func toFloat64s(v any) ([]float64, error) {
	vals, _, err := Flatten(v)
	return vals, err
}

// Nest rebuilds a nested slice of the given element kind from flat
// row-major values, the inverse of Flatten.
func Nest(data []float64, shape []int, kind string) any {
	elem := scalarType(kind)
	if len(shape) == 0 {
		return reflect.ValueOf(data[0]).Convert(elem).Interface()
	}
	var build func(level int, off int) reflect.Value
	st := strides(shape)
	build = func(level, off int) reflect.Value {
		t := elem
		for i := level; i < len(shape); i++ {
			t = reflect.SliceOf(t)
		}
		s := reflect.MakeSlice(t, shape[level], shape[level])
		for i := 0; i < shape[level]; i++ {
			if level == len(shape)-1 {
				s.Index(i).Set(reflect.ValueOf(data[off+i]).Convert(elem))
			} else {
				s.Index(i).Set(build(level+1, off+i*st[level]))
			}
		}
		return s
	}
	return build(0, 0).Interface()
}

func scalarType(kind string) reflect.Type {
	switch kind {
	case "float32":
		return reflect.TypeOf(float32(0))
	case "int8":
		return reflect.TypeOf(int8(0))
	case "int16":
		return reflect.TypeOf(int16(0))
	case "int32":
		return reflect.TypeOf(int32(0))
	case "int64":
		return reflect.TypeOf(int64(0))
	case "uint8":
		return reflect.TypeOf(uint8(0))
	case "uint16":
		return reflect.TypeOf(uint16(0))
	case "uint32":
		return reflect.TypeOf(uint32(0))
	case "uint64":
		return reflect.TypeOf(uint64(0))
	}
	return reflect.TypeOf(float64(0))
}
