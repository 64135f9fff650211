// Package datasettest builds small synthetic datasets for tests.
package datasettest

import (
	"fmt"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/cftime"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
)

// GridOptions describes a (time, lat, lon) grid. Temperature values are
// 100*t + 10*y + x so every cell is recognisable.
type GridOptions struct {
	Lons     []float64
	Lats     []float64
	Hours    []float64 // offsets in hours since 2018-02-12
	Calendar string
	WithCRS  bool
}

func DefaultGrid() GridOptions {
	return GridOptions{
		Lons:  []float64{-3, -2, -1},
		Lats:  []float64{50, 51, 52},
		Hours: []float64{0, 6},
	}
}

// Value is the temperature stored at (t, y, x).
func Value(t, y, x int) float64 {
	return float64(100*t + 10*y + x)
}

func Grid(o GridOptions) *dataset.Dataset {
	units := "hours since 2018-02-12 00:00:00"
	times, err := cftime.Decode(o.Hours, units, o.Calendar)
	if err != nil {
		panic(fmt.Sprintf("datasettest: %v", err))
	}
	nt, ny, nx := len(o.Hours), len(o.Lats), len(o.Lons)
	temp := make([]float64, 0, nt*ny*nx)
	pres := make([]float64, 0, nt*ny*nx)
	for t := 0; t < nt; t++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				temp = append(temp, Value(t, y, x))
				pres = append(pres, float64(1000+t))
			}
		}
	}
	tattrs := dataset.Attrs{"units": units, "standard_name": "time"}
	if o.Calendar != "" {
		tattrs["calendar"] = o.Calendar
	}
	coords := []*dataset.Variable{
		{Name: "time", Dims: []string{"time"}, Shape: []int{nt}, DType: "float64", Data: o.Hours, Times: times, Attrs: tattrs},
		{Name: "lat", Dims: []string{"lat"}, Shape: []int{ny}, DType: "float32", Data: o.Lats, Attrs: dataset.Attrs{"units": "degrees_north"}},
		{Name: "lon", Dims: []string{"lon"}, Shape: []int{nx}, DType: "float32", Data: o.Lons, Attrs: dataset.Attrs{"units": "degrees_east"}},
	}
	vars := []*dataset.Variable{
		{
			Name: "temperature", Dims: []string{"time", "lat", "lon"}, Shape: []int{nt, ny, nx},
			DType: "float32", Data: temp,
			Attrs: dataset.Attrs{"long_name": "Air temperature", "standard_name": "air_temperature", "units": "K"},
		},
		{
			Name: "pressure", Dims: []string{"time", "lat", "lon"}, Shape: []int{nt, ny, nx},
			DType: "int32", Data: pres,
			Attrs: dataset.Attrs{"long_name": "Surface pressure", "units": "hPa"},
		},
		{
			Name: "orography", Dims: []string{"lat", "lon"}, Shape: []int{ny, nx},
			DType: "float64", Data: make([]float64, ny*nx),
			Attrs: dataset.Attrs{"units": "m"},
		},
	}
	if o.WithCRS {
		vars = append(vars, &dataset.Variable{
			Name: "crs", DType: "int32", Data: []float64{0},
			Attrs: dataset.Attrs{"epsg_code": "EPSG:4326", "inverse_flattening": 298.257223563},
		})
	}
	ds, err := dataset.New(coords, vars, dataset.Attrs{"title": "synthetic grid", "Conventions": "CF-1.7"})
	if err != nil {
		panic(fmt.Sprintf("datasettest: %v", err))
	}
	return ds
}
