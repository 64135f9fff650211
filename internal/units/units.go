// Package units converts length quantities given as value + unit symbol to
// metres.
package units

import (
	"strconv"
	"strings"

	gounits "github.com/bcicen/go-units"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
)

// spellings the unit registry does not know under these names
var aliases = map[string]string{
	"nm":     "nautical mile",
	"nmi":    "nautical mile",
	"feet":   "foot",
	"inches": "inch",
}

// Metres converts value expressed in unit to metres. Unknown units, and
// units that are not lengths, are an InvalidInput error.
func Metres(value float64, unit string) (float64, error) {
	from, err := lookup(unit)
	if err != nil {
		return 0, edrerr.Wrap(edrerr.InvalidInput, err, "cannot convert %q to a length unit", unit)
	}
	metre, err := gounits.Find("meter")
	if err != nil {
		return 0, edrerr.Wrap(edrerr.Internal, err, "metre unit")
	}
	v, err := gounits.ConvertFloat(value, from, metre)
	if err != nil {
		return 0, edrerr.Wrap(edrerr.InvalidInput, err, "cannot convert %q to a length unit", unit)
	}
	return v.Float(), nil
}

// ParseMetres parses a textual quantity such as within=10 within-units=km.
func ParseMetres(value, unit string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, edrerr.Wrap(edrerr.InvalidInput, err, "invalid quantity %q %s", value, unit)
	}
	return Metres(v, unit)
}

// lookup tries the unit as given, then in singular American spelling.
func lookup(unit string) (gounits.Unit, error) {
	raw := strings.TrimSpace(unit)
	if u, err := gounits.Find(raw); err == nil {
		return u, nil
	}
	name := strings.ToLower(strings.ReplaceAll(raw, "_", " "))
	if a, ok := aliases[name]; ok {
		name = a
	}
	if u, err := gounits.Find(name); err == nil {
		return u, nil
	}
	name = strings.ReplaceAll(name, "metre", "meter")
	name = strings.TrimSuffix(name, "s")
	if a, ok := aliases[name]; ok {
		name = a
	}
	return gounits.Find(name)
}
