package cftime

import (
	"fmt"
	"math"
	"strings"
)

var resolutionUnits = []struct {
	name    string
	seconds float64
}{
	{"years", 365.2425 * 86400},
	{"months", 30.436875 * 86400},
	{"days", 86400},
	{"hours", 3600},
	{"minutes", 60},
	{"seconds", 1},
	{"milliseconds", 1e-3},
}

// Resolution describes the step between the first two samples in the
// coarsest unit in which it is non-zero, e.g. "6 hours". Fewer than two
// samples yield "".
func Resolution(ts []Time) string {
	if len(ts) < 2 {
		return ""
	}
	diff := math.Abs(ts[1].Sub(ts[0]))
	for _, u := range resolutionUnits {
		if n := math.Trunc(diff / u.seconds); n > 0 {
			return fmt.Sprintf("%d %s", int64(n), u.name)
		}
	}
	return ""
}

// Duration describes the span between the first and last sample as
// "N days, N hours, N minutes, N seconds", omitting zero components.
func Duration(ts []Time) string {
	if len(ts) == 0 {
		return ""
	}
	ms := math.Trunc(ts[len(ts)-1].Sub(ts[0]) * 1000)
	parts := []struct {
		name string
		val  int64
	}{
		{"days", int64(ms / 1000 / 60 / 60 / 24)},
		{"hours", int64(math.Mod(ms/1000/60/60, 24))},
		{"minutes", int64(math.Mod(ms/1000/60, 60))},
		{"seconds", int64(ms/1000) % 60},
	}
	var out []string
	for _, p := range parts {
		if p.val > 0 {
			out = append(out, fmt.Sprintf("%d %s", p.val, p.name))
		}
	}
	return strings.Join(out, ", ")
}

// Interval renders the first/last instants as "start/end", or a single
// instant when they coincide.
func Interval(ts []Time) string {
	if len(ts) == 0 {
		return ""
	}
	first, last := ts[0], ts[len(ts)-1]
	if first.Compare(last) == 0 {
		return first.String()
	}
	return first.String() + "/" + last.String()
}
