// Package cftime decodes CF-convention time coordinates ("hours since
// 1900-01-01") into calendar-aware instants and formats them for output.
package cftime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Calendar string

const (
	Standard           Calendar = "standard"
	ProlepticGregorian Calendar = "proleptic_gregorian"
	Julian             Calendar = "julian"
	NoLeap             Calendar = "noleap"
	AllLeap            Calendar = "all_leap"
	Day360             Calendar = "360_day"
)

var ErrUnits = errors.New("not a CF time unit")

// NormalizeCalendar maps CF calendar aliases onto the canonical names above.
func NormalizeCalendar(s string) (Calendar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "gregorian":
		return Standard, nil
	case "proleptic_gregorian":
		return ProlepticGregorian, nil
	case "julian":
		return Julian, nil
	case "noleap", "365_day":
		return NoLeap, nil
	case "all_leap", "366_day":
		return AllLeap, nil
	case "360_day":
		return Day360, nil
	}
	return "", fmt.Errorf("unsupported calendar %q", s)
}

// Time is a calendar date and wall clock time in UTC.
type Time struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	Nanosecond           int
	Calendar             Calendar
}

// IsGregorian reports whether t can be represented as a time.Time.
func (t Time) IsGregorian() bool {
	return t.Calendar == Standard || t.Calendar == ProlepticGregorian
}

// Std converts a Gregorian instant to time.Time.
func (t Time) Std() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC)
}

func (t Time) String() string {
	switch {
	case t.IsGregorian():
		return t.Std().Format(time.RFC3339Nano)
	case t.Calendar == Julian:
		return fmt.Sprintf("%04d-%02d-%02d", t.Year, t.Month, t.Day)
	default:
		return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%06dZ",
			t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second, t.Nanosecond/1000)
	}
}

// days returns the day number of t within its calendar and the nanoseconds
// elapsed since midnight.
func (t Time) days() (int64, int64) {
	d := calendarOf(t.Calendar).toDays(t.Year, t.Month, t.Day)
	ns := int64(t.Hour)*int64(time.Hour) + int64(t.Minute)*int64(time.Minute) +
		int64(t.Second)*int64(time.Second) + int64(t.Nanosecond)
	return d, ns
}

// Compare orders two instants of the same calendar.
func (t Time) Compare(o Time) int {
	d1, n1 := t.days()
	d2, n2 := o.days()
	switch {
	case d1 < d2, d1 == d2 && n1 < n2:
		return -1
	case d1 == d2 && n1 == n2:
		return 0
	}
	return 1
}

// Sub returns t-o in seconds.
func (t Time) Sub(o Time) float64 {
	d1, n1 := t.days()
	d2, n2 := o.days()
	return float64(d1-d2)*86400 + float64(n1-n2)/1e9
}

// Seconds is the instant as seconds since the calendar's day zero, used as
// the numeric value of a time coordinate.
func (t Time) Seconds() float64 {
	d, n := t.days()
	return float64(d)*86400 + float64(n)/1e9
}

func fromDays(cal Calendar, days int64, nanos int64) Time {
	y, m, d := calendarOf(cal).fromDays(days)
	ns := nanos
	h := ns / int64(time.Hour)
	ns -= h * int64(time.Hour)
	mi := ns / int64(time.Minute)
	ns -= mi * int64(time.Minute)
	s := ns / int64(time.Second)
	ns -= s * int64(time.Second)
	return Time{Year: y, Month: m, Day: d, Hour: int(h), Minute: int(mi), Second: int(s), Nanosecond: int(ns), Calendar: cal}
}

// Units is a parsed "<unit> since <epoch>" attribute.
type Units struct {
	Step  float64 // seconds per unit
	Epoch Time
}

// ParseUnits parses a CF time unit string in the given calendar.
func ParseUnits(units string, cal Calendar) (Units, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return Units{}, fmt.Errorf("%w: %q", ErrUnits, units)
	}
	var step float64
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "days", "day", "d":
		step = 86400
	case "hours", "hour", "hrs", "hr", "h":
		step = 3600
	case "minutes", "minute", "mins", "min":
		step = 60
	case "seconds", "second", "secs", "sec", "s":
		step = 1
	case "milliseconds", "millisecond", "msecs", "msec", "ms":
		step = 1e-3
	case "microseconds", "microsecond", "us":
		step = 1e-6
	default:
		return Units{}, fmt.Errorf("%w: unknown step %q", ErrUnits, parts[0])
	}
	epoch, err := Parse(parts[1], cal)
	if err != nil {
		return Units{}, fmt.Errorf("epoch: %w", err)
	}
	return Units{Step: step, Epoch: epoch}, nil
}

// Decode converts raw coordinate values into instants. NaN values decode to
// the zero Time.
func Decode(values []float64, units, calendar string) ([]Time, error) {
	cal, err := NormalizeCalendar(calendar)
	if err != nil {
		return nil, err
	}
	u, err := ParseUnits(units, cal)
	if err != nil {
		return nil, err
	}
	epochDays, epochNanos := u.Epoch.days()
	out := make([]Time, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		total := float64(epochNanos)/1e9 + v*u.Step
		dayDelta := math.Floor(total / 86400)
		sec := total - dayDelta*86400
		// microsecond rounding keeps float noise out of the output
		nanos := int64(math.Round(sec*1e6)) * 1000
		if nanos >= 86400*int64(time.Second) {
			nanos -= 86400 * int64(time.Second)
			dayDelta++
		}
		out[i] = fromDays(cal, epochDays+int64(dayDelta), nanos)
	}
	return out, nil
}

// Parse reads an ISO-8601-like instant ("2018-02-12", "2018-02-12T23:00:00Z",
// "1900-1-1 00:00:00.0") into the given calendar. Zone offsets are applied
// for Gregorian calendars and otherwise ignored.
func Parse(s string, cal Calendar) (Time, error) {
	s = strings.TrimSpace(s)
	if cal == "" {
		cal = Standard
	}
	if cal == Standard || cal == ProlepticGregorian {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ts = ts.UTC()
			return Time{Year: ts.Year(), Month: int(ts.Month()), Day: ts.Day(),
				Hour: ts.Hour(), Minute: ts.Minute(), Second: ts.Second(),
				Nanosecond: ts.Nanosecond(), Calendar: cal}, nil
		}
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, " UTC"), "Z")
	datePart, clockPart, _ := strings.Cut(strings.Replace(s, "T", " ", 1), " ")
	ymd := strings.Split(datePart, "-")
	if len(ymd) != 3 {
		return Time{}, fmt.Errorf("invalid date %q", s)
	}
	var nums [3]int
	for i, p := range ymd {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		nums[i] = n
	}
	t := Time{Year: nums[0], Month: nums[1], Day: nums[2], Calendar: cal}
	if t.Month < 1 || t.Month > 12 || t.Day < 1 || t.Day > 31 {
		return Time{}, fmt.Errorf("invalid date %q", s)
	}
	clockPart = strings.TrimSpace(clockPart)
	if i := strings.IndexAny(clockPart, "+ "); i >= 0 {
		clockPart = clockPart[:i]
	}
	if clockPart != "" {
		hms := strings.Split(clockPart, ":")
		if len(hms) < 2 || len(hms) > 3 {
			return Time{}, fmt.Errorf("invalid time of day %q", s)
		}
		h, err := strconv.Atoi(hms[0])
		if err != nil {
			return Time{}, fmt.Errorf("invalid hour %q: %w", s, err)
		}
		m, err := strconv.Atoi(hms[1])
		if err != nil {
			return Time{}, fmt.Errorf("invalid minute %q: %w", s, err)
		}
		t.Hour, t.Minute = h, m
		if len(hms) == 3 {
			sec, err := strconv.ParseFloat(hms[2], 64)
			if err != nil {
				return Time{}, fmt.Errorf("invalid second %q: %w", s, err)
			}
			t.Second = int(sec)
			t.Nanosecond = int(math.Round((sec - float64(t.Second)) * 1e9))
		}
	}
	return t, nil
}
