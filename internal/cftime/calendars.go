package cftime

type dayCounter interface {
	toDays(y, m, d int) int64
	fromDays(days int64) (y, m, d int)
}

func calendarOf(c Calendar) dayCounter {
	switch c {
	case ProlepticGregorian:
		return gregorian{}
	case Julian:
		return julian{}
	case NoLeap:
		return fixedYear{length: 365, cum: cumNoLeap}
	case AllLeap:
		return fixedYear{length: 366, cum: cumAllLeap}
	case Day360:
		return day360{}
	default:
		return mixed{}
	}
}

// first Gregorian day (1582-10-15) as a julian day number
const gregorianReform = 2299161

type gregorian struct{}

func (gregorian) toDays(y, m, d int) int64 {
	a := (14 - m) / 12
	yy := int64(y + 4800 - a)
	mm := int64(m + 12*a - 3)
	return int64(d) + (153*mm+2)/5 + 365*yy + yy/4 - yy/100 + yy/400 - 32045
}

func (gregorian) fromDays(j int64) (int, int, int) {
	a := j + 32044
	b := (4*a + 3) / 146097
	c := a - 146097*b/4
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153
	day := e - (153*m+2)/5 + 1
	month := m + 3 - 12*(m/10)
	year := 100*b + d - 4800 + m/10
	return int(year), int(month), int(day)
}

type julian struct{}

func (julian) toDays(y, m, d int) int64 {
	a := (14 - m) / 12
	yy := int64(y + 4800 - a)
	mm := int64(m + 12*a - 3)
	return int64(d) + (153*mm+2)/5 + 365*yy + yy/4 - 32083
}

func (julian) fromDays(j int64) (int, int, int) {
	c := j + 32082
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153
	day := e - (153*m+2)/5 + 1
	month := m + 3 - 12*(m/10)
	year := d - 4800 + m/10
	return int(year), int(month), int(day)
}

// mixed is the CF "standard" calendar: Julian before 1582-10-15, Gregorian after.
type mixed struct{}

func (mixed) toDays(y, m, d int) int64 {
	if j := (gregorian{}).toDays(y, m, d); j >= gregorianReform {
		return j
	}
	return julian{}.toDays(y, m, d)
}

func (mixed) fromDays(j int64) (int, int, int) {
	if j >= gregorianReform {
		return gregorian{}.fromDays(j)
	}
	return julian{}.fromDays(j)
}

var (
	cumNoLeap  = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	cumAllLeap = [12]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335}
)

type fixedYear struct {
	length int
	cum    [12]int
}

func (f fixedYear) toDays(y, m, d int) int64 {
	return int64(y)*int64(f.length) + int64(f.cum[m-1]) + int64(d-1)
}

func (f fixedYear) fromDays(days int64) (int, int, int) {
	y := floorDiv(days, int64(f.length))
	r := int(days - y*int64(f.length))
	m := 11
	for m > 0 && f.cum[m] > r {
		m--
	}
	return int(y), m + 1, r - f.cum[m] + 1
}

type day360 struct{}

func (day360) toDays(y, m, d int) int64 {
	return int64(y)*360 + int64(m-1)*30 + int64(d-1)
}

func (day360) fromDays(days int64) (int, int, int) {
	y := floorDiv(days, 360)
	r := int(days - y*360)
	return int(y), r/30 + 1, r%30 + 1
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
