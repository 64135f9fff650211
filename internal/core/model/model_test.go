package model

import "testing"

func TestParseDatetime(t *testing.T) {
	cases := []struct {
		in   string
		want *Datetime
	}{
		{"", nil},
		{"2018-02-12T00:00:00Z", &Datetime{Start: "2018-02-12T00:00:00Z"}},
		{"2018-02-12/2018-03-18", &Datetime{Start: "2018-02-12", End: "2018-03-18", Interval: true}},
		{"../2018-03-18", &Datetime{Start: Open, End: "2018-03-18", Interval: true}},
		{"2018-02-12/", &Datetime{Start: "2018-02-12", End: Open, Interval: true}},
	}
	for _, tc := range cases {
		got, err := ParseDatetime(tc.in)
		if err != nil {
			t.Fatalf("ParseDatetime(%q): %v", tc.in, err)
		}
		if (got == nil) != (tc.want == nil) || got != nil && *got != *tc.want {
			t.Fatalf("ParseDatetime(%q)=%+v want %+v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"..", "../..", "/"} {
		if _, err := ParseDatetime(bad); err == nil {
			t.Fatalf("ParseDatetime(%q) should fail", bad)
		}
	}
}

func TestDatetimeString(t *testing.T) {
	d, _ := ParseDatetime("a/..")
	if d.String() != "a/.." {
		t.Fatalf("String()=%q", d.String())
	}
	var nilD *Datetime
	if nilD.String() != "" {
		t.Fatalf("nil String()=%q", nilD.String())
	}
}
