package invalidation

import (
	"testing"
	"time"
)

func mustTS() time.Time { return time.Date(2025, 10, 26, 12, 30, 45, 0, time.UTC) }

func TestEvent_Validate_HappyPath(t *testing.T) {
	for _, op := range []string{OpUpdate, OpReplace, OpDelete} {
		ev := Event{Version: 3, Op: op, Collection: "metoffice", TS: mustTS()}
		if err := ev.Validate(); err != nil {
			t.Fatalf("op %s: unexpected: %v", op, err)
		}
	}
}

func TestEvent_Validate_Rejects(t *testing.T) {
	cases := map[string]Event{
		"zero version":  {Op: OpUpdate, Collection: "metoffice", TS: mustTS()},
		"unknown op":    {Version: 1, Op: "insert", Collection: "metoffice", TS: mustTS()},
		"no collection": {Version: 1, Op: OpUpdate, Collection: "  ", TS: mustTS()},
		"no ts":         {Version: 1, Op: OpUpdate, Collection: "metoffice"},
	}
	for name, ev := range cases {
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecode(t *testing.T) {
	ev, err := Decode([]byte(`{"version":7,"op":"replace","collection":"metoffice","ts":"2025-10-26T12:30:45Z"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Version != 7 || ev.Collection != "metoffice" || !ev.TS.Equal(mustTS()) {
		t.Fatalf("decoded %+v", ev)
	}
	if _, err := Decode([]byte(`{"version":`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := Decode([]byte(`{"version":1,"op":"update","ts":"2025-10-26T12:30:45Z"}`)); err == nil {
		t.Fatalf("expected validation error")
	}
}
