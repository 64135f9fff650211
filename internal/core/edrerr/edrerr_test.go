package edrerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesThroughWrapping(t *testing.T) {
	base := NewNotFound("collection %q", "era5")
	wrapped := fmt.Errorf("position: %w", base)

	if !Is(wrapped, NotFound) {
		t.Fatalf("expected NotFound through fmt wrap")
	}
	if Is(wrapped, InvalidInput) {
		t.Fatalf("NotFound must not match InvalidInput")
	}
	if got := CodeOf(wrapped); got != NotFound {
		t.Fatalf("CodeOf=%v want NotFound", got)
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("disk gone")
	err := Wrap(Internal, cause, "open %s", "a.nc")
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	if Wrap(Internal, nil, "x") != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
	if got := err.Error(); got != "InternalError: open a.nc: disk gone" {
		t.Fatalf("Error()=%q", got)
	}
}

func TestCodeOf_ForeignErrorIsInternal(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != Internal {
		t.Fatalf("CodeOf=%v want Internal", got)
	}
}
