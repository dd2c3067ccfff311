package logfields

import (
	"errors"
	"testing"
	"time"
)

func TestHelpers(t *testing.T) {
	if a := Task("render-pages"); a.Key != KeyTask || a.Value.String() != "render-pages" {
		t.Fatalf("unexpected task attr: %v", a)
	}
	if a := Tasks([]string{"clean-output", "render-pages"}); a.Value.String() != "clean-output,render-pages" {
		t.Fatalf("unexpected tasks attr: %v", a)
	}
	if a := Duration(1500 * time.Microsecond); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr: %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should produce empty string, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", a)
	}
}
