package id

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNewLoanID_Format(t *testing.T) {
	ts := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	got := NewLoanID(ts)

	parts := strings.SplitN(got, "-", 2)
	if len(parts) != 2 {
		t.Fatalf("id %q: want <nanos>-<suffix>", got)
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		t.Fatalf("nanos part %q: %v", parts[0], err)
	}
	if nanos != ts.UnixNano() {
		t.Errorf("nanos = %d, want %d", nanos, ts.UnixNano())
	}
	suffix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		t.Fatalf("suffix part %q: %v", parts[1], err)
	}
	if suffix < 1 || suffix > 1_000_000_000 {
		t.Errorf("suffix %d out of range", suffix)
	}
}

func TestNewLoanID_Unique(t *testing.T) {
	ts := time.Now().UTC()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewLoanID(ts)
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}
