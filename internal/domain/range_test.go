package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRangesFromPairsOneToOne(t *testing.T) {
	ranges, err := RangesFromPairs([][]int64{{0, 1000}, {1000, 2500}, {500, 700}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []DurationRange{
		{Start: 0, End: time.Second},
		{Start: time.Second, End: 2500 * time.Millisecond},
		{Start: 500 * time.Millisecond, End: 700 * time.Millisecond},
	}
	if len(ranges) != len(want) {
		t.Fatalf("expected %d ranges, got %d", len(want), len(ranges))
	}
	for i := range want {
		if ranges[i] != want[i] {
			t.Fatalf("range %d: got %v, want %v", i, ranges[i], want[i])
		}
	}
}

func TestRangesFromPairsEmpty(t *testing.T) {
	ranges, err := RangesFromPairs(nil)
	if err != nil || len(ranges) != 0 {
		t.Fatalf("unexpected: %v %v", ranges, err)
	}
}

func TestRangesFromPairsBadArity(t *testing.T) {
	if _, err := RangesFromPairs([][]int64{{0, 1, 2}}); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
	if _, err := RangesFromPairs([][]int64{{0}}); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}
