package domain

import (
	"fmt"
	"time"
)

// DurationRange is one contiguous interval of media time reported by the
// engine. Start/End ordering is engine-trusted and passed through unvalidated.
type DurationRange struct {
	Start time.Duration `json:"startMs"`
	End   time.Duration `json:"endMs"`
}

// RangesFromPairs converts raw [startMs, endMs] pairs into DurationRange
// values, one-to-one and order-preserving. No merging, sorting, or overlap
// resolution happens here; callers needing coalesced ranges do that
// downstream.
func RangesFromPairs(pairs [][]int64) ([]DurationRange, error) {
	out := make([]DurationRange, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: range pair %d has %d elements", ErrMalformedEvent, i, len(p))
		}
		out = append(out, DurationRange{
			Start: time.Duration(p[0]) * time.Millisecond,
			End:   time.Duration(p[1]) * time.Millisecond,
		})
	}
	return out, nil
}
