// Package reputation keeps a craftsman's running rating average.
package reputation

import (
	"context"
	"fmt"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Record is keyed by craftsman id. The zero value is a craftsman with no ratings.
type Record struct {
	CraftsmanID    string  `json:"craftsman_id"`
	RatingAverage  float64 `json:"rating_average"`
	CompletedCount int     `json:"completed_count"`
}

// Apply folds one rating into the record incrementally:
// avg1 = (avg0*n0 + r) / (n0+1), n1 = n0+1. No rounding is applied.
func (r Record) Apply(rating int) (Record, error) {
	if rating < MinRating || rating > MaxRating {
		return r, fmt.Errorf("rating %d outside [%d,%d]", rating, MinRating, MaxRating)
	}
	if r.CompletedCount < 0 {
		return r, fmt.Errorf("negative completed count %d", r.CompletedCount)
	}
	n := float64(r.CompletedCount)
	r.RatingAverage = (r.RatingAverage*n + float64(rating)) / (n + 1)
	r.CompletedCount++
	return r, nil
}

// Ledger stores reputation records. Get returns a zero record (with CraftsmanID set)
// for a craftsman that has never been rated.
type Ledger interface {
	Get(ctx context.Context, craftsmanID string) (Record, error)
	Set(ctx context.Context, rec Record) error
}
