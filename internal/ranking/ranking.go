// Package ranking computes the priority of pending book requests.
//
// The priority is advisory: admins see requests in ranked order but approval
// stays manual. The only contract is monotonicity, a higher success score or a
// longer wait never lowers a request's priority.
package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
)

// Weights tunes the priority formula. All weights must be non-negative.
type Weights struct {
	Score    float64 `yaml:"score"`
	WaitDay  float64 `yaml:"wait_day"`
	Interest float64 `yaml:"interest"`
	Priority float64 `yaml:"priority_bookmark"`
}

// DefaultWeights favours reputation, with a day of waiting worth two points.
func DefaultWeights() Weights {
	return Weights{
		Score:    1.0,
		WaitDay:  2.0,
		Interest: 15.0,
		Priority: 5.0,
	}
}

// Validate rejects weights that would break monotonicity.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"score":             w.Score,
		"wait_day":          w.WaitDay,
		"interest":          w.Interest,
		"priority_bookmark": w.Priority,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("ranking weight %s must be a finite non-negative number, got %v", name, v)
		}
	}
	return nil
}

// Input is everything the formula looks at for one request.
type Input struct {
	SuccessScore  int
	RequestedAt   time.Time
	Now           time.Time
	InterestMatch bool
	PriorityLevel int // 0 when the requester has no priority bookmark on the book
}

// WaitDays returns the fractional days since the request was made.
func (in Input) WaitDays() float64 {
	d := in.Now.Sub(in.RequestedAt)
	if d < 0 {
		return 0
	}
	return d.Hours() / 24
}

// Score computes the priority of a request.
func Score(w Weights, in Input) float64 {
	score := w.Score * float64(max(in.SuccessScore, 0))
	score += w.WaitDay * in.WaitDays()
	if in.InterestMatch {
		score += w.Interest
	}
	level := min(max(in.PriorityLevel, 0), domain.MaxPriorityLevel)
	score += w.Priority * float64(level)
	return math.Round(score*100) / 100
}

// Sort orders requests by priority descending, earlier requests first on ties.
func Sort(reqs []*domain.RankedRequest) {
	slices.SortStableFunc(reqs, func(a, b *domain.RankedRequest) int {
		if c := cmp.Compare(b.PriorityScore, a.PriorityScore); c != 0 {
			return c
		}
		return a.RequestedAt.Compare(b.RequestedAt)
	})
}
