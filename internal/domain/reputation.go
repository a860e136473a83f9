package domain

import "time"

// ReputationEvent names a scoring event in the ledger.
type ReputationEvent string

// Scoring events. The deltas are part of the product contract and are shown
// to members on the leaderboard, so they are fixed rather than configurable.
const (
	EventReturnOnTime           ReputationEvent = "return_on_time"
	EventReturnLate             ReputationEvent = "return_late"
	EventDonateBook             ReputationEvent = "donate_book"
	EventDonateMoney            ReputationEvent = "donate_money"
	EventPositiveReview         ReputationEvent = "positive_review"
	EventNegativeReviewReceived ReputationEvent = "negative_review_received"
	EventIdeaPosted             ReputationEvent = "idea_posted"
	EventIdeaUpvoted            ReputationEvent = "idea_upvoted"
	EventIdeaDownvoted          ReputationEvent = "idea_downvoted"
	EventBookLost               ReputationEvent = "book_lost"
	EventAdminAdjustment        ReputationEvent = "admin_adjustment"
)

var fixedDeltas = map[ReputationEvent]int{
	EventReturnOnTime:           10,
	EventReturnLate:             -15,
	EventDonateBook:             20,
	EventDonateMoney:            10,
	EventPositiveReview:         5,
	EventNegativeReviewReceived: -10,
	EventIdeaPosted:             3,
	EventIdeaUpvoted:            1,
	EventIdeaDownvoted:          -1,
	EventBookLost:               -50,
}

// Delta returns the fixed score change for the event.
// Admin adjustments carry their own amount and report ok=false here.
func (e ReputationEvent) Delta() (delta int, ok bool) {
	delta, ok = fixedDeltas[e]
	return delta, ok
}

// Valid reports whether e is a known event.
func (e ReputationEvent) Valid() bool {
	if e == EventAdminAdjustment {
		return true
	}
	_, ok := fixedDeltas[e]
	return ok
}

// ReturnEvent picks the on-time or late event for a reading that ends at endedAt.
// Returning on the due instant counts as on time.
func ReturnEvent(dueDate, endedAt time.Time) ReputationEvent {
	if endedAt.After(dueDate) {
		return EventReturnLate
	}
	return EventReturnOnTime
}

// LedgerEntry is one append-only score change.
type LedgerEntry struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Event       ReputationEvent `json:"event"`
	Delta       int             `json:"delta"`
	ScoreBefore int             `json:"score_before"`
	ScoreAfter  int             `json:"score_after"`
	Reason      string          `json:"reason,omitempty"`
	ActorID     string          `json:"actor_id,omitempty"`
	RefType     string          `json:"ref_type,omitempty"`
	RefID       string          `json:"ref_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ScoreChange is a request to append one ledger entry.
type ScoreChange struct {
	UserID  string
	Event   ReputationEvent
	Amount  int // only used for EventAdminAdjustment
	Reason  string
	ActorID string
	RefType string
	RefID   string
	// Counters are applied to the user in the same write as the score.
	Counters CounterDelta
}

// ResolveDelta returns the delta this change applies.
func (c ScoreChange) ResolveDelta() int {
	if c.Event == EventAdminAdjustment {
		return c.Amount
	}
	d, _ := c.Event.Delta()
	return d
}

// ReplayScore folds ledger entries into a score starting from the initial value.
func ReplayScore(entries []*LedgerEntry) int {
	score := InitialSuccessScore
	for _, e := range entries {
		score += e.Delta
	}
	return score
}
