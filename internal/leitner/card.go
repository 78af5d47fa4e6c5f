package leitner

import "time"

// Card represents a flashcard's scheduling state. The ID is opaque to the
// scheduler; callers typically use a content hash or database key.
type Card struct {
	ID         string     `json:"id"`
	Box        int        `json:"box"`
	Due        time.Time  `json:"due"`
	LastReview *time.Time `json:"last_review"` // nil before first review.
	CreatedAt  time.Time  `json:"created_at"`
}

// NewCard creates a card in box 1, immediately due.
func NewCard(id string, now time.Time) Card {
	return Card{
		ID:        id,
		Box:       1,
		Due:       now,
		CreatedAt: now,
	}
}

// ReviewLog records a single review event for a card.
type ReviewLog struct {
	CardID     string    `json:"card_id"`
	Outcome    Outcome   `json:"outcome"`
	ReviewedAt time.Time `json:"reviewed_at"`
}
