package leitner

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// DefaultMaxBox is the number of boxes used when Config.MaxBox is zero.
const DefaultMaxBox = 5

// DefaultIntervals is the review interval per box for the default five-box
// table. Intervals strictly increase with box level; that spacing is what
// makes the scheme spaced repetition.
var DefaultIntervals = []time.Duration{
	24 * time.Hour,      // box 1
	2 * 24 * time.Hour,  // box 2
	4 * 24 * time.Hour,  // box 3
	9 * 24 * time.Hour,  // box 4
	14 * 24 * time.Hour, // box 5
}

// Config configures a Scheduler.
// Zero values produce the default five-box table; see field comments.
type Config struct {
	MaxBox    int             `json:"max_box"`   // zero → DefaultMaxBox
	Intervals []time.Duration `json:"intervals"` // nil → DefaultIntervals; must have MaxBox entries
}

// Scheduler schedules card reviews using a Leitner box system.
type Scheduler struct {
	maxBox    int
	intervals []time.Duration
	rng       *rand.Rand
}

// NewScheduler creates a Scheduler from the given config.
// Zero-value fields are filled with defaults. Invalid values (MaxBox below 1,
// interval count not matching MaxBox, intervals not strictly increasing)
// return an error before any scheduling call can be made.
func NewScheduler(cfg Config) (*Scheduler, error) {
	maxBox := cfg.MaxBox
	if maxBox == 0 {
		maxBox = DefaultMaxBox
	}
	if maxBox < 1 {
		return nil, fmt.Errorf("%w: max box %d must be at least 1", ErrInvalidConfig, maxBox)
	}

	intervals := cfg.Intervals
	if intervals == nil {
		if maxBox > len(DefaultIntervals) {
			return nil, fmt.Errorf("%w: max box %d requires explicit intervals (default table has %d)",
				ErrInvalidConfig, maxBox, len(DefaultIntervals))
		}
		intervals = DefaultIntervals[:maxBox]
	}
	if len(intervals) != maxBox {
		return nil, fmt.Errorf("%w: %d intervals for %d boxes", ErrInvalidConfig, len(intervals), maxBox)
	}
	for i, d := range intervals {
		if d <= 0 {
			return nil, fmt.Errorf("%w: interval for box %d is not positive", ErrInvalidConfig, i+1)
		}
		if i > 0 && d <= intervals[i-1] {
			return nil, fmt.Errorf("%w: intervals must strictly increase (box %d)", ErrInvalidConfig, i+1)
		}
	}

	out := make([]time.Duration, len(intervals))
	copy(out, intervals)

	return &Scheduler{
		maxBox:    maxBox,
		intervals: out,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// MaxBox returns the highest box level.
func (s *Scheduler) MaxBox() int { return s.maxBox }

// IntervalFor returns the review interval for the given box level.
// The box must be within [1, MaxBox]; anything else is a bug in the caller
// and panics.
func (s *Scheduler) IntervalFor(box int) time.Duration {
	if box < 1 || box > s.maxBox {
		panic(fmt.Sprintf("leitner: IntervalFor called with box %d outside [1, %d]", box, s.maxBox))
	}
	return s.intervals[box-1]
}

// Review applies a single outcome to a card at the given time and returns the
// updated card plus a review log. The input card is not mutated.
//
// Correct promotes the card one box, capped at MaxBox; Incorrect resets it to
// box 1 regardless of prior level. Either way the due date becomes
// now + IntervalFor(new box).
//
// A card whose box is outside [1, MaxBox] indicates corrupted persisted state
// and returns ErrCorruptCard rather than being silently clamped.
func (s *Scheduler) Review(card Card, outcome Outcome, now time.Time) (Card, ReviewLog, error) {
	if !outcome.IsValid() {
		return Card{}, ReviewLog{}, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(outcome))
	}
	if card.Box < 1 || card.Box > s.maxBox {
		return Card{}, ReviewLog{}, fmt.Errorf("%w: card %q box %d outside [1, %d]",
			ErrCorruptCard, card.ID, card.Box, s.maxBox)
	}

	c := card
	switch outcome {
	case Correct:
		if c.Box < s.maxBox {
			c.Box++
		}
	case Incorrect:
		c.Box = 1
	}
	c.Due = now.Add(s.intervals[c.Box-1])
	reviewed := now
	c.LastReview = &reviewed

	rlog := ReviewLog{
		CardID:     c.ID,
		Outcome:    outcome,
		ReviewedAt: now,
	}
	return c, rlog, nil
}

// BuildQueue produces the ordered card IDs to present in a session. The
// result is a snapshot of due-ness at the given time; it is not refreshed as
// time passes.
//
// Cram returns every card in shuffled order. Smart returns only cards due at
// or before now, ordered by box ascending (weakest material first) with the
// earlier due date breaking ties. An empty deck, or a Smart queue where
// nothing is due, yields an empty queue; that is a valid "nothing to review"
// result, not an error.
func (s *Scheduler) BuildQueue(cards []Card, mode Mode, now time.Time) ([]string, error) {
	switch mode {
	case Cram:
		ids := make([]string, len(cards))
		for i, c := range cards {
			ids[i] = c.ID
		}
		s.rng.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
		return ids, nil

	case Smart:
		due := make([]Card, 0, len(cards))
		for _, c := range cards {
			if !c.Due.After(now) {
				due = append(due, c)
			}
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].Box != due[j].Box {
				return due[i].Box < due[j].Box
			}
			return due[i].Due.Before(due[j].Due)
		})
		ids := make([]string, len(due))
		for i, c := range due {
			ids[i] = c.ID
		}
		return ids, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
}
