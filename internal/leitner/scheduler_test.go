package leitner

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func mustScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

// --- NewScheduler ---

func TestNewSchedulerDefault(t *testing.T) {
	s := mustScheduler(t, Config{})
	if s.MaxBox() != DefaultMaxBox {
		t.Errorf("MaxBox = %d, want %d", s.MaxBox(), DefaultMaxBox)
	}
	if got := s.IntervalFor(1); got != 24*time.Hour {
		t.Errorf("IntervalFor(1) = %v, want 24h", got)
	}
	if got := s.IntervalFor(5); got != 14*24*time.Hour {
		t.Errorf("IntervalFor(5) = %v, want 336h", got)
	}
}

func TestNewSchedulerCustomTable(t *testing.T) {
	cfg := Config{
		MaxBox:    3,
		Intervals: []time.Duration{time.Hour, 2 * time.Hour, 5 * time.Hour},
	}
	s := mustScheduler(t, cfg)
	if s.MaxBox() != 3 {
		t.Errorf("MaxBox = %d, want 3", s.MaxBox())
	}
	if got := s.IntervalFor(2); got != 2*time.Hour {
		t.Errorf("IntervalFor(2) = %v, want 2h", got)
	}
}

func TestNewSchedulerSmallMaxBoxDefaults(t *testing.T) {
	// With no explicit intervals the default table is truncated.
	s := mustScheduler(t, Config{MaxBox: 3})
	if got := s.IntervalFor(3); got != 4*24*time.Hour {
		t.Errorf("IntervalFor(3) = %v, want 96h", got)
	}
}

func TestNewSchedulerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative max box", Config{MaxBox: -1}},
		{"interval count mismatch", Config{MaxBox: 3, Intervals: []time.Duration{time.Hour}}},
		{"non-increasing intervals", Config{MaxBox: 2, Intervals: []time.Duration{2 * time.Hour, time.Hour}}},
		{"equal intervals", Config{MaxBox: 2, Intervals: []time.Duration{time.Hour, time.Hour}}},
		{"zero interval", Config{MaxBox: 1, Intervals: []time.Duration{0}}},
		{"max box beyond default table", Config{MaxBox: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewScheduler(%+v) error = %v, want ErrInvalidConfig", tt.cfg, err)
			}
		})
	}
}

func TestNewSchedulerCopiesIntervals(t *testing.T) {
	intervals := []time.Duration{time.Hour, 2 * time.Hour}
	s := mustScheduler(t, Config{MaxBox: 2, Intervals: intervals})
	intervals[0] = 9 * time.Hour
	if got := s.IntervalFor(1); got != time.Hour {
		t.Errorf("IntervalFor(1) = %v after caller mutation, want 1h", got)
	}
}

func TestIntervalForPanicsOutOfRange(t *testing.T) {
	s := mustScheduler(t, Config{})
	for _, box := range []int{0, -1, 6} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("IntervalFor(%d) did not panic", box)
				}
			}()
			s.IntervalFor(box)
		}()
	}
}

// --- Review ---

func TestReviewCorrectPromotes(t *testing.T) {
	s := mustScheduler(t, Config{})
	card := NewCard("c1", t0)

	got, rlog, err := s.Review(card, Correct, t0)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got.Box != 2 {
		t.Errorf("Box = %d, want 2", got.Box)
	}
	wantDue := t0.Add(2 * 24 * time.Hour)
	if !got.Due.Equal(wantDue) {
		t.Errorf("Due = %v, want %v", got.Due, wantDue)
	}
	if got.LastReview == nil || !got.LastReview.Equal(t0) {
		t.Errorf("LastReview = %v, want %v", got.LastReview, t0)
	}
	if rlog.CardID != "c1" || rlog.Outcome != Correct || !rlog.ReviewedAt.Equal(t0) {
		t.Errorf("ReviewLog = %+v", rlog)
	}
}

func TestReviewIncorrectResetsToBoxOne(t *testing.T) {
	s := mustScheduler(t, Config{})
	t5 := t0.Add(120 * time.Hour)
	for box := 1; box <= 5; box++ {
		card := NewCard("c1", t0)
		card.Box = box

		got, _, err := s.Review(card, Incorrect, t5)
		if err != nil {
			t.Fatalf("Review box %d: %v", box, err)
		}
		if got.Box != 1 {
			t.Errorf("box %d: Box = %d, want 1", box, got.Box)
		}
		wantDue := t5.Add(24 * time.Hour)
		if !got.Due.Equal(wantDue) {
			t.Errorf("box %d: Due = %v, want %v", box, got.Due, wantDue)
		}
	}
}

func TestReviewCorrectCapsAtMaxBox(t *testing.T) {
	s := mustScheduler(t, Config{})
	card := NewCard("c1", t0)
	card.Box = 5

	got, _, err := s.Review(card, Correct, t0)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got.Box != 5 {
		t.Errorf("Box = %d, want 5 (capped)", got.Box)
	}
	wantDue := t0.Add(14 * 24 * time.Hour)
	if !got.Due.Equal(wantDue) {
		t.Errorf("Due = %v, want %v", got.Due, wantDue)
	}
}

func TestReviewDoesNotMutateInput(t *testing.T) {
	s := mustScheduler(t, Config{})
	card := NewCard("c1", t0)

	_, _, err := s.Review(card, Correct, t0)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if card.Box != 1 || !card.Due.Equal(t0) || card.LastReview != nil {
		t.Errorf("input card mutated: %+v", card)
	}
}

func TestReviewRejectsCorruptBox(t *testing.T) {
	s := mustScheduler(t, Config{})
	for _, box := range []int{0, -3, 6, 99} {
		card := NewCard("c1", t0)
		card.Box = box
		_, _, err := s.Review(card, Correct, t0)
		if !errors.Is(err, ErrCorruptCard) {
			t.Errorf("box %d: error = %v, want ErrCorruptCard", box, err)
		}
	}
}

func TestReviewRejectsInvalidOutcome(t *testing.T) {
	s := mustScheduler(t, Config{})
	card := NewCard("c1", t0)
	_, _, err := s.Review(card, Outcome(7), t0)
	if !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("error = %v, want ErrInvalidOutcome", err)
	}
}

func TestReviewBoxBoundsInvariant(t *testing.T) {
	// For any sequence of outcomes the box stays within [1, MaxBox] and the
	// due date is always last review plus the interval for the new box.
	s := mustScheduler(t, Config{})
	rng := rand.New(rand.NewSource(42))
	card := NewCard("c1", t0)
	now := t0

	for i := 0; i < 500; i++ {
		outcome := Correct
		if rng.Intn(2) == 0 {
			outcome = Incorrect
		}
		prev := card
		next, _, err := s.Review(card, outcome, now)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if next.Box < 1 || next.Box > s.MaxBox() {
			t.Fatalf("step %d: Box = %d outside [1, %d]", i, next.Box, s.MaxBox())
		}
		if outcome == Correct && next.Box < prev.Box {
			t.Fatalf("step %d: Correct decreased box %d -> %d", i, prev.Box, next.Box)
		}
		wantDue := next.LastReview.Add(s.IntervalFor(next.Box))
		if !next.Due.Equal(wantDue) {
			t.Fatalf("step %d: Due = %v, want %v", i, next.Due, wantDue)
		}
		card = next
		now = next.Due.Add(time.Duration(rng.Intn(48)) * time.Hour)
	}
}

// --- BuildQueue ---

func TestBuildQueueCramIncludesEverything(t *testing.T) {
	s := mustScheduler(t, Config{})
	cards := []Card{
		{ID: "a", Box: 1, Due: t0.Add(-time.Hour)},
		{ID: "b", Box: 3, Due: t0.Add(100 * time.Hour)}, // not due
		{ID: "c", Box: 5, Due: t0.Add(-time.Minute)},
	}
	queue, err := s.BuildQueue(cards, Cram, t0)
	if err != nil {
		t.Fatalf("BuildQueue: %v", err)
	}
	if len(queue) != len(cards) {
		t.Fatalf("len(queue) = %d, want %d", len(queue), len(cards))
	}
	seen := make(map[string]bool)
	for _, id := range queue {
		seen[id] = true
	}
	for _, c := range cards {
		if !seen[c.ID] {
			t.Errorf("cram queue missing card %q", c.ID)
		}
	}
}

func TestBuildQueueSmartFiltersDue(t *testing.T) {
	s := mustScheduler(t, Config{})
	cards := []Card{
		{ID: "past1", Box: 2, Due: t0.Add(-48 * time.Hour)},
		{ID: "future", Box: 1, Due: t0.Add(time.Hour)},
		{ID: "past2", Box: 2, Due: t0.Add(-time.Hour)},
		{ID: "exact", Box: 4, Due: t0}, // due at exactly now is included
	}
	queue, err := s.BuildQueue(cards, Smart, t0)
	if err != nil {
		t.Fatalf("BuildQueue: %v", err)
	}
	want := []string{"past1", "past2", "exact"}
	if len(queue) != len(want) {
		t.Fatalf("queue = %v, want %v", queue, want)
	}
	for i, id := range want {
		if queue[i] != id {
			t.Errorf("queue[%d] = %q, want %q", i, queue[i], id)
		}
	}
}

func TestBuildQueueSmartOrdersByBoxThenDue(t *testing.T) {
	s := mustScheduler(t, Config{})
	cards := []Card{
		{ID: "b5", Box: 5, Due: t0.Add(-90 * time.Hour)},
		{ID: "b1-late", Box: 1, Due: t0.Add(-time.Hour)},
		{ID: "b1-early", Box: 1, Due: t0.Add(-50 * time.Hour)},
		{ID: "b3", Box: 3, Due: t0.Add(-10 * time.Hour)},
	}
	queue, err := s.BuildQueue(cards, Smart, t0)
	if err != nil {
		t.Fatalf("BuildQueue: %v", err)
	}
	want := []string{"b1-early", "b1-late", "b3", "b5"}
	for i, id := range want {
		if queue[i] != id {
			t.Fatalf("queue = %v, want %v", queue, want)
		}
	}
}

func TestBuildQueueEmptyDeck(t *testing.T) {
	s := mustScheduler(t, Config{})
	for _, mode := range []Mode{Cram, Smart} {
		queue, err := s.BuildQueue(nil, mode, t0)
		if err != nil {
			t.Fatalf("%v: %v", mode, err)
		}
		if len(queue) != 0 {
			t.Errorf("%v: queue = %v, want empty", mode, queue)
		}
	}
}

func TestBuildQueueNothingDue(t *testing.T) {
	s := mustScheduler(t, Config{})
	cards := []Card{{ID: "a", Box: 2, Due: t0.Add(time.Hour)}}
	queue, err := s.BuildQueue(cards, Smart, t0)
	if err != nil {
		t.Fatalf("BuildQueue: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("queue = %v, want empty", queue)
	}
}

func TestBuildQueueInvalidMode(t *testing.T) {
	s := mustScheduler(t, Config{})
	_, err := s.BuildQueue(nil, Mode(0), t0)
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("error = %v, want ErrInvalidMode", err)
	}
}
