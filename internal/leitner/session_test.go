package leitner

import (
	"errors"
	"testing"
	"time"
)

func startedSession(t *testing.T, cards []Card, mode Mode) *Session {
	t.Helper()
	s := mustScheduler(t, Config{})
	sess, err := s.NewSession(cards, mode)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := sess.Start(t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess
}

func TestSessionLifecycle(t *testing.T) {
	cards := []Card{
		{ID: "a", Box: 1, Due: t0.Add(-time.Hour)},
		{ID: "b", Box: 2, Due: t0.Add(-time.Minute)},
	}
	s := mustScheduler(t, Config{})
	sess, err := s.NewSession(cards, Smart)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if sess.Status() != NotStarted {
		t.Fatalf("Status = %v, want NotStarted", sess.Status())
	}
	if _, ok := sess.Next(); ok {
		t.Fatal("Next before Start should report no card")
	}

	if err := sess.Start(t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Status() != InProgress {
		t.Fatalf("Status = %v, want InProgress", sess.Status())
	}

	// Smart ordering: box 1 before box 2.
	id, ok := sess.Next()
	if !ok || id != "a" {
		t.Fatalf("Next = %q, %v; want \"a\", true", id, ok)
	}
	if _, err := sess.Submit("a", Correct, t0); err != nil {
		t.Fatalf("Submit a: %v", err)
	}

	id, ok = sess.Next()
	if !ok || id != "b" {
		t.Fatalf("Next = %q, %v; want \"b\", true", id, ok)
	}
	updated, err := sess.Submit("b", Incorrect, t0)
	if err != nil {
		t.Fatalf("Submit b: %v", err)
	}
	if updated.Box != 1 {
		t.Errorf("updated Box = %d, want 1", updated.Box)
	}

	if sess.Status() != Complete {
		t.Errorf("Status = %v, want Complete", sess.Status())
	}
	if _, ok := sess.Next(); ok {
		t.Error("Next on complete session should report no card")
	}
	reviewed, total := sess.Progress()
	if reviewed != 2 || total != 2 {
		t.Errorf("Progress = %d/%d, want 2/2", reviewed, total)
	}
	logs := sess.Logs()
	if len(logs) != 2 || logs[0].CardID != "a" || logs[1].Outcome != Incorrect {
		t.Errorf("Logs = %+v", logs)
	}
}

func TestSessionEmptyDeckCompletesImmediately(t *testing.T) {
	sess := startedSession(t, nil, Smart)
	if sess.Status() != Complete {
		t.Errorf("Status = %v, want Complete", sess.Status())
	}
	if _, ok := sess.Next(); ok {
		t.Error("Next should immediately signal completion for an empty deck")
	}
}

func TestSessionNothingDueCompletesImmediately(t *testing.T) {
	cards := []Card{{ID: "a", Box: 3, Due: t0.Add(time.Hour)}}
	sess := startedSession(t, cards, Smart)
	if sess.Status() != Complete {
		t.Errorf("Status = %v, want Complete", sess.Status())
	}
}

func TestSessionSnapshotIgnoresMidSessionDueness(t *testing.T) {
	// A card due one minute after Start never enters the queue, even when
	// the submits happen well past its due date.
	cards := []Card{
		{ID: "due", Box: 1, Due: t0.Add(-time.Hour)},
		{ID: "soon", Box: 1, Due: t0.Add(time.Minute)},
	}
	sess := startedSession(t, cards, Smart)

	id, _ := sess.Next()
	if id != "due" {
		t.Fatalf("Next = %q, want \"due\"", id)
	}
	if _, err := sess.Submit("due", Correct, t0.Add(time.Hour)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sess.Status() != Complete {
		t.Errorf("Status = %v, want Complete (card \"soon\" must not be injected)", sess.Status())
	}
}

func TestSessionNextIsIdempotentBeforeSubmit(t *testing.T) {
	cards := []Card{{ID: "a", Box: 1, Due: t0.Add(-time.Hour)}}
	sess := startedSession(t, cards, Smart)

	first, _ := sess.Next()
	second, _ := sess.Next()
	if first != second {
		t.Errorf("Next returned %q then %q before Submit", first, second)
	}
}

func TestSessionSubmitOutOfOrderRejected(t *testing.T) {
	cards := []Card{
		{ID: "a", Box: 1, Due: t0.Add(-2 * time.Hour)},
		{ID: "b", Box: 2, Due: t0.Add(-time.Hour)},
	}
	sess := startedSession(t, cards, Smart)

	if _, ok := sess.Next(); !ok {
		t.Fatal("Next reported no card")
	}
	_, err := sess.Submit("b", Correct, t0)
	if !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Submit for non-head card: error = %v, want ErrOutOfOrder", err)
	}
}

func TestSessionDoubleSubmitRejected(t *testing.T) {
	cards := []Card{
		{ID: "a", Box: 1, Due: t0.Add(-2 * time.Hour)},
		{ID: "b", Box: 2, Due: t0.Add(-time.Hour)},
	}
	sess := startedSession(t, cards, Smart)

	if _, ok := sess.Next(); !ok {
		t.Fatal("Next reported no card")
	}
	if _, err := sess.Submit("a", Correct, t0); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	// Second submit for the same position, without another Next.
	_, err := sess.Submit("a", Correct, t0)
	if !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("double Submit: error = %v, want ErrOutOfOrder", err)
	}
}

func TestSessionSubmitWithoutNextRejected(t *testing.T) {
	cards := []Card{{ID: "a", Box: 1, Due: t0.Add(-time.Hour)}}
	sess := startedSession(t, cards, Smart)

	_, err := sess.Submit("a", Correct, t0)
	if !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Submit without Next: error = %v, want ErrOutOfOrder", err)
	}
}

func TestSessionSubmitAfterCompleteRejected(t *testing.T) {
	cards := []Card{{ID: "a", Box: 1, Due: t0.Add(-time.Hour)}}
	sess := startedSession(t, cards, Smart)

	if _, ok := sess.Next(); !ok {
		t.Fatal("Next reported no card")
	}
	if _, err := sess.Submit("a", Correct, t0); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err := sess.Submit("a", Correct, t0)
	if !errors.Is(err, ErrSessionState) {
		t.Errorf("Submit after Complete: error = %v, want ErrSessionState", err)
	}
}

func TestSessionStartTwiceRejected(t *testing.T) {
	cards := []Card{{ID: "a", Box: 1, Due: t0.Add(-time.Hour)}}
	sess := startedSession(t, cards, Smart)
	if err := sess.Start(t0); !errors.Is(err, ErrSessionState) {
		t.Errorf("second Start: error = %v, want ErrSessionState", err)
	}
}

func TestSessionSubmitBeforeStartRejected(t *testing.T) {
	s := mustScheduler(t, Config{})
	sess, err := s.NewSession([]Card{{ID: "a", Box: 1, Due: t0}}, Cram)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	_, err = sess.Submit("a", Correct, t0)
	if !errors.Is(err, ErrSessionState) {
		t.Errorf("Submit before Start: error = %v, want ErrSessionState", err)
	}
}

func TestSessionNewSessionInvalidMode(t *testing.T) {
	s := mustScheduler(t, Config{})
	_, err := s.NewSession(nil, Mode(9))
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("error = %v, want ErrInvalidMode", err)
	}
}

func TestSessionCramCoversWholeDeck(t *testing.T) {
	cards := []Card{
		{ID: "a", Box: 1, Due: t0.Add(100 * time.Hour)},
		{ID: "b", Box: 2, Due: t0.Add(-time.Hour)},
		{ID: "c", Box: 5, Due: t0.Add(50 * time.Hour)},
	}
	sess := startedSession(t, cards, Cram)

	reviewed := make(map[string]bool)
	for {
		id, ok := sess.Next()
		if !ok {
			break
		}
		if reviewed[id] {
			t.Fatalf("card %q presented twice", id)
		}
		reviewed[id] = true
		if _, err := sess.Submit(id, Correct, t0); err != nil {
			t.Fatalf("Submit %q: %v", id, err)
		}
	}
	if len(reviewed) != len(cards) {
		t.Errorf("reviewed %d cards, want %d", len(reviewed), len(cards))
	}
	if sess.Status() != Complete {
		t.Errorf("Status = %v, want Complete", sess.Status())
	}
}
