package leitner

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	NotStarted Status = iota + 1
	InProgress
	Complete
)

var statusNames = [...]string{NotStarted: "NotStarted", InProgress: "InProgress", Complete: "Complete"}

func (st Status) isValid() bool {
	return st >= NotStarted && st <= Complete
}

// String returns the name of the status ("NotStarted", "InProgress", "Complete").
// For invalid values it returns "Status(n)".
func (st Status) String() string {
	if st.isValid() {
		return statusNames[st]
	}
	return fmt.Sprintf("Status(%d)", int(st))
}

// Session is one bounded pass through a queue of cards. It is created per
// session rather than shared; concurrent sessions over the same deck are
// independent instances that reconcile only at the persistence boundary.
//
// A session is not safe for concurrent use.
type Session struct {
	sched   *Scheduler
	mode    Mode
	cards   map[string]Card
	queue   []string
	pos     int
	pending bool
	status  Status
	logs    []ReviewLog
}

// NewSession creates a session over the given cards. The queue is not built
// until Start is called.
func (s *Scheduler) NewSession(cards []Card, mode Mode) (*Session, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
	m := make(map[string]Card, len(cards))
	for _, c := range cards {
		m[c.ID] = c
	}
	return &Session{
		sched:  s,
		mode:   mode,
		cards:  m,
		status: NotStarted,
	}, nil
}

// Start builds the review queue as a snapshot of due-ness at the given time
// and moves the session to InProgress. Cards that become due afterwards are
// not injected mid-session. An empty queue completes the session immediately.
func (sess *Session) Start(now time.Time) error {
	if sess.status != NotStarted {
		return fmt.Errorf("%w: start on %s session", ErrSessionState, sess.status)
	}
	cards := make([]Card, 0, len(sess.cards))
	for _, c := range sess.cards {
		cards = append(cards, c)
	}
	queue, err := sess.sched.BuildQueue(cards, sess.mode, now)
	if err != nil {
		return err
	}
	sess.queue = queue
	if len(queue) == 0 {
		sess.status = Complete
	} else {
		sess.status = InProgress
	}
	return nil
}

// Next returns the ID of the card at the head of the queue. It reports false
// when the session is complete (or not yet started). Calling Next again
// before Submit returns the same card.
func (sess *Session) Next() (string, bool) {
	if sess.status != InProgress {
		return "", false
	}
	sess.pending = true
	return sess.queue[sess.pos], true
}

// Submit records the outcome for the card previously returned by Next and
// advances the session. The updated card state is returned for the caller to
// persist before the next review is processed.
//
// Submitting a card other than the current head, or submitting the same queue
// position twice, is rejected with ErrOutOfOrder so a single review cannot be
// scored twice.
func (sess *Session) Submit(cardID string, outcome Outcome, now time.Time) (Card, error) {
	if sess.status != InProgress {
		return Card{}, fmt.Errorf("%w: submit on %s session", ErrSessionState, sess.status)
	}
	if !sess.pending {
		return Card{}, fmt.Errorf("%w: submit without a pending Next", ErrOutOfOrder)
	}
	head := sess.queue[sess.pos]
	if cardID != head {
		return Card{}, fmt.Errorf("%w: submitted %q, head is %q", ErrOutOfOrder, cardID, head)
	}
	card, ok := sess.cards[cardID]
	if !ok {
		return Card{}, fmt.Errorf("%w: %q", ErrUnknownCard, cardID)
	}

	updated, rlog, err := sess.sched.Review(card, outcome, now)
	if err != nil {
		return Card{}, err
	}
	sess.cards[cardID] = updated
	sess.logs = append(sess.logs, rlog)
	sess.pending = false
	sess.pos++
	if sess.pos >= len(sess.queue) {
		sess.status = Complete
	}
	return updated, nil
}

// Status returns the session's lifecycle state.
func (sess *Session) Status() Status { return sess.status }

// Mode returns the study mode the session was created with.
func (sess *Session) Mode() Mode { return sess.mode }

// Progress returns how many reviews have been submitted and the queue length.
func (sess *Session) Progress() (reviewed, total int) {
	return sess.pos, len(sess.queue)
}

// Logs returns the review logs accumulated so far, in submission order.
func (sess *Session) Logs() []ReviewLog {
	out := make([]ReviewLog, len(sess.logs))
	copy(out, sess.logs)
	return out
}
