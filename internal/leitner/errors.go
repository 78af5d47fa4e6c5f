package leitner

import "errors"

// Sentinel errors for the leitner package.
// Use errors.Is to check: errors.Is(err, leitner.ErrCorruptCard)
var (
	ErrInvalidOutcome = errors.New("leitner: invalid outcome")
	ErrInvalidMode    = errors.New("leitner: invalid study mode")
	ErrInvalidConfig  = errors.New("leitner: invalid scheduler config")
	ErrCorruptCard    = errors.New("leitner: card box out of range")
	ErrSessionState   = errors.New("leitner: operation not valid in current session state")
	ErrOutOfOrder     = errors.New("leitner: submit does not match the card at the head of the queue")
	ErrUnknownCard    = errors.New("leitner: card not part of this session")
)
