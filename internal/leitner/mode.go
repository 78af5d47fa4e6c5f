package leitner

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects how a review queue is built.
type Mode int

const (
	// Cram ignores due dates and presents every card in the deck, shuffled.
	// Used for short-notice exam preparation.
	Cram Mode = iota + 1
	// Smart presents only cards whose due date has passed, lowest box first.
	// This is spaced repetition proper.
	Smart
)

var (
	modeNames  = [...]string{Cram: "Cram", Smart: "Smart"}
	modeByName = map[string]Mode{
		"Cram":  Cram,
		"Smart": Smart,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Mode(0)
	_ json.Marshaler           = Mode(0)
	_ json.Unmarshaler         = (*Mode)(nil)
	_ encoding.TextMarshaler   = Mode(0)
	_ encoding.TextUnmarshaler = (*Mode)(nil)
)

// ParseMode converts a case-insensitive mode name ("cram", "smart") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cram":
		return Cram, nil
	case "smart":
		return Smart, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// String returns "Cram" or "Smart".
// For invalid values it returns "Mode(n)".
func (m Mode) String() string {
	if m.IsValid() {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// IsValid reports whether m is a valid mode.
func (m Mode) IsValid() bool {
	return m == Cram || m == Smart
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, ok := modeByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMode, text)
	}
	*m = v
	return nil
}

// MarshalJSON implements json.Marshaler. Mode serializes as a JSON string.
func (m Mode) MarshalJSON() ([]byte, error) {
	text, err := m.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMode, data)
	}
	return m.UnmarshalText([]byte(s))
}
