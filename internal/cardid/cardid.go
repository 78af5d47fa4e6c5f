// Package cardid derives stable, content-addressed card identifiers.
// A card keeps its review state across re-syncs as long as its content is
// unchanged; editing the question or answer produces a new identity.
package cardid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mfreire/revisa/internal/domain"
)

// Normalize returns the canonical text of a card: each field lowercased,
// whitespace-trimmed, with CRLF line endings collapsed, joined by newlines.
// The deck name participates so that the same card in two decks keeps
// distinct review state.
func Normalize(card domain.Card) string {
	parts := []string{card.Deck, card.Question, card.Answer, card.Context}
	for i, p := range parts {
		p = strings.ReplaceAll(p, "\r\n", "\n")
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "\n")
}

// ID returns the SHA-256 of the normalized card as a hex string.
func ID(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}
