// Package parser extracts flashcards from plain markdown-ish files.
//
// Cards are written as prefixed blocks:
//
//	Q: What is the capital of France?
//	A: Paris
//	C: Geography
//
// A new "Q:" line or a "---" separator ends the previous card. Field bodies
// may span multiple lines.
package parser

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mfreire/revisa/internal/domain"
)

const separator = "---"

type field int

const (
	none field = iota
	question
	answer
	context
)

var prefixes = map[string]field{
	"Q:": question,
	"A:": answer,
	"C:": context,
}

// ParseFile reads the file at path and extracts all cards. The deck name of
// each card is the file's base name without extension.
func ParseFile(path string) ([]domain.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	deck := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(f, deck)
}

// Parse extracts all cards from r, tagging each with the given deck name.
// Blocks without a question are dropped.
func Parse(r io.Reader, deck string) ([]domain.Card, error) {
	var (
		cards   []domain.Card
		current = map[field][]string{}
		active  = none
	)

	flush := func() {
		card := domain.Card{
			Deck:     deck,
			Question: strings.Join(current[question], "\n"),
			Answer:   strings.Join(current[answer], "\n"),
			Context:  strings.Join(current[context], "\n"),
		}
		if card.Question != "" {
			cards = append(cards, card)
		}
		current = map[field][]string{}
		active = none
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			flush()
			continue
		}

		if f, body, ok := splitPrefix(line); ok {
			if f == question && active != none {
				// A new question always starts a new card.
				flush()
			}
			active = f
			current[f] = append(current[f], body)
			continue
		}

		if active != none {
			current[active] = append(current[active], line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// splitPrefix reports whether the line opens a card field, returning the
// field and the line body with a single leading space stripped.
func splitPrefix(line string) (field, string, bool) {
	for prefix, f := range prefixes {
		if strings.HasPrefix(line, prefix) {
			body := strings.TrimPrefix(line[len(prefix):], " ")
			return f, body, true
		}
	}
	return none, "", false
}
