package domain

// Card is a single question-answer-context entry parsed from a source file.
// Deck names the collection the card belongs to, derived from the file it was
// parsed out of. ID is the content hash assigned by the cardid package; it is
// empty until the card has been hashed.
type Card struct {
	Question string
	Answer   string
	Context  string
	Deck     string
	ID       string
}
