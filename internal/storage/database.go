package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mfreire/revisa/internal/domain"
	"github.com/mfreire/revisa/internal/leitner"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrConflict is returned by UpdateCardState when the card's persisted state
// no longer matches the state the review was computed from, meaning another
// writer updated the card in between.
var ErrConflict = errors.New("storage: card state changed concurrently")

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite permits a single writer; one pooled connection also keeps
	// :memory: databases on a single handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CardRow is a card as stored: content plus review state.
type CardRow struct {
	ID             string
	Deck           string
	Question       string
	Answer         string
	Context        string
	Box            int
	DueAt          time.Time
	LastReviewedAt sql.NullTime
	CreatedAt      time.Time
	SourceID       sql.NullInt64
}

// State returns the scheduling view of the row.
func (r CardRow) State() leitner.Card {
	c := leitner.Card{
		ID:        r.ID,
		Box:       r.Box,
		Due:       r.DueAt,
		CreatedAt: r.CreatedAt,
	}
	if r.LastReviewedAt.Valid {
		t := r.LastReviewedAt.Time
		c.LastReview = &t
	}
	return c
}

const cardColumns = `id, deck, question, answer, context, box, due_at, last_reviewed_at, created_at, source_id`

func scanCard(row interface{ Scan(...any) error }) (CardRow, error) {
	var r CardRow
	err := row.Scan(
		&r.ID,
		&r.Deck,
		&r.Question,
		&r.Answer,
		&r.Context,
		&r.Box,
		&r.DueAt,
		&r.LastReviewedAt,
		&r.CreatedAt,
		&r.SourceID,
	)
	return r, err
}

// InsertCard inserts a new card in box 1, due immediately.
func (db *DB) InsertCard(card domain.Card, sourceID int64, now time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO cards (id, deck, question, answer, context, box, due_at, created_at, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.Deck,
		card.Question,
		card.Answer,
		card.Context,
		1,
		now,
		now,
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// FindCardByID retrieves a card by its ID. Returns (nil, nil) when absent.
func (db *DB) FindCardByID(id string) (*CardRow, error) {
	row := db.conn.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	r, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card %s: %w", id, err)
	}
	return &r, nil
}

// GetCardsByDeck retrieves all cards in the named deck.
func (db *DB) GetCardsByDeck(deck string) ([]CardRow, error) {
	rows, err := db.conn.Query(`SELECT `+cardColumns+` FROM cards WHERE deck = ?`, deck)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deck, err)
	}
	defer rows.Close()

	var cards []CardRow
	for rows.Next() {
		r, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row for deck %s: %w", deck, err)
		}
		cards = append(cards, r)
	}
	return cards, rows.Err()
}

// GetCardsBySourceID retrieves all cards associated with a source.
func (db *DB) GetCardsBySourceID(sourceID int64) ([]CardRow, error) {
	rows, err := db.conn.Query(`SELECT `+cardColumns+` FROM cards WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var cards []CardRow
	for rows.Next() {
		r, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row for source ID %d: %w", sourceID, err)
		}
		cards = append(cards, r)
	}
	return cards, rows.Err()
}

// DeckSummary is one deck with its card counts.
type DeckSummary struct {
	Name     string
	Cards    int
	DueCards int
}

// GetDecks lists all decks with total and due card counts as of now.
func (db *DB) GetDecks(now time.Time) ([]DeckSummary, error) {
	rows, err := db.conn.Query(`
		SELECT deck, COUNT(*), SUM(CASE WHEN due_at <= ? THEN 1 ELSE 0 END)
		FROM cards GROUP BY deck ORDER BY deck
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []DeckSummary
	for rows.Next() {
		var d DeckSummary
		if err := rows.Scan(&d.Name, &d.Cards, &d.DueCards); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// UpdateCardState persists a review transition. The write is conditional on
// the previously read box and due date still matching, so two submissions
// racing on the same card cannot silently overwrite each other; the loser
// gets ErrConflict and must re-read.
func (db *DB) UpdateCardState(prev, next leitner.Card) error {
	res, err := db.conn.Exec(`
		UPDATE cards
		SET box = ?, due_at = ?, last_reviewed_at = ?
		WHERE id = ? AND box = ? AND due_at = ?
	`,
		next.Box,
		next.Due,
		next.LastReview,
		prev.ID,
		prev.Box,
		prev.Due,
	)
	if err != nil {
		return fmt.Errorf("failed to update card state for %s: %w", prev.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update for %s: %w", prev.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("card %s: %w", prev.ID, ErrConflict)
	}
	return nil
}

// InsertReview appends a review event to the audit log.
func (db *DB) InsertReview(rlog leitner.ReviewLog) error {
	_, err := db.conn.Exec(`
		INSERT INTO reviews (card_id, outcome, reviewed_at)
		VALUES (?, ?, ?)
	`, rlog.CardID, rlog.Outcome.String(), rlog.ReviewedAt)
	if err != nil {
		return fmt.Errorf("failed to insert review for %s: %w", rlog.CardID, err)
	}
	return nil
}

// DeleteCardByID removes a card and its review history.
func (db *DB) DeleteCardByID(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM reviews WHERE card_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete reviews for card %s: %w", id, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM cards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	return nil
}

// Source represents a card source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by path. Returns (nil, nil) when absent.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_scanned
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source and all of its cards.
func (db *DB) DeleteSource(id int64) error {
	cards, err := db.GetCardsBySourceID(id)
	if err != nil {
		return err
	}
	for _, c := range cards {
		if err := db.DeleteCardByID(c.ID); err != nil {
			return err
		}
	}
	if _, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastScanned records when a source was last reconciled.
func (db *DB) UpdateSourceLastScanned(sourceID int64, now time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, now, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}
