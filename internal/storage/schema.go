package storage

const schema = `
-- One row per flashcard. Review state (box, due_at, last_reviewed_at) is
-- written only through UpdateCardState.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    context TEXT,
    box INTEGER NOT NULL DEFAULT 1,
    due_at DATETIME NOT NULL,
    last_reviewed_at DATETIME,
    created_at DATETIME NOT NULL,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck);
CREATE INDEX IF NOT EXISTS idx_cards_due ON cards(due_at);

-- Append-only audit log of review outcomes.
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    outcome TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL
);

-- Where cards come from: a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
