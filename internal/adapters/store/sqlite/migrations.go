package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. Creation order is the
// implicit rowid, which List relies on for leaderboard tie-breaking.
const schema = `
CREATE TABLE IF NOT EXISTS memes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    image_url TEXT NOT NULL,
    tags TEXT NOT NULL,
    caption TEXT NOT NULL DEFAULT '',
    vibe TEXT NOT NULL DEFAULT '',
    upvotes INTEGER NOT NULL DEFAULT 0 CHECK (upvotes >= 0),
    highest_bid INTEGER NOT NULL DEFAULT 0 CHECK (highest_bid >= 0),
    highest_bidder TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_memes_upvotes ON memes (upvotes DESC);
`

// runMigrations applies the schema to the database.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
