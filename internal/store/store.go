package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		subreddit TEXT NOT NULL,
		title TEXT NOT NULL,
		selftext TEXT DEFAULT '',
		author TEXT DEFAULT '[deleted]',
		url TEXT,
		permalink TEXT,
		score INTEGER DEFAULT 0,
		num_comments INTEGER DEFAULT 0,
		created_utc REAL,
		is_self BOOLEAN DEFAULT 0,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id TEXT NOT NULL REFERENCES posts(id),
		model_type TEXT NOT NULL,
		locale TEXT NOT NULL DEFAULT 'ko_KR',
		summary TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(post_id, model_type, locale)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_subreddit ON posts(subreddit);
	CREATE INDEX IF NOT EXISTS idx_summaries_post ON summaries(post_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
