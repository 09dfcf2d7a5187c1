package store

import (
	"database/sql"
	"errors"
)

// SaveSummary inserts or overwrites the cached text for a key
func (s *Store) SaveSummary(key Key, text string) error {
	_, err := s.db.Exec(`
		INSERT INTO summaries (post_id, model_type, locale, summary)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(post_id, model_type, locale) DO UPDATE SET
			summary = excluded.summary,
			created_at = CURRENT_TIMESTAMP
	`, key.PostID, string(key.Kind), key.Locale, text)

	return err
}

// GetSummary looks up the cached text for a key. A miss is reported
// through the second return value, never as an error.
func (s *Store) GetSummary(key Key) (string, bool, error) {
	var text string
	err := s.db.QueryRow(`
		SELECT summary FROM summaries
		WHERE post_id = ? AND model_type = ? AND locale = ?
	`, key.PostID, string(key.Kind), key.Locale).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// DeleteSummary removes the cached text for a key, if any
func (s *Store) DeleteSummary(key Key) error {
	_, err := s.db.Exec(`
		DELETE FROM summaries
		WHERE post_id = ? AND model_type = ? AND locale = ?
	`, key.PostID, string(key.Kind), key.Locale)

	return err
}

// DeleteAllSummaries clears the whole generation cache and reports how
// many records were removed.
func (s *Store) DeleteAllSummaries() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM summaries`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountSummaries reports the number of cached generations
func (s *Store) CountSummaries() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM summaries`).Scan(&n)
	return n, err
}
