package store

import (
	"database/sql"
	"errors"

	"reddiscribe/internal/reddit"
)

// SavePost records a post the first time it is seen. Posts are treated
// as immutable once fetched, so a repeat insert with the same id is a
// no-op rather than an update.
func (s *Store) SavePost(p *reddit.Post) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO posts (id, subreddit, title, selftext, author,
			url, permalink, score, num_comments, created_utc, is_self, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Subreddit, p.Title, p.SelfText, p.Author,
		p.URL, p.Permalink, p.Score, p.NumComments, p.CreatedUTC, p.IsSelf, p.FetchedAt)

	return err
}

// GetPost loads a previously saved post. The second return value is
// false when no post with that id exists.
func (s *Store) GetPost(id string) (*reddit.Post, bool, error) {
	var p reddit.Post
	err := s.db.QueryRow(`
		SELECT id, subreddit, title, selftext, author,
			url, permalink, score, num_comments, created_utc, is_self, fetched_at
		FROM posts
		WHERE id = ?
	`, id).Scan(
		&p.ID, &p.Subreddit, &p.Title, &p.SelfText, &p.Author,
		&p.URL, &p.Permalink, &p.Score, &p.NumComments, &p.CreatedUTC, &p.IsSelf, &p.FetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &p, true, nil
}
