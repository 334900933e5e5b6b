package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db       *sql.DB
	initOnce sync.Once
	initErr  error
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// EnsureSchema runs the idempotent CREATE IF NOT EXISTS exactly once per
// store instance. Concurrent first callers all wait on the same attempt and
// see the same result.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	s.initOnce.Do(func() {
		_, s.initErr = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS links (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				code         TEXT UNIQUE NOT NULL,
				target_url   TEXT NOT NULL,
				total_clicks INTEGER NOT NULL DEFAULT 0,
				last_clicked DATETIME,
				created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`)
		if s.initErr == nil {
			_, s.initErr = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_links_code ON links(code)`)
		}
	})
	return s.initErr
}

func (s *SQLite) Insert(ctx context.Context, code, targetURL string) (*Link, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO links(code, target_url) VALUES(?, ?)
		RETURNING id, code, target_url, total_clicks, last_clicked, created_at`,
		code, targetURL)
	link, err := scanLink(row)
	if err != nil {
		if isSQLiteUnique(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return link, nil
}

// IncrementAndGet is the one statement that makes resolution atomic: the
// counter bump, timestamp set and target read commit together or not at all.
func (s *SQLite) IncrementAndGet(ctx context.Context, code string, now time.Time) (string, error) {
	var target string
	err := s.db.QueryRowContext(ctx, `
		UPDATE links
		SET total_clicks = total_clicks + 1, last_clicked = ?
		WHERE code = ?
		RETURNING target_url`,
		now.UTC(), code).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return target, nil
}

func (s *SQLite) GetByCode(ctx context.Context, code string) (*Link, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, target_url, total_clicks, last_clicked, created_at
		FROM links WHERE code = ?`, code)
	return scanLink(row)
}

func (s *SQLite) DeleteByCode(ctx context.Context, code string) (*Link, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM links WHERE code = ?
		RETURNING id, code, target_url, total_clicks, last_clicked, created_at`,
		code)
	return scanLink(row)
}

func (s *SQLite) ListAll(ctx context.Context) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, target_url, total_clicks, last_clicked, created_at
		FROM links ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		var l Link
		var last sql.NullTime
		if err := rows.Scan(&l.ID, &l.Code, &l.TargetURL, &l.TotalClicks, &last, &l.CreatedAt); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time.UTC()
			l.LastClicked = &t
		}
		l.CreatedAt = l.CreatedAt.UTC()
		links = append(links, l)
	}
	return links, rows.Err()
}

func scanLink(row *sql.Row) (*Link, error) {
	var l Link
	var last sql.NullTime
	err := row.Scan(&l.ID, &l.Code, &l.TargetURL, &l.TotalClicks, &last, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time.UTC()
		l.LastClicked = &t
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

func isSQLiteUnique(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

var _ Store = (*SQLite)(nil)
