package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Postgres mirrors the SQLite store on top of lib/pq. The statements differ
// only in placeholder style and in letting the server supply last_clicked.
type Postgres struct {
	db       *sql.DB
	initOnce sync.Once
	initErr  error
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	p.initOnce.Do(func() {
		_, p.initErr = p.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS links (
				id           SERIAL PRIMARY KEY,
				code         VARCHAR(8) UNIQUE NOT NULL,
				target_url   TEXT NOT NULL,
				total_clicks INTEGER NOT NULL DEFAULT 0,
				last_clicked TIMESTAMP,
				created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`)
	})
	return p.initErr
}

func (p *Postgres) Insert(ctx context.Context, code, targetURL string) (*Link, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO links(code, target_url) VALUES($1, $2)
		RETURNING id, code, target_url, total_clicks, last_clicked, created_at`,
		code, targetURL)
	link, err := scanLink(row)
	if err != nil {
		if isPostgresUnique(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return link, nil
}

func (p *Postgres) IncrementAndGet(ctx context.Context, code string, now time.Time) (string, error) {
	var target string
	err := p.db.QueryRowContext(ctx, `
		UPDATE links
		SET total_clicks = total_clicks + 1, last_clicked = $1
		WHERE code = $2
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

func (p *Postgres) GetByCode(ctx context.Context, code string) (*Link, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, code, target_url, total_clicks, last_clicked, created_at
		FROM links WHERE code = $1`, code)
	return scanLink(row)
}

func (p *Postgres) DeleteByCode(ctx context.Context, code string) (*Link, error) {
	row := p.db.QueryRowContext(ctx, `
		DELETE FROM links WHERE code = $1
		RETURNING id, code, target_url, total_clicks, last_clicked, created_at`,
		code)
	return scanLink(row)
}

func (p *Postgres) ListAll(ctx context.Context) ([]Link, error) {
	rows, err := p.db.QueryContext(ctx, `
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

// 23505 is unique_violation.
func isPostgresUnique(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

var _ Store = (*Postgres)(nil)
