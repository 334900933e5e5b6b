package store

import (
	"context"
	"errors"
	"time"
)

// Link is the persisted code -> destination mapping.
type Link struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	TargetURL   string     `json:"target_url"`
	TotalClicks int64      `json:"total_clicks"`
	LastClicked *time.Time `json:"last_clicked"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Store is the persistence contract the link service runs against.
// Code uniqueness is enforced here, not by callers: Insert must surface
// ErrDuplicateCode on a constraint violation so the service can tell a
// collision apart from an outage.
type Store interface {
	// EnsureSchema creates the links table if missing. Idempotent and safe
	// to call concurrently.
	EnsureSchema(ctx context.Context) error

	// Insert persists a new link and returns the stored row, including the
	// assigned id and created_at.
	Insert(ctx context.Context, code, targetURL string) (*Link, error)

	// IncrementAndGet bumps total_clicks and last_clicked and returns the
	// target URL, all in a single statement. Returns ErrNotFound without
	// mutating anything when the code is absent.
	IncrementAndGet(ctx context.Context, code string, now time.Time) (string, error)

	// GetByCode returns the link for code, or ErrNotFound.
	GetByCode(ctx context.Context, code string) (*Link, error)

	// DeleteByCode removes the link and returns the deleted row, or
	// ErrNotFound.
	DeleteByCode(ctx context.Context, code string) (*Link, error)

	// ListAll returns every link, newest first.
	ListAll(ctx context.Context) ([]Link, error)
}

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateCode = errors.New("duplicate code")
)
