package store

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err)
	// One connection so every statement sees the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLite(db)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestEnsureSchemaConcurrent(t *testing.T) {
	db, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLite(db)
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.EnsureSchema(context.Background())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	link, err := s.Insert(ctx, "abc123", "https://example.com")
	require.NoError(t, err)
	assert.NotZero(t, link.ID)
	assert.Equal(t, "abc123", link.Code)
	assert.Equal(t, "https://example.com", link.TargetURL)
	assert.Zero(t, link.TotalClicks)
	assert.Nil(t, link.LastClicked)
	assert.False(t, link.CreatedAt.IsZero())

	got, err := s.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, "https://example.com", got.TargetURL)
}

func TestInsertDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	_, err = s.Insert(ctx, "abc123", "https://example.org")
	assert.ErrorIs(t, err, ErrDuplicateCode)

	// The losing insert must not have touched the winner's row.
	got, err := s.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.TargetURL)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByCode(context.Background(), "nosuch")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	target, err := s.IncrementAndGet(ctx, "abc123", now)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	got, err := s.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalClicks)
	require.NotNil(t, got.LastClicked)
	assert.WithinDuration(t, now, *got.LastClicked, time.Second)
}

func TestIncrementMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	_, err = s.IncrementAndGet(ctx, "nosuch", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	// A miss must mutate nothing.
	got, err := s.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Zero(t, got.TotalClicks)
	assert.Nil(t, got.LastClicked)
}

func TestIncrementConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementAndGet(ctx, "abc123", time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.TotalClicks)
	assert.NotNil(t, got.LastClicked)
}

func TestDeleteByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Insert(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	deleted, err := s.DeleteByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, "https://example.com", deleted.TargetURL)

	_, err = s.GetByCode(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DeleteByCode(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.IncrementAndGet(ctx, "abc123", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAllNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, code := range []string{"first1", "second", "third1"} {
		_, err := s.Insert(ctx, code, "https://example.com/"+code)
		require.NoError(t, err)
	}

	links, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	// created_at has second granularity; the id tie-break keeps insertion
	// order reversed regardless.
	assert.Equal(t, "third1", links[0].Code)
	assert.Equal(t, "second", links[1].Code)
	assert.Equal(t, "first1", links[2].Code)
}

func TestListAllEmpty(t *testing.T) {
	s := newTestStore(t)
	links, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, links)
}
