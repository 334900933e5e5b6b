package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"shortlinks/internal/shortid"
	"shortlinks/internal/store"
)

// maxGenerateAttempts bounds the collision retry loop during creation.
// Retries happen only on a confirmed duplicate from the store; any other
// failure aborts immediately.
const maxGenerateAttempts = 10

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{
		store: s,
		now:   time.Now,
	}
}

// CreateLink validates the target URL and either claims the custom code or
// generates one. Uniqueness is never pre-checked; the insert races against
// the store's constraint and a rejection is classified after the fact, so
// two concurrent creates of the same code cannot both win.
func (s *Service) CreateLink(ctx context.Context, targetURL, customCode string) (*store.Link, error) {
	target, err := normalizeURL(targetURL)
	if err != nil {
		return nil, ErrInvalidURL
	}

	if customCode != "" {
		if !shortid.ValidAlias(customCode) {
			return nil, ErrInvalidCode
		}
		link, err := s.store.Insert(ctx, customCode, target)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateCode) {
				// The caller asked for this exact code; no retry.
				return nil, ErrCodeExists
			}
			return nil, storeErr("insert link", err)
		}
		return link, nil
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code := shortid.Generate(shortid.Length)
		link, err := s.store.Insert(ctx, code, target)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, store.ErrDuplicateCode) {
			return nil, storeErr("insert link", err)
		}
		log.Warn().Str("code", code).Int("attempt", attempt+1).Msg("generated code collided")
	}
	return nil, ErrCodeSpaceExhausted
}

// ResolveAndCount returns the destination for code and records the visit.
// The increment, timestamp and read are one store statement, so concurrent
// resolutions each count exactly once and a miss mutates nothing.
func (s *Service) ResolveAndCount(ctx context.Context, code string) (string, error) {
	target, err := s.store.IncrementAndGet(ctx, code, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", storeErr("resolve link", err)
	}
	return target, nil
}

// GetLink is a read-only lookup; it does not count as a visit.
func (s *Service) GetLink(ctx context.Context, code string) (*store.Link, error) {
	link, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get link", err)
	}
	return link, nil
}

// DeleteLink removes the link and returns the deleted record.
func (s *Service) DeleteLink(ctx context.Context, code string) (*store.Link, error) {
	link, err := s.store.DeleteByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("delete link", err)
	}
	return link, nil
}

// ListLinks returns all links, newest first.
func (s *Service) ListLinks(ctx context.Context) ([]store.Link, error) {
	links, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, storeErr("list links", err)
	}
	return links, nil
}

func normalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" {
		return "", errors.New("missing scheme")
	}
	if parsed.Host == "" {
		return "", errors.New("missing host")
	}
	return parsed.String(), nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
