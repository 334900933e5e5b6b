package core

import "errors"

var (
	ErrInvalidURL         = errors.New("invalid target url")
	ErrInvalidCode        = errors.New("invalid code")
	ErrCodeExists         = errors.New("code already exists")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique code")
	ErrNotFound           = errors.New("link not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
