// Package storage is the device-local key/value store that mirrors the
// session and cart between runs. Values are opaque strings and never
// expire.
package storage

import (
	"context"
	"errors"
)

// Keys shared by the session and cart stores.
const (
	KeyAccessToken  = "pymedesk.accessToken"
	KeyRefreshToken = "pymedesk.refreshToken"
	KeyProfile      = "pymedesk.me"
	KeyCart         = "pymedesk.cart"
)

var ErrNotFound = errors.New("storage: key not found")

type Storage interface {
	// Get returns ErrNotFound when key has no value.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes every key in one step. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Lookup is Get with ErrNotFound folded into ok.
func Lookup(ctx context.Context, s Storage, key string) (value string, ok bool, err error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
