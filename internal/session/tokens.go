package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/storage"
)

// Tokens reads and writes the token pair in device storage. It is the
// API client's token source.
type Tokens struct {
	store storage.Storage
}

func NewTokens(s storage.Storage) *Tokens {
	return &Tokens{store: s}
}

func (t *Tokens) Save(ctx context.Context, pair domain.TokenPair) error {
	if err := t.store.Set(ctx, storage.KeyAccessToken, pair.Access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := t.store.Set(ctx, storage.KeyRefreshToken, pair.Refresh); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Clear drops both tokens and the cached profile.
func (t *Tokens) Clear(ctx context.Context) error {
	return t.store.Delete(ctx, storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyProfile)
}

// AccessToken returns "" when no token is stored.
func (t *Tokens) AccessToken(ctx context.Context) (string, error) {
	v, _, err := storage.Lookup(ctx, t.store, storage.KeyAccessToken)
	return v, err
}

// Present reports whether both tokens are stored and non-empty. Freshness
// and signature are not checked.
func (t *Tokens) Present(ctx context.Context) (bool, error) {
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken} {
		v, ok, err := storage.Lookup(ctx, t.store, key)
		if err != nil {
			return false, err
		}
		if !ok || v == "" {
			return false, nil
		}
	}
	return true, nil
}

// Expiry reads the exp claim of the stored access token without verifying
// it. ok is false when there is no token or it carries no expiry.
func (t *Tokens) Expiry(ctx context.Context) (time.Time, bool) {
	token, err := t.AccessToken(ctx)
	if err != nil || token == "" {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
