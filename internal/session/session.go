// Package session owns the signed-in user: the token pair and the cached
// profile, kept in device storage so they survive restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jorgepalis/pymedesk/internal/api"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/notify"
	"github.com/jorgepalis/pymedesk/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidProfile = errors.New("session: profile is missing id or email")
	ErrLoginRequired  = errors.New("session: not signed in")
	ErrSessionInvalid = errors.New("session: could not confirm the signed-in user")
	ErrSignedOut      = errors.New("session: signed out while the profile was loading")
)

const (
	loginFallback    = "unknown error while signing in."
	registerFallback = "unknown error while registering."
)

type AuthAPI interface {
	Login(ctx context.Context, payload domain.LoginPayload) (domain.TokenPair, error)
	Register(ctx context.Context, payload domain.RegisterPayload) (domain.TokenPair, error)
}

type ProfileAPI interface {
	Me(ctx context.Context) (domain.UserProfile, error)
}

type Notifier interface {
	Notify(message string, opts ...notify.Option) string
}

type Deps struct {
	Storage  storage.Storage
	Tokens   *Tokens // optional, built over Storage when nil
	Auth     AuthAPI
	Users    ProfileAPI
	Notifier Notifier
	Logger   *zap.Logger
}

type Store struct {
	store    storage.Storage
	tokens   *Tokens
	auth     AuthAPI
	users    ProfileAPI
	notifier Notifier
	log      *zap.Logger
	sfg      singleflight.Group

	// mu also serializes Logout with caching a fetched profile. epoch is
	// bumped by Logout so a fetch that started before it is discarded.
	mu      sync.RWMutex
	epoch   uint64
	profile *domain.UserProfile
	lastErr string
}

// New builds the store and hydrates the cached profile. A cached profile
// that does not decode, or lacks id or email, is ignored.
func New(ctx context.Context, deps Deps) (*Store, error) {
	if deps.Storage == nil {
		return nil, errors.New("session: storage is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tokens == nil {
		deps.Tokens = NewTokens(deps.Storage)
	}
	s := &Store{
		store:    deps.Storage,
		tokens:   deps.Tokens,
		auth:     deps.Auth,
		users:    deps.Users,
		notifier: deps.Notifier,
		log:      deps.Logger,
	}

	raw, ok, err := storage.Lookup(ctx, s.store, storage.KeyProfile)
	if err != nil {
		return nil, fmt.Errorf("read cached profile: %w", err)
	}
	if ok {
		var p domain.UserProfile
		if errDecode := json.Unmarshal([]byte(raw), &p); errDecode != nil || !p.Complete() {
			s.log.Warn("ignoring malformed cached profile", zap.Error(errDecode))
		} else {
			s.profile = &p
		}
	}
	return s, nil
}

func (s *Store) Tokens() *Tokens {
	return s.tokens
}

// Login exchanges credentials for tokens and confirms them by fetching the
// profile. If the profile cannot be confirmed the whole session is rolled
// back. Failures are notified and returned unchanged.
func (s *Store) Login(ctx context.Context, email, password string) (domain.UserProfile, error) {
	return s.authenticate(ctx, loginFallback, func(ctx context.Context) (domain.TokenPair, error) {
		return s.auth.Login(ctx, domain.LoginPayload{Email: email, Password: password})
	})
}

// Register creates an account and signs it in, with the same contract as
// Login.
func (s *Store) Register(ctx context.Context, email, name, password string) (domain.UserProfile, error) {
	return s.authenticate(ctx, registerFallback, func(ctx context.Context) (domain.TokenPair, error) {
		return s.auth.Register(ctx, domain.RegisterPayload{Email: email, Name: name, Password: password})
	})
}

func (s *Store) authenticate(ctx context.Context, fallback string, issue func(context.Context) (domain.TokenPair, error)) (domain.UserProfile, error) {
	s.setLastError("")

	profile, err := s.issueAndConfirm(ctx, issue)
	if err != nil {
		msg := api.MessageOf(err, fallback)
		s.setLastError(msg)
		if s.notifier != nil {
			s.notifier.Notify(msg, notify.WithTone(notify.ToneError))
		}
		return domain.UserProfile{}, err
	}
	return profile, nil
}

func (s *Store) issueAndConfirm(ctx context.Context, issue func(context.Context) (domain.TokenPair, error)) (domain.UserProfile, error) {
	epoch := s.currentEpoch()
	pair, err := issue(ctx)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if err := s.tokens.Save(ctx, pair); err != nil {
		s.rollback(ctx)
		return domain.UserProfile{}, err
	}

	profile, err := s.fetchProfile(ctx, epoch)
	if err != nil {
		s.rollback(ctx)
		return domain.UserProfile{}, err
	}
	return profile, nil
}

func (s *Store) rollback(ctx context.Context) {
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()

	// a cancelled ctx must not leave half a session behind
	if err := s.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		s.log.Error("failed to roll back session", zap.Error(err))
	}
}

// Logout clears tokens and the cached profile. It never calls the API.
// Profile fetches still in flight are discarded.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.profile = nil
	s.lastErr = ""

	if err := s.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether both tokens are stored. A storage
// failure counts as signed out.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	ok, err := s.tokens.Present(ctx)
	if err != nil {
		s.log.Error("failed to read tokens", zap.Error(err))
		return false
	}
	return ok
}

// RefreshProfile re-fetches and caches the profile with the stored token.
// Concurrent calls share one request.
func (s *Store) RefreshProfile(ctx context.Context) (domain.UserProfile, error) {
	v, err, _ := s.sfg.Do("me", func() (interface{}, error) {
		return s.fetchProfile(ctx, s.currentEpoch())
	})
	if err != nil {
		return domain.UserProfile{}, err
	}
	return v.(domain.UserProfile), nil
}

func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// fetchProfile loads the profile and caches it, unless Logout ran since
// epoch was read.
func (s *Store) fetchProfile(ctx context.Context, epoch uint64) (domain.UserProfile, error) {
	me, err := s.users.Me(ctx)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if !me.Complete() {
		return domain.UserProfile{}, ErrInvalidProfile
	}

	raw, err := json.Marshal(me)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("encode profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return domain.UserProfile{}, ErrSignedOut
	}
	if err := s.store.Set(ctx, storage.KeyProfile, string(raw)); err != nil {
		s.log.Error("failed to persist profile", zap.Error(err))
	}
	s.profile = &me
	return me, nil
}

// Ensure returns the signed-in profile, fetching it when only the tokens
// survived a restart. It does not notify.
func (s *Store) Ensure(ctx context.Context) (domain.UserProfile, error) {
	if !s.IsAuthenticated(ctx) {
		return domain.UserProfile{}, ErrLoginRequired
	}
	if p, ok := s.Profile(); ok {
		return p, nil
	}
	p, err := s.RefreshProfile(ctx)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}
	return p, nil
}

// Profile returns the cached profile, if any.
func (s *Store) Profile() (domain.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return domain.UserProfile{}, false
	}
	return *s.profile, true
}

func (s *Store) IsAdmin() bool {
	p, ok := s.Profile()
	return ok && p.IsAdmin()
}

// LastError is the message of the last failed Login or Register, cleared
// when the next one starts.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) setLastError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}
