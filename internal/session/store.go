// Package session owns the authentication token, its expiry and the user profile.
package session

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"todd/internal/logging"
	"todd/internal/service"
)

// Session is a point-in-time view of the store.
type Session struct {
	Token         string
	ExpiresAt     time.Time
	User          *service.User // nil until the profile for this session is fetched
	Authenticated bool
	Version       uint64
}

// Options allows overriding the store's dependencies.
type Options struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// TTL is the lifetime of tokens that carry no expiry. Defaults to DefaultTTL.
	TTL time.Duration

	Logger *slog.Logger
}

// Store owns the session. It is safe for concurrent use.
//
// Every login and logout bumps the session version. Results of requests
// started under an older version are discarded, so no profile or task from a
// previous session survives into the next one.
type Store struct {
	svc       service.Service
	persister Persister
	now       func() time.Time
	ttl       time.Duration
	logger    *slog.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      *service.User
	version   uint64
	listeners []func()
}

// New creates a store and restores any persisted session.
// A persisted session that cannot be read is ignored.
func New(svc service.Service, persister Persister, opts Options) *Store {
	s := &Store{
		svc:       svc,
		persister: persister,
		now:       opts.Now,
		ttl:       opts.TTL,
		logger:    opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.persister == nil {
		s.persister = &MemoryPersister{}
	}

	token, err := s.persister.Load()
	if err != nil {
		s.logger.Warn("ignoring persisted session", logging.Err(err))
		return s
	}
	if token != nil {
		s.token = token.AccessToken
		s.expiresAt = token.Expiry
	}
	return s
}

// OnChange registers fn to run after every session change.
// Listeners run outside the store's lock, in registration order.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Login submits credentials and, on success, replaces the current session
// and fetches the user profile. On failure the current session is untouched.
func (s *Store) Login(ctx context.Context, creds service.Credentials) (Session, error) {
	const op = "login"
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return Session{}, service.Validation(op, "email and password required")
	}

	token, err := s.svc.Login(ctx, creds)
	if err != nil {
		return Session{}, service.AsError(op, err)
	}

	now := s.now()
	expiresAt := tokenExpiry(token, now, s.ttl)
	if !expiresAt.After(now) {
		return Session{}, service.Auth(op, "server issued an expired token")
	}
	if err := s.persister.Save(&oauth2.Token{AccessToken: token, Expiry: expiresAt}); err != nil {
		return Session{}, &service.Error{Op: op, Kind: service.KindAuth, Message: "failed to save session", Err: err}
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.user = nil
	s.version++
	version := s.version
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Info("logged in", logging.Session(version, true), slog.Time("expires_at", expiresAt))
	notify(listeners)

	if _, err := s.FetchProfile(ctx); err != nil {
		s.logger.Warn("profile fetch failed", logging.Err(err))
	}
	return s.Snapshot(), nil
}

// Logout clears the token, expiry and user together, removes the persisted
// session and notifies listeners.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.user = nil
	s.version++
	version := s.version
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Info("logged out", logging.Session(version, false))
	notify(listeners)

	if err := s.persister.Clear(); err != nil {
		return &service.Error{Op: "logout", Kind: service.KindAuth, Message: "failed to remove session", Err: err}
	}
	return nil
}

// Register creates an account. It does not change the session.
func (s *Store) Register(ctx context.Context, reg service.Registration) (service.User, error) {
	const op = "register"
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	switch {
	case reg.Username == "":
		return service.User{}, service.Validation(op, "username required")
	case reg.Email == "":
		return service.User{}, service.Validation(op, "email required")
	case !emailIsValid(reg.Email):
		return service.User{}, service.Validation(op, "invalid email: "+reg.Email)
	case reg.Password == "":
		return service.User{}, service.Validation(op, "password required")
	}

	user, err := s.svc.Register(ctx, reg)
	if err != nil {
		return service.User{}, service.AsError(op, err)
	}
	return user, nil
}

// FetchProfile fetches the profile for the current session.
// If the session changes while the request is in flight the result is
// dropped and ErrSessionChanged is returned.
func (s *Store) FetchProfile(ctx context.Context) (service.User, error) {
	token, version, err := s.Token()
	if err != nil {
		return service.User{}, err
	}

	user, err := s.svc.CurrentUser(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return service.User{}, service.ErrSessionChanged
	}
	if err != nil {
		s.user = nil
		return service.User{}, service.AsError("current user", err)
	}
	s.user = &user
	return user, nil
}

// Token returns the token and the session version it belongs to.
// An expired token is treated exactly like a missing one.
func (s *Store) Token() (string, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", s.version, service.Auth("session", "not logged in (run: todd login)")
	}
	if s.expiredLocked() {
		return "", s.version, service.Auth("session", "session expired (run: todd login)")
	}
	return s.token, s.version, nil
}

// Version returns the session version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Authenticated reports whether a token is present and unexpired.
func (s *Store) Authenticated() bool {
	_, _, err := s.Token()
	return err == nil
}

// HasToken reports whether a token is present, expired or not.
func (s *Store) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// CurrentUser returns the profile fetched for the current session.
// It is absent while the token is missing or expired, and until a fetch for
// this session has succeeded.
func (s *Store) CurrentUser() (service.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.expiredLocked() || s.user == nil {
		return service.User{}, false
	}
	return *s.user, true
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := Session{
		Token:         s.token,
		ExpiresAt:     s.expiresAt,
		Authenticated: s.token != "" && !s.expiredLocked(),
		Version:       s.version,
	}
	if sess.Authenticated && s.user != nil {
		u := *s.user
		sess.User = &u
	}
	return sess
}

// expiredLocked follows oauth2.Token: a zero expiry never expires.
func (s *Store) expiredLocked() bool {
	return !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt)
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}

func emailIsValid(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
