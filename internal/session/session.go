// Package session tracks what the gateway knows about each browser: the
// authenticated user, whether they are logged in, and when that knowledge was
// last confirmed against the backend.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/gatherly/web/internal/upstream"
)

var (
	// ErrNoUser is returned when an operation needs an authenticated user and
	// the session has none.
	ErrNoUser = errors.New("no user in session")
)

// DefaultStaleAfter is how long a confirmed session stays trusted before the
// gateway re-checks it against the backend.
const DefaultStaleAfter = 5 * time.Minute

// Session is the per-browser authentication snapshot.
type Session struct {
	User         *upstream.User
	IsLoggedIn   bool
	LastVerified time.Time
}

// VerifyFunc resolves an access token to the backend's current user.
type VerifyFunc func(ctx context.Context, token string) (*upstream.User, error)

// Store reads and writes sessions keyed by the browser's client key cookie.
type Store struct {
	persister  Persister
	verify     VerifyFunc
	staleAfter time.Duration
}

// NewStore builds a Store on persister. verify is consulted when a session
// goes stale. staleAfter <= 0 falls back to DefaultStaleAfter.
func NewStore(persister Persister, verify VerifyFunc, staleAfter time.Duration) *Store {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Store{persister: persister, verify: verify, staleAfter: staleAfter}
}

// Get returns the session for clientKey, or a zero session when none exists.
func (s *Store) Get(ctx context.Context, clientKey string) (Session, error) {
	st, err := s.persister.Load(ctx, clientKey)
	if err != nil {
		return Session{}, err
	}
	if st == nil {
		return Session{}, nil
	}
	return st.session(), nil
}

// SetUser records user as authenticated and stamps the verification time.
func (s *Store) SetUser(ctx context.Context, clientKey string, user *upstream.User) error {
	if user == nil {
		return ErrNoUser
	}
	st := State{
		Email:           user.Email,
		Name:            user.Name,
		Role:            user.Role,
		IsEmailVerified: user.IsEmailVerified,
		IsLoggedIn:      true,
		LastVerified:    time.Now(),
	}
	return s.persister.Save(ctx, clientKey, st)
}

// Logout clears the session. Clearing a session that does not exist is not an
// error, so a logout always leaves the browser signed out.
func (s *Store) Logout(ctx context.Context, clientKey string) error {
	return s.persister.Delete(ctx, clientKey)
}

// MarkEmailVerified flips the verified flag on the current user without
// touching the rest of the session.
func (s *Store) MarkEmailVerified(ctx context.Context, clientKey string) error {
	st, err := s.persister.Load(ctx, clientKey)
	if err != nil {
		return err
	}
	if st == nil || !st.IsLoggedIn {
		return ErrNoUser
	}
	st.IsEmailVerified = true
	return s.persister.Save(ctx, clientKey, *st)
}

// NeedsReverify reports whether sess is logged in but too old to trust.
func (s *Store) NeedsReverify(sess Session) bool {
	return sess.IsLoggedIn && time.Since(sess.LastVerified) > s.staleAfter
}

// VerifyAuth re-checks the session against the backend. On success the session
// is refreshed with the backend's view of the user. On any failure the session
// is cleared before the error is returned: server truth wins, and an
// unverifiable login is treated as no login at all.
func (s *Store) VerifyAuth(ctx context.Context, clientKey, token string) (*upstream.User, error) {
	user, err := s.verify(ctx, token)
	if err != nil {
		if clearErr := s.Logout(ctx, clientKey); clearErr != nil {
			return nil, clearErr
		}
		return nil, err
	}
	if err := s.SetUser(ctx, clientKey, user); err != nil {
		return nil, err
	}
	return user, nil
}
