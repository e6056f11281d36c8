// Package session holds the signed-in learner and the bearer token.
//
// A Store is created once per process and injected into everything that
// needs to know who is signed in. The token and the user object live in two
// independent durable slots so a restart can restore the session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/observability"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
	"github.com/learnhub/learnhub/src/internal/ports"
)

const (
	// TokenKey is the durable slot holding the raw bearer token.
	TokenKey = "access_token"
	// UserKey is the durable slot holding the {"user": ...} envelope.
	UserKey = "auth-storage"
)

// Status is the coarse session state shown to the user.
type Status string

const (
	StatusRestoring     Status = "restoring"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// Session is a snapshot of the store's in-memory state.
type Session struct {
	User        *domain.UserProfile `json:"user"`
	IsRestoring bool                `json:"isRestoring"`
}

func (s Session) Status() Status {
	switch {
	case s.IsRestoring:
		return StatusRestoring
	case s.User != nil:
		return StatusAuthenticated
	default:
		return StatusAnonymous
	}
}

// persistedUser is the JSON envelope of the user slot.
type persistedUser struct {
	User *domain.UserProfile `json:"user"`
}

// Store owns the current session and keeps it in step with durable storage.
type Store struct {
	storage ports.KeyValueStore
	users   ports.CurrentUserFetcher
	log     *logger.Logger
	metrics *observability.Metrics

	// slotMu serializes writes to the durable slots together with the
	// in-memory transition that follows them.
	slotMu sync.Mutex

	mu      sync.Mutex
	state   Session
	token   string
	gen     uint64 // bumped on every login and sign-out
	subs    map[int]func(Session)
	nextSub int

	restoreOnce sync.Once
}

// NewStore builds a store in the restoring state. Call Restore once at
// startup to leave it.
func NewStore(storage ports.KeyValueStore, users ports.CurrentUserFetcher, log *logger.Logger) *Store {
	return &Store{
		storage: storage,
		users:   users,
		log:     log.With("component", "session"),
		state:   Session{User: nil, IsRestoring: true},
		subs:    make(map[int]func(Session)),
	}
}

// WithMetrics attaches session transition counters.
func (s *Store) WithMetrics(m *observability.Metrics) *Store {
	s.metrics = m
	return s
}

func (s *Store) State() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) Status() Status {
	return s.State().Status()
}

// Token returns the bearer token held in memory. It implements
// ports.TokenSource.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Subscribe registers fn to be called with a snapshot after every state
// change. The returned func removes it.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Login records a successful sign-in. No network call is made.
func (s *Store) Login(ctx context.Context, user *domain.UserProfile, token string) error {
	if user == nil || token == "" {
		return errors.New("login requires a user and a token")
	}

	s.slotMu.Lock()
	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		s.slotMu.Unlock()
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.writeUser(ctx, user); err != nil {
		s.slotMu.Unlock()
		return err
	}
	notify := s.commit(func() {
		s.gen++
		s.token = token
		s.state = Session{User: user, IsRestoring: false}
	})
	s.slotMu.Unlock()
	notify()

	s.log.Info("Signed in", "user_id", user.ID)
	return nil
}

// Logout clears both durable slots and the in-memory user. Calling it while
// already signed out changes nothing.
func (s *Store) Logout(ctx context.Context) error {
	s.slotMu.Lock()
	s.mu.Lock()
	idle := s.state.User == nil && !s.state.IsRestoring && s.token == ""
	s.mu.Unlock()
	if idle {
		s.slotMu.Unlock()
		return nil
	}

	err := s.clearSlots(ctx)
	notify := s.commit(func() {
		s.gen++
		s.token = ""
		s.state = Session{User: nil, IsRestoring: false}
	})
	s.slotMu.Unlock()
	notify()

	s.log.Info("Signed out")
	return err
}

// UpdateUser replaces the profile after an edit. The token is untouched.
func (s *Store) UpdateUser(ctx context.Context, user *domain.UserProfile) error {
	if user == nil {
		return errors.New("update requires a user")
	}

	s.slotMu.Lock()
	if err := s.writeUser(ctx, user); err != nil {
		s.slotMu.Unlock()
		return err
	}
	notify := s.commit(func() {
		s.state.User = user
	})
	s.slotMu.Unlock()
	notify()
	return nil
}

// Restore re-establishes the session from durable storage. Only the first
// call does anything; it always leaves the restoring state. A login or
// sign-out that lands while the stored token is being checked wins, and the
// restore result is dropped.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		s.restore(ctx)
	})
}

func (s *Store) restore(ctx context.Context) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	user, token, fetchErr := s.lookupStored(ctx)

	s.slotMu.Lock()
	s.mu.Lock()
	superseded := s.gen != gen
	s.mu.Unlock()

	var notify func()
	if superseded {
		s.log.Debug("Session changed during restore, keeping it")
		notify = s.commit(func() {
			s.state.IsRestoring = false
		})
	} else {
		switch {
		case fetchErr != nil:
			s.log.Warn("Session restore failed, clearing stored credentials", "error", fetchErr)
			if err := s.clearSlots(ctx); err != nil {
				s.log.Error("Clearing stored credentials failed", "error", err)
			}
		case user != nil:
			if err := s.writeUser(ctx, user); err != nil {
				s.log.Warn("Rewriting stored user failed", "error", err)
			}
			s.log.Info("Session restored", "user_id", user.ID)
		}
		notify = s.commit(func() {
			s.token = token
			s.state = Session{User: user, IsRestoring: false}
		})
	}
	s.slotMu.Unlock()
	notify()
}

// lookupStored resolves the stored token to a user. A non-nil error means
// the token was refused or unusable and the slots should be cleared.
func (s *Store) lookupStored(ctx context.Context) (*domain.UserProfile, string, error) {
	token, err := s.storage.Get(ctx, TokenKey)
	if errors.Is(err, ports.ErrKeyNotFound) || (err == nil && token == "") {
		s.log.Debug("No stored token, starting anonymous")
		return nil, "", nil
	}
	if err != nil {
		s.log.Warn("Reading stored token failed", "error", err)
		return nil, "", nil
	}

	user, err := s.users.CurrentUser(ctx, token)
	if err == nil {
		err = domain.Validate(user)
	}
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// HandleUnauthorized downgrades to anonymous after the backend rejected
// token on an authenticated call. A rejection of any token other than the
// one currently held is ignored.
func (s *Store) HandleUnauthorized(token string) {
	s.slotMu.Lock()
	s.mu.Lock()
	current := token != "" && token == s.token && !s.state.IsRestoring
	s.mu.Unlock()
	if !current {
		s.slotMu.Unlock()
		return
	}

	s.log.Warn("Backend rejected the token, signing out")
	if err := s.clearSlots(context.Background()); err != nil {
		s.log.Error("Clearing stored credentials failed", "error", err)
	}
	notify := s.commit(func() {
		s.gen++
		s.token = ""
		s.state = Session{User: nil, IsRestoring: false}
	})
	s.slotMu.Unlock()
	notify()
}

// Close drops every subscriber.
func (s *Store) Close() {
	s.mu.Lock()
	s.subs = make(map[int]func(Session))
	s.mu.Unlock()
}

// PersistedUser reads the user slot without touching the network.
func PersistedUser(ctx context.Context, storage ports.KeyValueStore) (*domain.UserProfile, error) {
	raw, err := storage.Get(ctx, UserKey)
	if err != nil {
		return nil, err
	}
	var p persistedUser
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}
	if p.User == nil {
		return nil, ports.ErrKeyNotFound
	}
	return p.User, nil
}

func (s *Store) writeUser(ctx context.Context, user *domain.UserProfile) error {
	raw, err := json.Marshal(persistedUser{User: user})
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Set(ctx, UserKey, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (s *Store) clearSlots(ctx context.Context) error {
	var errs []error
	for _, key := range []string{TokenKey, UserKey} {
		if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, ports.ErrKeyNotFound) {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// commit applies mutate under the lock and returns the func that notifies
// subscribers with the resulting snapshot. Call it after releasing slotMu.
func (s *Store) commit(mutate func()) func() {
	s.mu.Lock()
	mutate()
	snap := s.snapshot()
	subs := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	return func() {
		s.metrics.SessionTransition(string(snap.Status()))
		for _, fn := range subs {
			fn(snap)
		}
	}
}

func (s *Store) snapshot() Session {
	snap := s.state
	if snap.User != nil {
		u := *snap.User
		u.Extra = maps.Clone(u.Extra)
		snap.User = &u
	}
	return snap
}
