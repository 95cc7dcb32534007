package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrSessionNotFound is returned for identities without a live session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoModel is returned when a session factory is built without a model.
	ErrNoModel = errors.New("no model capability configured")
	// ErrEmptyIdentity is returned for blank identities.
	ErrEmptyIdentity = errors.New("identity is required")
)

// DefaultIdleTTL is how long an unused session is kept.
const DefaultIdleTTL = 2 * time.Hour

// SessionFactory creates the session for a first-contact identity.
type SessionFactory func(ctx context.Context, identity string) (*Session, error)

// NewSessionFactory returns a factory sharing one loop across sessions.
func NewSessionFactory(loop *Loop, prompts PromptBuilder) (SessionFactory, error) {
	if loop == nil || loop.model == nil {
		return nil, ErrNoModel
	}
	return func(ctx context.Context, identity string) (*Session, error) {
		return NewSession(ctx, identity, loop, prompts)
	}, nil
}

// Registry maps identities to their sessions. Concurrent first contacts for
// one identity resolve to a single session.
type Registry struct {
	factory SessionFactory
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	creating singleflight.Group
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL sets the idle eviction threshold. Zero disables eviction.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

// WithRegistryClock overrides the clock used by Sweep.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(factory SessionFactory, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory:  factory,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the identity's session, creating it on first contact.
func (r *Registry) GetOrCreate(ctx context.Context, identity string) (*Session, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrEmptyIdentity
	}
	if s, ok := r.acquire(identity); ok {
		return s, nil
	}

	v, err, shared := r.creating.Do(identity, func() (interface{}, error) {
		if s, ok := r.acquire(identity); ok {
			return s, nil
		}
		s, err := r.factory(ctx, identity)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.sessions[identity] = s
		r.mu.Unlock()
		liveSessions.Inc()
		return s, nil
	})
	if err != nil {
		slog.Error("Registry.GetOrCreate: session creation failed", "error", err, "phone", identity)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if shared {
		slog.Debug("Registry.GetOrCreate: joined concurrent creation", "phone", identity)
	}
	return v.(*Session), nil
}

// Chat runs one utterance on the identity's session, creating it if needed.
// The error is non-nil only when no session could be obtained.
func (r *Registry) Chat(ctx context.Context, identity, utterance string) (string, error) {
	s, err := r.GetOrCreate(ctx, identity)
	if err != nil {
		return "", err
	}
	return s.Chat(ctx, utterance), nil
}

// Lookup returns the identity's session without creating one.
func (r *Registry) Lookup(identity string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identity]
	return s, ok
}

// acquire returns the identity's session marked as used. The mark is made
// under the registry lock so a concurrent Sweep cannot evict it first.
func (r *Registry) acquire(identity string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identity]
	if ok {
		s.touchAt(r.now())
	}
	return s, ok
}

// Reset clears the identity's history.
func (r *Registry) Reset(identity string) error {
	s, ok := r.Lookup(identity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, identity)
	}
	s.Reset()
	return nil
}

// Refresh rebuilds the identity's system instruction and clears its history.
func (r *Registry) Refresh(ctx context.Context, identity string) error {
	s, ok := r.Lookup(identity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, identity)
	}
	return s.Refresh(ctx)
}

// RefreshAll refreshes every live session and returns how many succeeded.
func (r *Registry) RefreshAll(ctx context.Context) (int, error) {
	var errs []error
	n := 0
	for _, s := range r.snapshot() {
		if err := s.Refresh(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	slog.Info("Registry.RefreshAll: sessions refreshed", "refreshed", n, "failed", len(errs))
	return n, errors.Join(errs...)
}

// Evict drops the identity's session. The next contact starts fresh.
func (r *Registry) Evict(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[identity]; !ok {
		return false
	}
	delete(r.sessions, identity)
	liveSessions.Dec()
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Identities returns the identities with live sessions, sorted.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Sweep evicts sessions idle longer than the TTL. Sessions with a chat in
// flight are skipped.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.sessions {
		if !s.LastUsed().Before(cutoff) {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		delete(r.sessions, id)
		s.mu.Unlock()
		evicted++
	}
	if evicted > 0 {
		liveSessions.Sub(float64(evicted))
		sessionsEvicted.Add(float64(evicted))
		slog.Info("Registry.Sweep: idle sessions evicted", "evicted", evicted, "remaining", len(r.sessions))
	}
	return evicted
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
