package flow

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultBindingTTL is how long a call id resolves to its phone number.
const DefaultBindingTTL = time.Hour

type callBinding struct {
	phone   string
	expires time.Time
}

// CallBindings maps transient voice-call ids to customer phone numbers.
type CallBindings struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]callBinding
}

// BindingOption configures CallBindings.
type BindingOption func(*CallBindings)

// WithBindingTTL sets the binding lifetime. Zero keeps bindings until cleared.
func WithBindingTTL(d time.Duration) BindingOption {
	return func(b *CallBindings) { b.ttl = d }
}

// WithBindingClock overrides the clock.
func WithBindingClock(now func() time.Time) BindingOption {
	return func(b *CallBindings) { b.now = now }
}

// NewCallBindings creates an empty binding table.
func NewCallBindings(opts ...BindingOption) *CallBindings {
	b := &CallBindings{ttl: DefaultBindingTTL, now: time.Now, entries: make(map[string]callBinding)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind associates callID with phone, replacing any earlier binding.
func (b *CallBindings) Bind(callID, phone string) {
	entry := callBinding{phone: strings.TrimSpace(phone)}
	if b.ttl > 0 {
		entry.expires = b.now().Add(b.ttl)
	}
	b.mu.Lock()
	b.entries[callID] = entry
	b.mu.Unlock()
	slog.Debug("CallBindings.Bind: call bound", "callID", callID, "phone", entry.phone)
}

// Resolve returns the phone bound to callID. Expired bindings are absent.
func (b *CallBindings) Resolve(callID string) (string, bool) {
	b.mu.RLock()
	entry, ok := b.entries[callID]
	b.mu.RUnlock()
	if !ok || b.expired(entry) {
		return "", false
	}
	return entry.phone, true
}

// Clear removes callID's binding.
func (b *CallBindings) Clear(callID string) {
	b.mu.Lock()
	delete(b.entries, callID)
	b.mu.Unlock()
}

// Len returns the number of stored bindings, including expired ones not yet swept.
func (b *CallBindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Sweep deletes expired bindings.
func (b *CallBindings) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for id, entry := range b.entries {
		if b.expired(entry) {
			delete(b.entries, id)
			n++
		}
	}
	if n > 0 {
		slog.Debug("CallBindings.Sweep: expired bindings removed", "removed", n, "remaining", len(b.entries))
	}
	return n
}

func (b *CallBindings) expired(entry callBinding) bool {
	return !entry.expires.IsZero() && !b.now().Before(entry.expires)
}
