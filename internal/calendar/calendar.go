// Package calendar resolves the current weekday in the restaurant's local time zone.
package calendar

import (
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"
)

// DefaultTimeZone is the restaurant's reference zone.
const DefaultTimeZone = "Asia/Dubai"

// Resolver returns the current day of the week.
type Resolver interface {
	CurrentDay() string
}

// ZoneResolver computes the weekday in a fixed location. Safe for concurrent use.
type ZoneResolver struct {
	loc *time.Location
	now func() time.Time
}

// Option configures a ZoneResolver.
type Option func(*ZoneResolver)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *ZoneResolver) { r.now = now }
}

// NewZoneResolver loads the named IANA zone; an empty name selects DefaultTimeZone.
func NewZoneResolver(zone string, opts ...Option) (*ZoneResolver, error) {
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		slog.Error("calendar.NewZoneResolver: failed to load time zone", "zone", zone, "error", err)
		return nil, fmt.Errorf("failed to load time zone %q: %w", zone, err)
	}
	r := &ZoneResolver{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// CurrentDay returns the English weekday name, e.g. "Monday".
func (r *ZoneResolver) CurrentDay() string {
	return r.now().In(r.loc).Weekday().String()
}

// Location returns the resolver's zone.
func (r *ZoneResolver) Location() *time.Location {
	return r.loc
}

// FixedDay always reports the same day. Used by tests and the console.
type FixedDay string

// CurrentDay returns the fixed value.
func (d FixedDay) CurrentDay() string { return string(d) }
