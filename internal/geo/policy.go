package geo

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMaxDistanceKm is the delivery radius around the restaurant.
const DefaultMaxDistanceKm = 5.0

// UnverifiedAddressMessage is returned when the address cannot be geocoded.
const UnverifiedAddressMessage = "Unable to verify delivery address. Please provide a valid address."

// Check is the outcome of a delivery distance check.
type Check struct {
	Valid         bool     `json:"is_valid"`
	DistanceKm    *float64 `json:"distance_km"`
	MaxDistanceKm float64  `json:"max_distance_km"`
	Message       string   `json:"message"`
}

// DistancePolicy rejects deliveries farther than a fixed radius from an origin.
type DistancePolicy struct {
	geocoder Geocoder
	origin   Point
	maxKm    float64
}

// PolicyOption configures a DistancePolicy.
type PolicyOption func(*DistancePolicy)

// WithOrigin sets the point distances are measured from.
func WithOrigin(p Point) PolicyOption {
	return func(d *DistancePolicy) { d.origin = p }
}

// WithMaxDistance sets the delivery radius in kilometres.
func WithMaxDistance(km float64) PolicyOption {
	return func(d *DistancePolicy) { d.maxKm = km }
}

// NewDistancePolicy creates a policy around the restaurant with a 5 km radius.
func NewDistancePolicy(geocoder Geocoder, opts ...PolicyOption) *DistancePolicy {
	d := &DistancePolicy{geocoder: geocoder, origin: Restaurant, maxKm: DefaultMaxDistanceKm}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CheckAddress geocodes address and reports whether it is within range.
// Geocoding failures produce an invalid Check rather than an error.
func (d *DistancePolicy) CheckAddress(ctx context.Context, address string) Check {
	point, err := d.geocoder.Geocode(ctx, address)
	if err != nil {
		slog.Warn("DistancePolicy.CheckAddress: geocode failed", "error", err)
		return Check{MaxDistanceKm: d.maxKm, Message: UnverifiedAddressMessage}
	}

	dist := Haversine(d.origin, point)
	rounded := float64(int64(dist*100+0.5)) / 100
	c := Check{Valid: dist <= d.maxKm, DistanceKm: &rounded, MaxDistanceKm: d.maxKm}
	if !c.Valid {
		c.Message = fmt.Sprintf("Sorry, delivery address is %.2f km away. We only deliver within %.1f km.", dist, d.maxKm)
	}
	slog.Debug("DistancePolicy.CheckAddress: checked", "distanceKm", rounded, "valid", c.Valid)
	return c
}
