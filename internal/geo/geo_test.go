package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	point Point
	err   error
}

func (s stubGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	return s.point, s.err
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(Restaurant, Restaurant), 1e-9)
	// One degree of latitude is ~111.19 km on a 6371 km sphere.
	assert.InDelta(t, 111.19, Haversine(Point{0, 0}, Point{1, 0}), 0.01)
}

func TestDistancePolicyWithinRange(t *testing.T) {
	near := Point{Lat: Restaurant.Lat + 0.01, Lng: Restaurant.Lng}
	c := NewDistancePolicy(stubGeocoder{point: near}).CheckAddress(context.Background(), "near")
	assert.True(t, c.Valid)
	assert.Empty(t, c.Message)
	require.NotNil(t, c.DistanceKm)
	assert.InDelta(t, 1.11, *c.DistanceKm, 0.01)
}

func TestDistancePolicyTooFar(t *testing.T) {
	far := Point{Lat: Restaurant.Lat + 0.1, Lng: Restaurant.Lng}
	c := NewDistancePolicy(stubGeocoder{point: far}).CheckAddress(context.Background(), "far")
	assert.False(t, c.Valid)
	assert.Equal(t, fmt.Sprintf("Sorry, delivery address is %.2f km away. We only deliver within 5.0 km.", Haversine(Restaurant, far)), c.Message)
}

func TestDistancePolicyGeocodeFailure(t *testing.T) {
	c := NewDistancePolicy(stubGeocoder{err: ErrGeocodeFailed}).CheckAddress(context.Background(), "nowhere")
	assert.False(t, c.Valid)
	assert.Nil(t, c.DistanceKm)
	assert.Equal(t, UnverifiedAddressMessage, c.Message)
}

func TestGoogleGeocoderOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1 Main St", r.URL.Query().Get("address"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":25.2,"lng":55.3}}}]}`))
	}))
	defer srv.Close()

	p, err := NewGoogleGeocoder("k", WithEndpoint(srv.URL)).Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 25.2, Lng: 55.3}, p)
}

func TestGoogleGeocoderZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	_, err := NewGoogleGeocoder("k", WithEndpoint(srv.URL)).Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrGeocodeFailed)
}

func TestGoogleGeocoderNoKey(t *testing.T) {
	_, err := NewGoogleGeocoder("").Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGoogleGeocoderBreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("k", WithEndpoint(srv.URL))
	for i := 0; i < 5; i++ {
		_, err := g.Geocode(context.Background(), "x")
		require.Error(t, err)
	}
	_, err := g.Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}
