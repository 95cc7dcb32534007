package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultGeocodeURL is the Google Geocoding API endpoint.
const DefaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

var (
	// ErrGeocodeFailed is returned when an address cannot be resolved to a point.
	ErrGeocodeFailed = errors.New("geocoding failed")
	// ErrNoAPIKey is returned when the geocoder has no API key configured.
	ErrNoAPIKey = errors.New("geocoder API key not set")
)

// Geocoder resolves a free-form address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// GoogleGeocoder calls the Google Geocoding API behind a circuit breaker.
type GoogleGeocoder struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// GeocoderOption configures a GoogleGeocoder.
type GeocoderOption func(*GoogleGeocoder)

// WithEndpoint overrides the geocoding endpoint (tests point it at httptest).
func WithEndpoint(endpoint string) GeocoderOption {
	return func(g *GoogleGeocoder) { g.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for geocoding requests.
func WithHTTPClient(c *http.Client) GeocoderOption {
	return func(g *GoogleGeocoder) { g.httpClient = c }
}

// NewGoogleGeocoder creates a geocoder. The breaker opens after five
// consecutive failures and half-opens after thirty seconds.
func NewGoogleGeocoder(apiKey string, opts ...GeocoderOption) *GoogleGeocoder {
	g := &GoogleGeocoder{
		apiKey:     apiKey,
		endpoint:   DefaultGeocodeURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "google-geocoder",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A ZERO_RESULTS answer is a bad address, not an unhealthy upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrGeocodeFailed)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("GoogleGeocoder: circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location Point `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode returns the location of the first result when the API answers OK.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	if g.apiKey == "" {
		slog.Warn("GoogleGeocoder.Geocode: GOOGLE_MAPS_API_KEY not set")
		return Point{}, ErrNoAPIKey
	}
	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.lookup(ctx, address)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Point{}, fmt.Errorf("geocoder circuit open: %w", err)
		}
		return Point{}, err
	}
	p, ok := res.(Point)
	if !ok {
		return Point{}, fmt.Errorf("unexpected geocoder result type %T", res)
	}
	return p, nil
}

func (g *GoogleGeocoder) lookup(ctx context.Context, address string) (Point, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geocode request returned HTTP %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Point{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		slog.Debug("GoogleGeocoder.lookup: no usable result", "status", body.Status)
		return Point{}, fmt.Errorf("%w: status %s", ErrGeocodeFailed, body.Status)
	}
	return body.Results[0].Geometry.Location, nil
}
