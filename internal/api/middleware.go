package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ritaj_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ritaj_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	webhookRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ritaj_webhook_rate_limited_total",
		Help: "Inbound webhook messages dropped by the per-sender limiter.",
	})
)

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument assigns a request id and records route metrics around next.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		// ServeMux fills Pattern on the request it was handed.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		slog.Debug("Server.instrument: request served", "requestID", reqID, "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", elapsed)
	})
}

// requireAdmin rejects requests without the configured bearer token.
func requireAdmin(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			slog.Warn("Server.requireAdmin: unauthorized", "path", r.URL.Path)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSONResponse(w, http.StatusUnauthorized, models.Error("Unauthorized"))
			return
		}
		next(w, r)
	}
}

// limiterIdleTTL is how long a sender's bucket survives without traffic.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// senderLimiter keeps one token bucket per inbound sender.
type senderLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	senders map[string]*limiterEntry
}

func newSenderLimiter(limit rate.Limit, burst int) *senderLimiter {
	return &senderLimiter{
		limit:   limit,
		burst:   burst,
		now:     time.Now,
		senders: make(map[string]*limiterEntry),
	}
}

// Allow reports whether sender may be served now. A non-positive limit disables limiting.
func (l *senderLimiter) Allow(sender string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.senders[sender]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.senders[sender] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Sweep drops buckets idle longer than limiterIdleTTL.
func (l *senderLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-limiterIdleTTL)
	removed := 0
	for sender, e := range l.senders {
		if e.lastSeen.Before(cutoff) {
			delete(l.senders, sender)
			removed++
		}
	}
	return removed
}

func (l *senderLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.senders)
}
