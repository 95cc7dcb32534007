// Package api provides the HTTP transport of the ordering assistant.
//
// It exposes the voice agent webhooks under /call, the WhatsApp chat webhook
// and helpers under /chat, bearer-protected dashboard routes under /admin,
// plus /health and the Prometheus /metrics endpoint.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/calendar"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/flow"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/messaging"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/store"
)

// Default server settings.
const (
	DefaultAddr      = ":8080"
	DefaultRateLimit = 2.0
	DefaultRateBurst = 5

	readHeaderTimeout = 10 * time.Second
	// Chat turns may run several model rounds before answering.
	writeTimeout = 2 * time.Minute
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string  // listen address
	AdminToken  string  // bearer token for /admin; empty disables admin routes
	VerifyToken string  // WhatsApp webhook subscription token
	AppSecret   string  // WhatsApp app secret for X-Hub-Signature-256; empty disables the check
	RateLimit   float64 // inbound messages per second per sender; <= 0 disables limiting
	RateBurst   int
	MenuLink    string // link sent by /call/send-menu
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithAdminToken enables the admin routes behind the given bearer token.
func WithAdminToken(token string) Option {
	return func(o *Opts) { o.AdminToken = token }
}

// WithVerifyToken sets the webhook subscription verify token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithAppSecret enables webhook signature verification.
func WithAppSecret(secret string) Option {
	return func(o *Opts) { o.AppSecret = secret }
}

// WithRateLimit sets the per-sender inbound message rate.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *Opts) {
		o.RateLimit = perSecond
		o.RateBurst = burst
	}
}

// WithMenuLink overrides the menu link sent to callers.
func WithMenuLink(link string) Option {
	return func(o *Opts) { o.MenuLink = link }
}

// Deps are the collaborators the HTTP handlers delegate to.
type Deps struct {
	Registry  *flow.Registry
	Bindings  *flow.CallBindings
	Ledger    *ordering.Ledger
	Days      calendar.Resolver
	Store     store.Store
	Messaging messaging.Service
	Responses *messaging.ResponseHandler
}

// twilioWebhook is implemented by services that accept Twilio form callbacks.
type twilioWebhook interface {
	TwilioWebhookHandler(w http.ResponseWriter, r *http.Request)
}

// Server holds the dependencies for the API handlers.
type Server struct {
	opts        Opts
	registry    *flow.Registry
	bindings    *flow.CallBindings
	ledger      *ordering.Ledger
	days        calendar.Resolver
	st          store.Store
	msgService  messaging.Service
	respHandler *messaging.ResponseHandler
	limiter     *senderLimiter

	httpServer *http.Server
}

// NewServer creates a new API server instance.
func NewServer(deps Deps, opts ...Option) *Server {
	cfg := Opts{
		Addr:      DefaultAddr,
		RateLimit: DefaultRateLimit,
		RateBurst: DefaultRateBurst,
		MenuLink:  flow.MenuLink,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{
		opts:        cfg,
		registry:    deps.Registry,
		bindings:    deps.Bindings,
		ledger:      deps.Ledger,
		days:        deps.Days,
		st:          deps.Store,
		msgService:  deps.Messaging,
		respHandler: deps.Responses,
		limiter:     newSenderLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
	return s
}

// Limiter exposes the per-sender limiter so the janitor can sweep idle buckets.
func (s *Server) Limiter() flow.Sweeper { return s.limiter }

// Handler returns the routed and instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/call/webhook", s.callWebhookHandler)
	mux.HandleFunc("/call/place-order", s.callPlaceOrderHandler)
	mux.HandleFunc("/call/order-status", s.callOrderStatusHandler)
	mux.HandleFunc("/call/send-menu", s.callSendMenuHandler)
	mux.HandleFunc("/call/get-current-day", s.callCurrentDayHandler)
	mux.HandleFunc("/call/chat", s.callChatHandler)

	mux.HandleFunc("/chat/webhook", s.chatWebhookHandler)
	mux.HandleFunc("/chat/place-order", s.chatPlaceOrderHandler)
	mux.HandleFunc("/chat/order-status", s.chatOrderStatusHandler)
	mux.HandleFunc("/chat/notify-status", s.chatNotifyStatusHandler)

	if tw, ok := s.msgService.(twilioWebhook); ok {
		mux.HandleFunc("/twilio/webhook", tw.TwilioWebhookHandler)
	}

	if s.opts.AdminToken != "" {
		admin := func(h http.HandlerFunc) http.HandlerFunc { return requireAdmin(s.opts.AdminToken, h) }
		mux.HandleFunc("/admin/menu", admin(s.adminMenuHandler))
		mux.HandleFunc("/admin/menu/{id}", admin(s.adminMenuItemHandler))
		mux.HandleFunc("/admin/orders", admin(s.adminOrdersHandler))
		mux.HandleFunc("/admin/orders/{id}/status", admin(s.adminOrderStatusHandler))
		mux.HandleFunc("/admin/sessions", admin(s.adminSessionsHandler))
		mux.HandleFunc("/admin/sessions/refresh", admin(s.adminRefreshHandler))
		mux.HandleFunc("/admin/sessions/{phone}", admin(s.adminResetHandler))
	} else {
		slog.Info("Server.Handler: admin routes disabled (no admin token)")
	}

	return instrument(mux)
}

// Start serves HTTP until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	slog.Info("Server.Start: API listening", "addr", s.opts.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server.Start: server failed", "error", err)
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Server.Shutdown: shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "Server.healthHandler", http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
