package flow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// Chat outcomes recorded by the conversation loop.
const (
	outcomeFinal    = "final"
	outcomeFallback = "fallback"
	outcomeTurnCap  = "turn_cap"
	outcomeError    = "error"
)

var (
	// chatTurnsTotal counts chat() calls by how they ended.
	chatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ritaj_chat_turns_total",
		Help: "Conversation turns by outcome",
	}, []string{"outcome"})

	// toolDispatchTotal counts tool invocations by tool name.
	toolDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ritaj_tool_dispatch_total",
		Help: "Tool invocations dispatched by tool name",
	}, []string{"tool"})

	// modelCallDuration tracks model round-trip latency.
	modelCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ritaj_model_call_duration_seconds",
		Help:    "Model call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
	}, []string{"result"})

	// toolRoundsPerChat tracks how many tool rounds one chat() needed.
	toolRoundsPerChat = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ritaj_tool_rounds_per_chat",
		Help:    "Tool dispatch rounds per conversation turn",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	// liveSessions reports the number of sessions held by registries.
	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ritaj_live_sessions",
		Help: "Conversation sessions currently held in memory",
	})

	// sessionsEvicted counts idle sessions removed by the janitor.
	sessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ritaj_sessions_evicted_total",
		Help: "Idle sessions evicted",
	})
)

// unknownToolLabel replaces tool names outside the catalog so a model
// inventing names cannot grow the label set.
const unknownToolLabel = "unknown"

// toolLabel returns name when it is a catalog tool, else unknownToolLabel.
func toolLabel(name string) string {
	switch models.ToolName(name) {
	case models.ToolPlaceOrder, models.ToolGetOrderStatus, models.ToolGetCurrentDay:
		return name
	}
	return unknownToolLabel
}
