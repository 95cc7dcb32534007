package messaging

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ritaj_messages_sent_total",
		Help: "Outbound WhatsApp messages by backend and result.",
	}, []string{"backend", "result"})

	receiptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ritaj_message_receipts_total",
		Help: "Delivery receipts by status.",
	}, []string{"status"})

	inboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ritaj_inbound_messages_total",
		Help: "Inbound customer messages by outcome.",
	}, []string{"outcome"})
)

func recordSend(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	messagesSent.WithLabelValues(backend, result).Inc()
}

func logDropped(service, what, who string) {
	slog.Warn(service+": channel blocked, dropping "+what, "who", who, "timeout", DefaultChannelTimeout)
}
