package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// DefaultErrorMessage is sent when a reply could not be produced.
const DefaultErrorMessage = "Sorry, something went wrong on our side. Please try again."

// ChatFunc produces the assistant reply for one customer utterance.
type ChatFunc func(ctx context.Context, identity, utterance string) (string, error)

// Deduplicator remembers provider message ids so redeliveries are answered once.
type Deduplicator interface {
	RecordInbound(messageID, phone string) (bool, error)
	MarkProcessed(messageID string) error
}

// Outcome describes what ProcessResponse did with a message.
type Outcome string

const (
	OutcomeReplied   Outcome = "replied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeEmpty     Outcome = "empty"
	OutcomeFailed    Outcome = "failed"
)

// ResponseHandler routes inbound customer messages to the conversation layer
// and sends the reply back through the messaging service.
type ResponseHandler struct {
	msgService   Service
	chat         ChatFunc
	dedup        Deduplicator
	errorMessage string
}

// HandlerOption configures a ResponseHandler.
type HandlerOption func(*ResponseHandler)

// WithDeduplicator enables message id deduplication.
func WithDeduplicator(d Deduplicator) HandlerOption {
	return func(rh *ResponseHandler) { rh.dedup = d }
}

// WithErrorMessage overrides the reply sent when the chat fails.
func WithErrorMessage(msg string) HandlerOption {
	return func(rh *ResponseHandler) { rh.errorMessage = msg }
}

// NewResponseHandler creates a handler that answers through msgService.
func NewResponseHandler(msgService Service, chat ChatFunc, opts ...HandlerOption) *ResponseHandler {
	rh := &ResponseHandler{
		msgService:   msgService,
		chat:         chat,
		errorMessage: DefaultErrorMessage,
	}
	for _, opt := range opts {
		opt(rh)
	}
	return rh
}

// ProcessResponse runs one chat turn for the sender and sends the reply.
// Delivery is best-effort: a failed send is logged and returned, never retried.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, response models.Response) (Outcome, error) {
	from, err := rh.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("ResponseHandler.ProcessResponse: invalid sender", "error", err, "from", response.From)
		inboundTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		return OutcomeFailed, fmt.Errorf("invalid sender: %w", err)
	}
	if strings.TrimSpace(response.Body) == "" {
		inboundTotal.WithLabelValues(string(OutcomeEmpty)).Inc()
		return OutcomeEmpty, nil
	}

	if rh.dedup != nil && response.MessageID != "" {
		inserted, err := rh.dedup.RecordInbound(response.MessageID, from)
		if err != nil {
			// Answer anyway; a lost dedup row only risks a double reply.
			slog.Error("ResponseHandler.ProcessResponse: dedup record failed", "error", err, "messageID", response.MessageID)
		} else if !inserted {
			slog.Info("ResponseHandler.ProcessResponse: duplicate delivery ignored", "from", from, "messageID", response.MessageID)
			inboundTotal.WithLabelValues(string(OutcomeDuplicate)).Inc()
			return OutcomeDuplicate, nil
		}
	}

	slog.Debug("ResponseHandler.ProcessResponse: processing", "from", from, "body_length", len(response.Body))
	reply, chatErr := rh.chat(ctx, from, response.Body)
	if chatErr != nil {
		slog.Error("ResponseHandler.ProcessResponse: chat failed", "error", chatErr, "from", from)
		reply = rh.errorMessage
	}

	if err := rh.msgService.SendMessage(ctx, from, reply); err != nil {
		slog.Error("ResponseHandler.ProcessResponse: failed to send reply", "error", err, "from", from)
		inboundTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		return OutcomeFailed, fmt.Errorf("failed to send reply: %w", err)
	}
	if rh.dedup != nil && response.MessageID != "" {
		if err := rh.dedup.MarkProcessed(response.MessageID); err != nil {
			slog.Warn("ResponseHandler.ProcessResponse: mark processed failed", "error", err, "messageID", response.MessageID)
		}
	}
	if chatErr != nil {
		inboundTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		return OutcomeFailed, chatErr
	}
	inboundTotal.WithLabelValues(string(OutcomeReplied)).Inc()
	slog.Info("ResponseHandler.ProcessResponse: replied", "from", from, "reply_length", len(reply))
	return OutcomeReplied, nil
}

// Start consumes the service's Responses channel until it closes or ctx ends.
func (rh *ResponseHandler) Start(ctx context.Context) {
	go func() {
		defer slog.Info("ResponseHandler stopped response processing")
		for {
			select {
			case response, ok := <-rh.msgService.Responses():
				if !ok {
					return
				}
				if _, err := rh.ProcessResponse(ctx, response); err != nil {
					slog.Error("ResponseHandler failed to process response", "error", err, "from", response.From)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	slog.Info("ResponseHandler response processing started")
}

// DrainReceipts logs and counts delivery receipts until the channel closes or ctx ends.
func DrainReceipts(ctx context.Context, svc Service) {
	go func() {
		for {
			select {
			case r, ok := <-svc.Receipts():
				if !ok {
					return
				}
				receiptsTotal.WithLabelValues(string(r.Status)).Inc()
				slog.Debug("DrainReceipts: receipt", "to", r.To, "status", r.Status)
			case <-ctx.Done():
				return
			}
		}
	}()
}
