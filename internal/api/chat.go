package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/messaging"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
)

// chatWebhookHandler serves both the subscription handshake (GET) and
// inbound message delivery (POST) of the WhatsApp Cloud API.
func (s *Server) chatWebhookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		methodNotAllowed(w, r, "Server.chatWebhookHandler", "GET, POST")
	}
}

func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	if mode != "subscribe" || s.opts.VerifyToken == "" || token != s.opts.VerifyToken {
		slog.Warn("Server.verifyWebhook: verification failed", "mode", mode)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "Verification failed")
		return
	}
	slog.Info("Server.verifyWebhook: webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		slog.Warn("Server.receiveWebhook: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusOK, models.Event(models.APIStatusEventError))
		return
	}
	if s.opts.AppSecret != "" && !messaging.VerifySignature(s.opts.AppSecret, body, r.Header.Get(messaging.SignatureHeader)) {
		slog.Warn("Server.receiveWebhook: invalid signature")
		writeJSONResponse(w, http.StatusForbidden, models.Error("Invalid signature"))
		return
	}

	var payload models.WhatsAppWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Warn("Server.receiveWebhook: malformed JSON", "error", err)
		writeJSONResponse(w, http.StatusOK, models.Event(models.APIStatusEventError))
		return
	}
	msg, ok, err := payload.FirstMessage()
	if err != nil {
		slog.Warn("Server.receiveWebhook: malformed payload", "error", err)
		writeJSONResponse(w, http.StatusOK, models.Event(models.APIStatusEventError))
		return
	}
	if !ok {
		slog.Debug("Server.receiveWebhook: status event acknowledged")
		writeJSONResponse(w, http.StatusOK, models.Event(models.APIStatusEventReceived))
		return
	}

	if !s.limiter.Allow(msg.From) {
		webhookRateLimited.Inc()
		slog.Warn("Server.receiveWebhook: sender rate limited", "phone", msg.From, "messageID", msg.MessageID)
		writeJSONResponse(w, http.StatusOK, models.Event(models.APIStatusEventReceived))
		return
	}

	outcome, err := s.respHandler.ProcessResponse(r.Context(), msg)
	if err != nil {
		slog.Error("Server.receiveWebhook: message processing failed", "error", err, "phone", msg.From, "outcome", outcome)
		writeJSONResponse(w, http.StatusOK, models.Event(models.APIStatusEventError))
		return
	}
	slog.Debug("Server.receiveWebhook: message handled", "phone", msg.From, "outcome", outcome)
	writeJSONResponse(w, http.StatusOK, models.Event(models.APIStatusEventReceived))
}

// chatOrderFields are the fields /chat/place-order requires.
var chatOrderFields = []string{"items", "delivery_address", "phone_number"}

func (s *Server) chatPlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.chatPlaceOrderHandler: processing order", "method", r.Method)
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "Server.chatPlaceOrderHandler", http.MethodPost)
		return
	}
	var data json.RawMessage
	if err := decodeJSON(w, r, &data); err != nil {
		if errors.Is(err, errEmptyBody) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("No JSON data provided"))
			return
		}
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	var envelope struct {
		Args json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Args != nil {
		data = envelope.Args
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("No order data provided"))
		return
	}
	var missing []string
	for _, f := range chatOrderFields {
		if _, ok := fields[f]; !ok {
			missing = append(missing, "'"+f+"'")
		}
	}
	if len(missing) > 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Missing required fields: [%s]", strings.Join(missing, ", "))))
		return
	}

	var phone string
	if err := json.Unmarshal(fields["phone_number"], &phone); err != nil || strings.TrimSpace(phone) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("phone_number is required"))
		return
	}
	s.placeOrder(w, r, "Server.chatPlaceOrderHandler", strings.TrimSpace(phone), data)
}

func (s *Server) chatOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "Server.chatOrderStatusHandler", http.MethodGet)
		return
	}
	phone := strings.TrimSpace(r.URL.Query().Get("phone_number"))
	if phone == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("phone_number is required"))
		return
	}
	s.writeOrders(w, r, "Server.chatOrderStatusHandler", phone)
}

func (s *Server) chatNotifyStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "Server.chatNotifyStatusHandler", http.MethodPost)
		return
	}
	var req models.NotifyStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := models.ValidateStruct(req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("order_id is required"))
		return
	}
	order, err := s.ledger.Order(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, ordering.ErrOrderNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error(fmt.Sprintf("Order %d not found", req.OrderID)))
			return
		}
		slog.Error("Server.chatNotifyStatusHandler: failed to load order", "error", err, "orderID", req.OrderID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load order"))
		return
	}
	if err := messaging.NotifyStatus(r.Context(), s.msgService, *order); err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send notification"))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message":  "Notification sent",
		"order_id": order.OrderID,
		"status":   order.Status,
	})
}
