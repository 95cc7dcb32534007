package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/messaging"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
)

// readCall decodes a voice agent envelope and requires call.call_id.
// It writes the error response itself and returns ok=false on failure.
func (s *Server) readCall(w http.ResponseWriter, r *http.Request, handler string) (models.CallRequest, bool) {
	var req models.CallRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if errors.Is(err, errEmptyBody) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("No data provided"))
			return req, false
		}
		slog.Warn(handler+": failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return req, false
	}
	req.Call.CallID = strings.TrimSpace(req.Call.CallID)
	if req.Call.CallID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("call_id is required"))
		return req, false
	}
	return req, true
}

// boundPhone resolves the caller bound to callID, answering 400 with notFoundMsg otherwise.
func (s *Server) boundPhone(w http.ResponseWriter, callID, notFoundMsg string) (string, bool) {
	phone, ok := s.bindings.Resolve(callID)
	if !ok {
		slog.Warn("Server.boundPhone: no binding for call", "callID", callID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(fmt.Sprintf(notFoundMsg, callID)))
		return "", false
	}
	return phone, true
}

func (s *Server) callWebhookHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.callWebhookHandler: processing call registration", "method", r.Method)
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "Server.callWebhookHandler", http.MethodPost)
		return
	}
	req, ok := s.readCall(w, r, "Server.callWebhookHandler")
	if !ok {
		return
	}
	phone := strings.TrimSpace(req.Call.Phone())
	if phone == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("phone_number is required"))
		return
	}
	s.bindings.Bind(req.Call.CallID, phone)
	slog.Info("Server.callWebhookHandler: call registered", "callID", req.Call.CallID, "phone", phone)
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message":      "Call registered successfully",
		"call_id":      req.Call.CallID,
		"phone_number": phone,
	})
}

// hasField reports whether raw is an object carrying a non-empty value for key.
func hasField(raw json.RawMessage, key string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	v, ok := obj[key]
	if !ok {
		return false
	}
	switch strings.TrimSpace(string(v)) {
	case "", "null", `""`, "{}", "[]":
		return false
	}
	return true
}

func (s *Server) callPlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.callPlaceOrderHandler: processing order", "method", r.Method)
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "Server.callPlaceOrderHandler", http.MethodPost)
		return
	}
	req, ok := s.readCall(w, r, "Server.callPlaceOrderHandler")
	if !ok {
		return
	}
	if !hasField(req.Args, "items") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("items is required"))
		return
	}
	if !hasField(req.Args, "delivery_address") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("delivery_address is required"))
		return
	}
	phone, ok := s.boundPhone(w, req.Call.CallID, "No phone number for call_id: %s")
	if !ok {
		return
	}
	s.placeOrder(w, r, "Server.callPlaceOrderHandler", phone, req.Args)
}

// placeOrder validates raw place_order arguments and records the order for phone.
func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request, handler, phone string, raw json.RawMessage) {
	args, err := models.ParsePlaceOrderArgs(raw)
	if err != nil {
		slog.Warn(handler+": invalid order arguments", "error", err, "phone", phone)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	orderID, err := s.ledger.PlaceOrder(r.Context(), phone, args)
	if err != nil {
		if ordering.IsValidation(err) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		slog.Error(handler+": failed to place order", "error", err, "phone", phone)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to place order"))
		return
	}
	slog.Info(handler+": order placed", "orderID", orderID, "phone", phone)
	writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"order_id": orderID,
		"message":  "Order placed successfully",
	})
}

func (s *Server) callOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "Server.callOrderStatusHandler", http.MethodPost)
		return
	}
	req, ok := s.readCall(w, r, "Server.callOrderStatusHandler")
	if !ok {
		return
	}
	phone, ok := s.boundPhone(w, req.Call.CallID, "No phone number for call_id: %s")
	if !ok {
		return
	}
	s.writeOrders(w, r, "Server.callOrderStatusHandler", phone)
}

// writeOrders answers with the customer's orders as a bare JSON array.
func (s *Server) writeOrders(w http.ResponseWriter, r *http.Request, handler, phone string) {
	views, err := s.ledger.OrderStatus(r.Context(), phone)
	if err != nil {
		slog.Error(handler+": failed to fetch orders", "error", err, "phone", phone)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch orders"))
		return
	}
	slog.Debug(handler+": orders fetched", "phone", phone, "count", len(views))
	writeJSONResponse(w, http.StatusOK, views)
}

func (s *Server) callSendMenuHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "Server.callSendMenuHandler", http.MethodPost)
		return
	}
	req, ok := s.readCall(w, r, "Server.callSendMenuHandler")
	if !ok {
		return
	}
	phone, ok := s.boundPhone(w, req.Call.CallID, "No phone for call_id: %s")
	if !ok {
		return
	}
	if err := s.msgService.SendMessage(r.Context(), phone, messaging.MenuMessage(s.opts.MenuLink)); err != nil {
		slog.Error("Server.callSendMenuHandler: failed to send menu", "error", err, "phone", phone)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(err.Error()))
		return
	}
	slog.Info("Server.callSendMenuHandler: menu sent", "phone", phone)
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message":      "Menu link sent",
		"phone_number": phone,
	})
}

func (s *Server) callCurrentDayHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		methodNotAllowed(w, r, "Server.callCurrentDayHandler", "GET, POST")
		return
	}
	day := s.days.CurrentDay()
	slog.Debug("Server.callCurrentDayHandler: current day requested", "day", day)
	writeJSONResponse(w, http.StatusOK, map[string]string{"day": day})
}

func (s *Server) callChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "Server.callChatHandler", http.MethodPost)
		return
	}
	req, ok := s.readCall(w, r, "Server.callChatHandler")
	if !ok {
		return
	}
	var args models.CallChatArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid chat arguments"))
			return
		}
	}
	args.Message = strings.TrimSpace(args.Message)
	if args.Message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("message is required"))
		return
	}
	if err := models.ValidateStruct(args); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	phone, ok := s.boundPhone(w, req.Call.CallID, "No phone number for call_id: %s")
	if !ok {
		return
	}
	reply, err := s.registry.Chat(r.Context(), phone, args.Message)
	if err != nil {
		slog.Error("Server.callChatHandler: chat failed", "error", err, "callID", req.Call.CallID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"reply": reply})
}
