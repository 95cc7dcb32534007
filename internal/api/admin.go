package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/flow"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/messaging"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/store"
)

// pathID parses the {id} wildcard as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// readMenuItem decodes and validates a menu item body.
func readMenuItem(w http.ResponseWriter, r *http.Request) (models.MenuItem, bool) {
	var item models.MenuItem
	if err := decodeJSON(w, r, &item); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return item, false
	}
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if err := item.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return item, false
	}
	if err := models.ValidateStruct(item); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return item, false
	}
	return item, true
}

func (s *Server) adminMenuHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.st.QueryItems(r.Context(), nil)
		if err != nil {
			slog.Error("Server.adminMenuHandler: failed to list menu", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list menu"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(items))
	case http.MethodPost:
		item, ok := readMenuItem(w, r)
		if !ok {
			return
		}
		id, err := s.st.AddMenuItem(r.Context(), item)
		if err != nil {
			slog.Error("Server.adminMenuHandler: failed to add item", "error", err, "name", item.Name)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add menu item"))
			return
		}
		item.ItemID = id
		slog.Info("Server.adminMenuHandler: menu item added", "itemID", id, "name", item.Name)
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Menu item added", item))
	default:
		methodNotAllowed(w, r, "Server.adminMenuHandler", "GET, POST")
	}
}

func (s *Server) adminMenuItemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodDelete {
		methodNotAllowed(w, r, "Server.adminMenuItemHandler", "PUT, DELETE")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if r.Method == http.MethodDelete {
		err = s.st.DeleteMenuItem(r.Context(), id)
	} else {
		item, ok := readMenuItem(w, r)
		if !ok {
			return
		}
		item.ItemID = id
		err = s.st.UpdateMenuItem(r.Context(), item)
	}
	if errors.Is(err, store.ErrNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error(fmt.Sprintf("Menu item %d not found", id)))
		return
	}
	if err != nil {
		slog.Error("Server.adminMenuItemHandler: menu change failed", "error", err, "itemID", id, "method", r.Method)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to change menu item"))
		return
	}
	slog.Info("Server.adminMenuItemHandler: menu item changed", "itemID", id, "method", r.Method)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Menu item updated", map[string]int64{"item_id": id}))
}

func (s *Server) adminOrdersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "Server.adminOrdersHandler", http.MethodGet)
		return
	}
	views, err := s.ledger.AllOrders(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list orders"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(views))
}

func (s *Server) adminOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, "Server.adminOrderStatusHandler", http.MethodPut)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	var req models.OrderStatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := models.ValidateStruct(req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	order, err := s.ledger.UpdateStatus(r.Context(), id, req)
	switch {
	case err == nil:
	case errors.Is(err, ordering.ErrOrderNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error(fmt.Sprintf("Order %d not found", id)))
		return
	case errors.Is(err, ordering.ErrInvalidStatusTransition):
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
		return
	case ordering.IsValidation(err):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	default:
		slog.Error("Server.adminOrderStatusHandler: update failed", "error", err, "orderID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update order"))
		return
	}

	notified := false
	if order.Status == models.OrderStatusOnRoute || order.Status == models.OrderStatusDelivered {
		// The status change stands even if the customer cannot be reached.
		notified = messaging.NotifyStatus(r.Context(), s.msgService, *order) == nil
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Order status updated", map[string]interface{}{
		"order":    order,
		"notified": notified,
	}))
}

func (s *Server) adminSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "Server.adminSessionsHandler", http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"sessions":      s.registry.Len(),
		"identities":    s.registry.Identities(),
		"call_bindings": s.bindings.Len(),
	}))
}

func (s *Server) adminRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "Server.adminRefreshHandler", http.MethodPost)
		return
	}
	var req models.SessionRefreshRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := models.ValidateStruct(req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if req.PhoneNumber == "" {
		n, err := s.registry.RefreshAll(r.Context())
		if err != nil {
			slog.Error("Server.adminRefreshHandler: refresh failed", "error", err, "refreshed", n)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to refresh sessions"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Sessions refreshed", map[string]int{"refreshed": n}))
		return
	}

	err := s.registry.Refresh(r.Context(), req.PhoneNumber)
	if errors.Is(err, flow.ErrSessionNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No live session for "+req.PhoneNumber))
		return
	}
	if err != nil {
		slog.Error("Server.adminRefreshHandler: refresh failed", "error", err, "phone", req.PhoneNumber)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to refresh session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session refreshed", map[string]int{"refreshed": 1}))
}

func (s *Server) adminResetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, "Server.adminResetHandler", http.MethodDelete)
		return
	}
	phone := r.PathValue("phone")
	if err := s.registry.Reset(phone); err != nil {
		if errors.Is(err, flow.ErrSessionNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("No live session for "+phone))
			return
		}
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset session"))
		return
	}
	slog.Info("Server.adminResetHandler: session reset", "phone", phone)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset", nil))
}
