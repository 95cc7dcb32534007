// Package models defines tool structures for LLM function calling.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ToolName identifies a domain action the model may invoke.
type ToolName string

const (
	// ToolPlaceOrder places a delivery order for the current customer.
	ToolPlaceOrder ToolName = "place_order"
	// ToolGetOrderStatus lists the current customer's orders.
	ToolGetOrderStatus ToolName = "get_order_status"
	// ToolGetCurrentDay returns the restaurant's current weekday.
	ToolGetCurrentDay ToolName = "get_current_day"
)

// ErrUnknownTool is returned by ParseToolArgs for names outside the tool catalog.
var ErrUnknownTool = errors.New("unknown tool")

// ToolCall represents an LLM tool function call.
type ToolCall struct {
	ID       string       `json:"id"`       // Tool call ID from the model provider
	Type     string       `json:"type"`     // Always "function"
	Function FunctionCall `json:"function"` // Function details
}

// FunctionCall represents the function details within a tool call.
type FunctionCall struct {
	Name      string          `json:"name"`      // Function name (e.g., "place_order")
	Arguments json.RawMessage `json:"arguments"` // JSON arguments as raw message
}

// ArgumentError describes tool or request arguments that failed validation.
// Its message is meant to be shown to the customer as-is.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// IsValidation marks the error as a caller mistake rather than a system failure.
func (e *ArgumentError) IsValidation() bool { return true }

func argumentErrorf(format string, args ...interface{}) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// ToolArgs is the tagged union of normalized tool arguments.
type ToolArgs interface {
	Tool() ToolName
}

// PlaceOrderArgs are the normalized arguments of place_order.
type PlaceOrderArgs struct {
	Items           map[string]int
	DeliveryAddress string
	SpecialRequests string
}

func (PlaceOrderArgs) Tool() ToolName { return ToolPlaceOrder }

// ItemNames returns the requested item names in sorted order.
func (a PlaceOrderArgs) ItemNames() []string {
	names := make([]string, 0, len(a.Items))
	for name := range a.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetOrderStatusArgs carries no fields; the customer comes from the session.
type GetOrderStatusArgs struct{}

func (GetOrderStatusArgs) Tool() ToolName { return ToolGetOrderStatus }

// GetCurrentDayArgs carries no fields.
type GetCurrentDayArgs struct{}

func (GetCurrentDayArgs) Tool() ToolName { return ToolGetCurrentDay }

// ParseToolArgs validates a raw function call against the known tool schemas.
// Names outside the catalog yield an error wrapping ErrUnknownTool.
func ParseToolArgs(fc FunctionCall) (ToolArgs, error) {
	switch ToolName(fc.Name) {
	case ToolPlaceOrder:
		return ParsePlaceOrderArgs(fc.Arguments)
	case ToolGetOrderStatus:
		return GetOrderStatusArgs{}, nil
	case ToolGetCurrentDay:
		return GetCurrentDayArgs{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, fc.Name)
	}
}

type rawPlaceOrderArgs struct {
	Items           json.RawMessage `json:"items"`
	DeliveryAddress *string         `json:"delivery_address"`
	SpecialRequests *string         `json:"special_requests"`
}

// ParsePlaceOrderArgs decodes and normalizes place_order arguments.
// Items must be a non-empty object of name -> quantity, the address must be
// non-empty, and every quantity must be a positive integer (numeric strings
// are accepted). Any bad quantity rejects the whole call.
func ParsePlaceOrderArgs(raw json.RawMessage) (PlaceOrderArgs, error) {
	var args PlaceOrderArgs
	var in rawPlaceOrderArgs
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return args, argumentErrorf("Invalid order arguments: %v", err)
		}
	}

	if isEmptyJSON(in.Items) {
		return args, argumentErrorf("No items specified in the order")
	}
	if in.DeliveryAddress == nil || strings.TrimSpace(*in.DeliveryAddress) == "" {
		return args, argumentErrorf("No delivery address specified")
	}

	var rawItems map[string]json.RawMessage
	if err := json.Unmarshal(in.Items, &rawItems); err != nil {
		return args, argumentErrorf("Cannot convert items to dictionary")
	}
	if len(rawItems) == 0 {
		return args, argumentErrorf("No items specified in the order")
	}

	names := make([]string, 0, len(rawItems))
	for name := range rawItems {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make(map[string]int, len(rawItems))
	for _, name := range names {
		qty, err := NormalizeQuantity(rawItems[name])
		if err != nil {
			return PlaceOrderArgs{}, argumentErrorf("Invalid quantity for %s: %s", name, displayJSONValue(rawItems[name]))
		}
		items[strings.TrimSpace(name)] += qty
	}

	args.Items = items
	args.DeliveryAddress = strings.TrimSpace(*in.DeliveryAddress)
	if in.SpecialRequests != nil {
		args.SpecialRequests = strings.TrimSpace(*in.SpecialRequests)
	}
	return args, nil
}

// NormalizeQuantity converts a JSON quantity into a positive integer.
// Integral numbers (2, 2.0) and numeric strings ("2") are accepted.
func NormalizeQuantity(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, errors.New("empty quantity")
	}

	var qty int
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, err
		}
		qty = n
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return 0, err
		}
		if f != math.Trunc(f) || f > math.MaxInt32 {
			return 0, fmt.Errorf("quantity %v is not an integer", f)
		}
		qty = int(f)
	}
	if qty <= 0 {
		return 0, fmt.Errorf("quantity %d must be positive", qty)
	}
	return qty, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	switch string(t) {
	case "", "null", "{}", "[]", `""`, "false", "0":
		return true
	}
	return false
}

// displayJSONValue renders a raw JSON value the way a customer typed it:
// strings unquoted, everything else verbatim.
func displayJSONValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
