// Package models defines the core data structures for the Ritaj ordering assistant.
//
// It includes the menu and order types shared by the catalog, ledger, store and
// transport layers, plus the standard API response envelope.
package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OrderDateLayout is the display layout for order timestamps.
const OrderDateLayout = "2006-01-02 15:04"

// Error variables for better error handling and testability
var (
	ErrEmptyItemName      = errors.New("item name cannot be empty")
	ErrEmptyCategory      = errors.New("item category cannot be empty")
	ErrNegativePrice      = errors.New("item price cannot be negative")
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

// Money is an amount in the restaurant currency, held in cents.
type Money int64

// MoneyFromFloat converts a decimal amount to Money, rounding to the nearest cent.
func MoneyFromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

// Float64 returns the amount as a decimal value.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// Times multiplies a unit price by a quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// String renders the amount with two decimals, without currency symbol.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes Money as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	*m = MoneyFromFloat(f)
	return nil
}

// MenuItem is one catalog entry.
type MenuItem struct {
	ItemID      int64  `json:"item_id"`
	Name        string `json:"name" validate:"required,max=120"`
	Category    string `json:"category" validate:"required,max=60"`
	Description string `json:"description,omitempty" validate:"max=500"`
	Price       Money  `json:"price" validate:"gte=0"`
	IsAvailable bool   `json:"is_available"`
}

// Validate checks the fields the catalog relies on.
func (m MenuItem) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyItemName
	}
	if strings.TrimSpace(m.Category) == "" {
		return ErrEmptyCategory
	}
	if m.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// OrderStatus is the delivery lifecycle state of an order.
type OrderStatus string

const (
	// OrderStatusPreparing is the state of every newly placed order.
	OrderStatusPreparing OrderStatus = "PREPARING"
	// OrderStatusOnRoute means a courier has picked the order up.
	OrderStatusOnRoute OrderStatus = "ON_ROUTE"
	// OrderStatusDelivered is terminal.
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPreparing, OrderStatusOnRoute, OrderStatusDelivered:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Orders only move forward one step: PREPARING -> ON_ROUTE -> DELIVERED.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPreparing:
		return next == OrderStatusOnRoute
	case OrderStatusOnRoute:
		return next == OrderStatusDelivered
	}
	return false
}

// Order is a persisted order record. Items are keyed by catalog item id.
type Order struct {
	OrderID         int64         `json:"order_id"`
	Items           map[int64]int `json:"items"`
	TotalAmount     Money         `json:"total_amount"`
	DeliveryAddress string        `json:"delivery_address"`
	SpecialRequests string        `json:"special_requests,omitempty"`
	CustomerPhone   string        `json:"customer_phone_number"`
	Status          OrderStatus   `json:"status"`
	OrderDate       time.Time     `json:"order_date"`
	CourierName     string        `json:"courier_name,omitempty"`
	CourierPhone    string        `json:"courier_phone_number,omitempty"`
}

// OrderView is an order as shown to a customer, with item ids resolved to names.
type OrderView struct {
	OrderID         int64          `json:"order_id"`
	Items           map[string]int `json:"items"`
	TotalAmount     Money          `json:"total_amount"`
	SpecialRequests string         `json:"special_requests,omitempty"`
	OrderDate       string         `json:"order_date"`
	DeliveryAddress string         `json:"delivery_address"`
	Status          OrderStatus    `json:"status"`
	CourierName     string         `json:"courier_name,omitempty"`
	CourierPhone    string         `json:"courier_phone_number,omitempty"`
}

// ItemsSummary renders the item map as "Name xQty" pairs in name order.
func (v OrderView) ItemsSummary() string {
	names := make([]string, 0, len(v.Items))
	for name := range v.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s x%d", name, v.Items[name]))
	}
	return strings.Join(parts, ", ")
}

// MessageStatus represents the delivery state of an outbound message.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// Receipt records a delivery event for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming customer message.
type Response struct {
	MessageID string `json:"message_id,omitempty"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Time      int64  `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusEventReceived acknowledges a messaging webhook event.
	APIStatusEventReceived APIStatus = "EVENT_RECEIVED"
	// APIStatusEventError acknowledges a webhook event that could not be processed.
	APIStatusEventError APIStatus = "ERROR"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// Event acknowledges a webhook event with the given status.
func Event(status APIStatus) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(status).
		Build()
}
