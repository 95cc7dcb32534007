// Package models defines HTTP request payloads and their validation.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var requestValidate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs tag validation and flattens failures into one readable error.
func ValidateStruct(v interface{}) error {
	err := requestValidate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return &ArgumentError{Message: "Invalid request: " + strings.Join(msgs, "; ")}
}

// CallInfo is the call descriptor sent by the voice agent platform.
type CallInfo struct {
	CallID     string `json:"call_id"`
	FromNumber string `json:"from_number,omitempty"`
	CallerID   string `json:"caller_id,omitempty"`
}

// Phone returns the caller's number, preferring from_number.
func (c CallInfo) Phone() string {
	if c.FromNumber != "" {
		return c.FromNumber
	}
	return c.CallerID
}

// CallRequest is the envelope of every /call endpoint.
type CallRequest struct {
	Call CallInfo        `json:"call"`
	Args json.RawMessage `json:"args,omitempty"`
}

// CallChatArgs are the args of a voice chat turn.
type CallChatArgs struct {
	Message string `json:"message" validate:"required,max=4096"`
}

// NotifyStatusRequest asks for a status notification to be sent to a customer.
type NotifyStatusRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

// OrderStatusUpdateRequest moves an order along its lifecycle.
type OrderStatusUpdateRequest struct {
	Status       OrderStatus `json:"status" validate:"required,oneof=PREPARING ON_ROUTE DELIVERED"`
	CourierName  string      `json:"courier_name,omitempty" validate:"max=120"`
	CourierPhone string      `json:"courier_phone_number,omitempty" validate:"max=32"`
}

// SessionRefreshRequest rebuilds one session, or all sessions when PhoneNumber is empty.
type SessionRefreshRequest struct {
	PhoneNumber string `json:"phone_number,omitempty" validate:"omitempty,min=6,max=32"`
}

// WhatsAppWebhookPayload is the subset of the Cloud API webhook body we consume.
type WhatsAppWebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				MessagingProduct string `json:"messaging_product"`
				Messages         []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text,omitempty"`
				} `json:"messages,omitempty"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ErrMalformedWebhook is returned when the payload lacks entry[0].changes[0].
var ErrMalformedWebhook = errors.New("malformed webhook payload")

// FirstMessage extracts the first inbound text message. ok is false for
// status-only events that carry no messages.
func (p WhatsAppWebhookPayload) FirstMessage() (msg Response, ok bool, err error) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return Response{}, false, ErrMalformedWebhook
	}
	messages := p.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return Response{}, false, nil
	}
	m := messages[0]
	if m.From == "" || m.Text == nil {
		return Response{}, false, fmt.Errorf("%w: message %q has no text body", ErrMalformedWebhook, m.ID)
	}
	return Response{MessageID: m.ID, From: m.From, Body: m.Text.Body}, true, nil
}
