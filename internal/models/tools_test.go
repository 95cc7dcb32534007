package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlaceOrderArgs(t *testing.T) {
	raw := json.RawMessage(`{"items":{"Burger":2,"Fries":"1"},"delivery_address":" 1 Main St ","special_requests":"no onions"}`)
	args, err := ParsePlaceOrderArgs(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Burger": 2, "Fries": 1}, args.Items)
	assert.Equal(t, "1 Main St", args.DeliveryAddress)
	assert.Equal(t, "no onions", args.SpecialRequests)
	assert.Equal(t, []string{"Burger", "Fries"}, args.ItemNames())
}

func TestParsePlaceOrderArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no items", `{"delivery_address":"1 Main St"}`, "No items specified in the order"},
		{"empty items", `{"items":{},"delivery_address":"1 Main St"}`, "No items specified in the order"},
		{"no address", `{"items":{"Burger":1}}`, "No delivery address specified"},
		{"blank address", `{"items":{"Burger":1},"delivery_address":"  "}`, "No delivery address specified"},
		{"word quantity", `{"items":{"Burger":"two"},"delivery_address":"x"}`, "Invalid quantity for Burger: two"},
		{"fractional quantity", `{"items":{"Burger":1.5},"delivery_address":"x"}`, "Invalid quantity for Burger: 1.5"},
		{"zero quantity", `{"items":{"Burger":0},"delivery_address":"x"}`, "Invalid quantity for Burger: 0"},
		{"items not object", `{"items":["Burger"],"delivery_address":"x"}`, "Cannot convert items to dictionary"},
		{"empty args", ``, "No items specified in the order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlaceOrderArgs(json.RawMessage(tt.raw))
			require.Error(t, err)
			var argErr *ArgumentError
			require.True(t, errors.As(err, &argErr))
			assert.Equal(t, tt.want, argErr.Message)
			assert.True(t, argErr.IsValidation())
		})
	}
}

func TestNormalizeQuantity(t *testing.T) {
	q, err := NormalizeQuantity(json.RawMessage(`3`))
	require.NoError(t, err)
	assert.Equal(t, 3, q)

	q, err = NormalizeQuantity(json.RawMessage(`2.0`))
	require.NoError(t, err)
	assert.Equal(t, 2, q)

	q, err = NormalizeQuantity(json.RawMessage(`" 4 "`))
	require.NoError(t, err)
	assert.Equal(t, 4, q)

	_, err = NormalizeQuantity(json.RawMessage(`-1`))
	assert.Error(t, err)
	_, err = NormalizeQuantity(json.RawMessage(`null`))
	assert.Error(t, err)
	_, err = NormalizeQuantity(json.RawMessage(`true`))
	assert.Error(t, err)
}

func TestParseToolArgs(t *testing.T) {
	args, err := ParseToolArgs(FunctionCall{Name: "get_current_day"})
	require.NoError(t, err)
	assert.Equal(t, ToolGetCurrentDay, args.Tool())

	args, err = ParseToolArgs(FunctionCall{Name: "get_order_status", Arguments: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, ToolGetOrderStatus, args.Tool())

	args, err = ParseToolArgs(FunctionCall{Name: "place_order", Arguments: json.RawMessage(`{"items":{"Tea":1},"delivery_address":"x"}`)})
	require.NoError(t, err)
	po, ok := args.(PlaceOrderArgs)
	require.True(t, ok)
	assert.Equal(t, 1, po.Items["Tea"])

	_, err = ParseToolArgs(FunctionCall{Name: "get_menu"})
	assert.ErrorIs(t, err, ErrUnknownTool)
}
