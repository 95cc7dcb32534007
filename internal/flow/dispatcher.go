package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/calendar"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/geo"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
)

// Replies the dispatcher hands back to the model.
const (
	orderPlacedFormat  = "Order placed! Order ID: %d"
	orderFailedMessage = "Failed to place order. Please check if all items exist in the menu."
	noOrdersMessage    = "No orders found"
)

// OrderLedger is the subset of the ledger the dispatcher drives.
type OrderLedger interface {
	PlaceOrder(ctx context.Context, customerPhone string, args models.PlaceOrderArgs) (int64, error)
	OrderStatus(ctx context.Context, customerPhone string) ([]models.OrderView, error)
}

// DeliveryChecker validates a delivery address before an order is placed.
type DeliveryChecker interface {
	CheckAddress(ctx context.Context, address string) geo.Check
}

// Dispatcher executes one tool invocation for one identity and always
// answers with text; failures become text the model can relay.
type Dispatcher struct {
	ledger   OrderLedger
	days     calendar.Resolver
	delivery DeliveryChecker
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDeliveryCheck enables the distance policy for place_order.
func WithDeliveryCheck(c DeliveryChecker) DispatcherOption {
	return func(d *Dispatcher) { d.delivery = c }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(ledger OrderLedger, days calendar.Resolver, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{ledger: ledger, days: days}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs the named tool. Unknown names yield "Unknown tool: <name>".
func (d *Dispatcher) Execute(ctx context.Context, identity string, call models.FunctionCall) string {
	args, err := models.ParseToolArgs(call)
	if err != nil {
		if errors.Is(err, models.ErrUnknownTool) {
			slog.Warn("Dispatcher.Execute: unknown tool", "tool", call.Name, "phone", identity)
			return "Unknown tool: " + call.Name
		}
		return errorReply(err)
	}

	switch a := args.(type) {
	case models.PlaceOrderArgs:
		return d.placeOrder(ctx, identity, a)
	case models.GetOrderStatusArgs:
		return d.orderStatus(ctx, identity)
	case models.GetCurrentDayArgs:
		return d.days.CurrentDay()
	}
	return "Unknown tool: " + call.Name
}

func (d *Dispatcher) placeOrder(ctx context.Context, identity string, args models.PlaceOrderArgs) string {
	if d.delivery != nil {
		if check := d.delivery.CheckAddress(ctx, args.DeliveryAddress); !check.Valid {
			slog.Info("Dispatcher.placeOrder: delivery address rejected", "phone", identity, "message", check.Message)
			return check.Message
		}
	}

	id, err := d.ledger.PlaceOrder(ctx, identity, args)
	if err != nil {
		if ordering.IsUnknownItem(err) {
			return orderFailedMessage
		}
		return errorReply(err)
	}
	return fmt.Sprintf(orderPlacedFormat, id)
}

func (d *Dispatcher) orderStatus(ctx context.Context, identity string) string {
	orders, err := d.ledger.OrderStatus(ctx, identity)
	if err != nil {
		return errorReply(err)
	}
	if len(orders) == 0 {
		return noOrdersMessage
	}
	return FormatOrders(orders)
}

// FormatOrders renders orders the way the assistant reads them back.
func FormatOrders(orders []models.OrderView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your Orders (%d):\n\n", len(orders))
	for _, o := range orders {
		fmt.Fprintf(&b, "Order #%d - %s\n", o.OrderID, o.Status)
		fmt.Fprintf(&b, "Items: %s\n", o.ItemsSummary())
		fmt.Fprintf(&b, "Total: $%s\n\n", o.TotalAmount)
	}
	return b.String()
}

func errorReply(err error) string {
	return "Error: " + err.Error()
}
