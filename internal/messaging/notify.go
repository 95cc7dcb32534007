package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// MenuMessage is the text sent when a caller asks for the menu.
func MenuMessage(link string) string {
	return "Here's our complete menu: " + link
}

// StatusMessage renders the customer notification for an order's current status.
func StatusMessage(order models.Order) string {
	switch order.Status {
	case models.OrderStatusOnRoute:
		msg := fmt.Sprintf("Your order #%d is on the way!", order.OrderID)
		if order.CourierName != "" {
			msg += fmt.Sprintf(" Courier: %s", order.CourierName)
			if order.CourierPhone != "" {
				msg += fmt.Sprintf(" (%s)", order.CourierPhone)
			}
		}
		return msg
	case models.OrderStatusDelivered:
		return fmt.Sprintf("Your order #%d has been delivered. Enjoy your meal!", order.OrderID)
	default:
		return fmt.Sprintf("Your order #%d is being prepared.", order.OrderID)
	}
}

// NotifyStatus sends the status message for order to its customer.
func NotifyStatus(ctx context.Context, svc Service, order models.Order) error {
	if err := svc.SendMessage(ctx, order.CustomerPhone, StatusMessage(order)); err != nil {
		slog.Error("NotifyStatus: send failed", "error", err, "orderID", order.OrderID, "phone", order.CustomerPhone)
		return fmt.Errorf("failed to notify order %d: %w", order.OrderID, err)
	}
	slog.Info("NotifyStatus: customer notified", "orderID", order.OrderID, "status", order.Status)
	return nil
}
