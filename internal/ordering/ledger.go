package ordering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// OrderRepository is the persistence contract of the ledger.
type OrderRepository interface {
	// FindItemsByName returns catalog entries keyed by exact name. Missing names are absent.
	FindItemsByName(ctx context.Context, names []string) (map[string]models.MenuItem, error)
	// InsertOrder stores the order and returns its assigned id.
	InsertOrder(ctx context.Context, order models.Order) (int64, error)
	// FindOrdersByCustomer returns a customer's orders in storage order.
	FindOrdersByCustomer(ctx context.Context, phone string) ([]models.Order, error)
	// FindItemNamesByID resolves item ids to names. Missing ids are absent.
	FindItemNamesByID(ctx context.Context, ids []int64) (map[int64]string, error)
	// GetOrder returns nil, nil when no order has the id.
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	// ListOrders returns every order, newest first.
	ListOrders(ctx context.Context) ([]models.Order, error)
	// UpdateOrderStatus sets status and courier fields.
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, courierName, courierPhone string) error
}

// Ledger places orders against catalog prices and reports them back by name.
type Ledger struct {
	repo OrderRepository
	now  func() time.Time
	loc  *time.Location
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithNow overrides the clock used for order dates.
func WithNow(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithDisplayLocation sets the zone order dates are rendered in.
func WithDisplayLocation(loc *time.Location) LedgerOption {
	return func(l *Ledger) { l.loc = loc }
}

// NewLedger creates a Ledger over repo.
func NewLedger(repo OrderRepository, opts ...LedgerOption) *Ledger {
	l := &Ledger{repo: repo, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PlaceOrder resolves every item name, totals catalog price * quantity and
// stores one PREPARING order. Any unresolvable name aborts before anything is
// written and returns an error wrapping ErrUnknownItem.
func (l *Ledger) PlaceOrder(ctx context.Context, customerPhone string, args models.PlaceOrderArgs) (int64, error) {
	if len(args.Items) == 0 {
		return 0, newValidationError("No items specified in the order")
	}
	if strings.TrimSpace(args.DeliveryAddress) == "" {
		return 0, newValidationError("No delivery address specified")
	}
	if strings.TrimSpace(customerPhone) == "" {
		return 0, newValidationError("Customer phone number is required")
	}

	names := args.ItemNames()
	catalog, err := l.repo.FindItemsByName(ctx, names)
	if err != nil {
		slog.Error("Ledger.PlaceOrder: item lookup failed", "error", err, "phone", customerPhone)
		return 0, fmt.Errorf("failed to look up menu items: %w", err)
	}

	var total models.Money
	items := make(map[int64]int, len(names))
	for _, name := range names {
		qty := args.Items[name]
		if qty <= 0 {
			return 0, newValidationError("Invalid quantity for %s: %d", name, qty)
		}
		item, ok := catalog[name]
		if !ok {
			slog.Warn("Ledger.PlaceOrder: item not found in menu", "item", name, "phone", customerPhone)
			return 0, fmt.Errorf("%w: %q", ErrUnknownItem, name)
		}
		items[item.ItemID] += qty
		total += item.Price.Times(qty)
	}

	order := models.Order{
		Items:           items,
		TotalAmount:     total,
		DeliveryAddress: strings.TrimSpace(args.DeliveryAddress),
		SpecialRequests: args.SpecialRequests,
		CustomerPhone:   customerPhone,
		Status:          models.OrderStatusPreparing,
		OrderDate:       l.now().UTC(),
	}
	id, err := l.repo.InsertOrder(ctx, order)
	if err != nil {
		slog.Error("Ledger.PlaceOrder: insert failed", "error", err, "phone", customerPhone)
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}
	slog.Info("Ledger.PlaceOrder: order placed", "orderID", id, "phone", customerPhone, "total", total.String(), "items", len(items))
	return id, nil
}

// OrderStatus returns a customer's orders with item ids resolved to names.
func (l *Ledger) OrderStatus(ctx context.Context, customerPhone string) ([]models.OrderView, error) {
	orders, err := l.repo.FindOrdersByCustomer(ctx, customerPhone)
	if err != nil {
		slog.Error("Ledger.OrderStatus: query failed", "error", err, "phone", customerPhone)
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return l.views(ctx, orders)
}

// AllOrders returns every order as views, newest first.
func (l *Ledger) AllOrders(ctx context.Context) ([]models.OrderView, error) {
	orders, err := l.repo.ListOrders(ctx)
	if err != nil {
		slog.Error("Ledger.AllOrders: query failed", "error", err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return l.views(ctx, orders)
}

// Order returns one order by id, or ErrOrderNotFound.
func (l *Ledger) Order(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := l.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// UpdateStatus moves an order one step along its lifecycle and returns the updated order.
func (l *Ledger) UpdateStatus(ctx context.Context, orderID int64, req models.OrderStatusUpdateRequest) (*models.Order, error) {
	if !req.Status.Valid() {
		return nil, newValidationError("Invalid order status: %s", req.Status)
	}
	order, err := l.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, req.Status)
	}

	courierName, courierPhone := order.CourierName, order.CourierPhone
	if req.CourierName != "" {
		courierName = req.CourierName
	}
	if req.CourierPhone != "" {
		courierPhone = req.CourierPhone
	}
	if err := l.repo.UpdateOrderStatus(ctx, orderID, req.Status, courierName, courierPhone); err != nil {
		slog.Error("Ledger.UpdateStatus: update failed", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}
	order.Status = req.Status
	order.CourierName = courierName
	order.CourierPhone = courierPhone
	slog.Info("Ledger.UpdateStatus: order status changed", "orderID", orderID, "status", req.Status)
	return order, nil
}

func (l *Ledger) views(ctx context.Context, orders []models.Order) ([]models.OrderView, error) {
	if len(orders) == 0 {
		return []models.OrderView{}, nil
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for _, o := range orders {
		for id := range o.Items {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	names, err := l.repo.FindItemNamesByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve item names: %w", err)
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		items := make(map[string]int, len(o.Items))
		for id, qty := range o.Items {
			name, ok := names[id]
			if !ok {
				name = fmt.Sprintf("Item %d", id)
			}
			items[name] += qty
		}
		views = append(views, models.OrderView{
			OrderID:         o.OrderID,
			Items:           items,
			TotalAmount:     o.TotalAmount,
			SpecialRequests: o.SpecialRequests,
			OrderDate:       o.OrderDate.In(l.loc).Format(models.OrderDateLayout),
			DeliveryAddress: o.DeliveryAddress,
			Status:          o.Status,
			CourierName:     o.CourierName,
			CourierPhone:    o.CourierPhone,
		})
	}
	return views, nil
}

// IsUnknownItem reports whether err came from an unresolvable item name.
func IsUnknownItem(err error) bool {
	return errors.Is(err, ErrUnknownItem)
}
