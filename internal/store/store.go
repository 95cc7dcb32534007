// Package store provides storage backends for the ordering assistant.
//
// It includes an in-memory store for tests and the console, and SQLite and
// PostgreSQL stores sharing one schema for menu items, orders and inbound
// message deduplication.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// Store is the full persistence surface used by the catalog, the ledger,
// the admin routes and webhook deduplication.
type Store interface {
	DedupRepo

	// QueryItems returns menu items in item_id order. An empty filter returns
	// everything, one category matches exactly, several match by membership.
	QueryItems(ctx context.Context, categories []string) ([]models.MenuItem, error)
	// FindItemsByName returns items keyed by exact name; the lowest id wins on duplicates.
	FindItemsByName(ctx context.Context, names []string) (map[string]models.MenuItem, error)
	// FindItemNamesByID resolves item ids to names. Missing ids are absent.
	FindItemNamesByID(ctx context.Context, ids []int64) (map[int64]string, error)
	GetMenuItem(ctx context.Context, itemID int64) (*models.MenuItem, error)
	AddMenuItem(ctx context.Context, item models.MenuItem) (int64, error)
	UpdateMenuItem(ctx context.Context, item models.MenuItem) error
	DeleteMenuItem(ctx context.Context, itemID int64) error

	InsertOrder(ctx context.Context, order models.Order) (int64, error)
	FindOrdersByCustomer(ctx context.Context, phone string) ([]models.Order, error)
	// GetOrder returns nil, nil when no order has the id.
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	// ListOrders returns every order, newest first.
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, courierName, courierPhone string) error

	Close() error
}

// Opts holds configuration options for stores.
type Opts struct {
	DSN string // Data source name: Postgres URL/keywords or SQLite file path
}

// Option defines a configuration option for stores.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns "postgres" for URL or keyword Postgres DSNs and
// "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// Open creates the store matching the DSN type.
func Open(dsn string) (Store, error) {
	switch DetectDSNType(dsn) {
	case "postgres":
		slog.Info("store.Open: using PostgreSQL store")
		return NewPostgresStore(WithPostgresDSN(dsn))
	default:
		slog.Info("store.Open: using SQLite store", "path", dsn)
		return NewSQLiteStore(WithSQLiteDSN(dsn))
	}
}

// SeedMenu inserts items when the menu is empty and returns how many were added.
func SeedMenu(ctx context.Context, s Store, items []models.MenuItem) (int, error) {
	existing, err := s.QueryItems(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to check existing menu: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, item := range items {
		if _, err := s.AddMenuItem(ctx, item); err != nil {
			return i, fmt.Errorf("failed to seed %q: %w", item.Name, err)
		}
	}
	slog.Info("store.SeedMenu: menu seeded", "items", len(items))
	return len(items), nil
}
