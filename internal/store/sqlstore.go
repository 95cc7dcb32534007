package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// sqlStore holds the queries shared by the SQLite and PostgreSQL stores.
// Queries are written with ? placeholders and rebound per dialect.
type sqlStore struct {
	db      *sql.DB
	dialect string // "sqlite3" or "postgres"
	name    string // log prefix
}

// openSQLStore pings db, applies the embedded schema and wraps it.
// db is closed on failure.
func openSQLStore(db *sql.DB, dialect, name, migrations string) (sqlStore, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		slog.Error(name+": ping failed", "error", err)
		return sqlStore{}, fmt.Errorf("%s: ping: %w", name, err)
	}
	if _, err := db.Exec(migrations); err != nil {
		db.Close()
		slog.Error(name+": migrations failed", "error", err)
		return sqlStore{}, fmt.Errorf("%s: migrations: %w", name, err)
	}
	slog.Debug(name+": schema ready", "dialect", dialect)
	return sqlStore{db: db, dialect: dialect, name: name}, nil
}

func (s *sqlStore) q(query string) string {
	return rebind(s.dialect, query)
}

func (s *sqlStore) QueryItems(ctx context.Context, categories []string) ([]models.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu`
	args := make([]interface{}, 0, len(categories))
	switch len(categories) {
	case 0:
	case 1:
		query += ` WHERE category = ?`
		args = append(args, categories[0])
	default:
		query += ` WHERE category IN (` + placeholders(len(categories)) + `)`
		for _, c := range categories {
			args = append(args, c)
		}
	}
	query += ` ORDER BY item_id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.name+".QueryItems: query failed", "error", err, "categories", categories)
		return nil, fmt.Errorf("failed to query menu: %w", err)
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menu rows: %w", err)
	}
	slog.Debug(s.name+".QueryItems succeeded", "count", len(items), "categories", categories)
	return items, nil
}

func (s *sqlStore) FindItemsByName(ctx context.Context, names []string) (map[string]models.MenuItem, error) {
	out := make(map[string]models.MenuItem, len(names))
	if len(names) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}
	query := `SELECT ` + menuColumns + ` FROM menu WHERE name IN (` + placeholders(len(names)) + `) ORDER BY item_id`
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.name+".FindItemsByName: query failed", "error", err)
		return nil, fmt.Errorf("failed to look up menu items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}
		if _, seen := out[item.Name]; !seen {
			out[item.Name] = item
		}
	}
	return out, rows.Err()
}

func (s *sqlStore) FindItemNamesByID(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT item_id, name FROM menu WHERE item_id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.name+".FindItemNamesByID: query failed", "error", err)
		return nil, fmt.Errorf("failed to resolve item names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan item name: %w", err)
		}
		out[id] = name
	}
	return out, rows.Err()
}

func (s *sqlStore) GetMenuItem(ctx context.Context, itemID int64) (*models.MenuItem, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+menuColumns+` FROM menu WHERE item_id = ?`), itemID)
	item, err := scanMenuItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("menu item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item %d: %w", itemID, err)
	}
	return &item, nil
}

func (s *sqlStore) AddMenuItem(ctx context.Context, item models.MenuItem) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, err
	}
	query := `INSERT INTO menu (name, category, description, price_cents, is_available) VALUES (?, ?, ?, ?, ?)`
	args := []interface{}{item.Name, item.Category, nilIfEmpty(item.Description), int64(item.Price), item.IsAvailable}
	id, err := s.insertReturningID(ctx, query, "item_id", args...)
	if err != nil {
		slog.Error(s.name+".AddMenuItem failed", "error", err, "name", item.Name)
		return 0, fmt.Errorf("failed to add menu item %q: %w", item.Name, err)
	}
	slog.Debug(s.name+".AddMenuItem succeeded", "itemID", id, "name", item.Name)
	return id, nil
}

func (s *sqlStore) UpdateMenuItem(ctx context.Context, item models.MenuItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE menu SET name = ?, category = ?, description = ?, price_cents = ?, is_available = ? WHERE item_id = ?`),
		item.Name, item.Category, nilIfEmpty(item.Description), int64(item.Price), item.IsAvailable, item.ItemID)
	if err != nil {
		slog.Error(s.name+".UpdateMenuItem failed", "error", err, "itemID", item.ItemID)
		return fmt.Errorf("failed to update menu item %d: %w", item.ItemID, err)
	}
	return requireAffected(res, "menu item", item.ItemID)
}

func (s *sqlStore) DeleteMenuItem(ctx context.Context, itemID int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM menu WHERE item_id = ?`), itemID)
	if err != nil {
		slog.Error(s.name+".DeleteMenuItem failed", "error", err, "itemID", itemID)
		return fmt.Errorf("failed to delete menu item %d: %w", itemID, err)
	}
	return requireAffected(res, "menu item", itemID)
}

func (s *sqlStore) InsertOrder(ctx context.Context, o models.Order) (int64, error) {
	items, err := encodeItems(o.Items)
	if err != nil {
		return 0, err
	}
	query := `INSERT INTO orders (items, total_cents, delivery_address, special_requests, customer_phone_number, status, order_date, courier_name, courier_phone_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := s.insertReturningID(ctx, query, "order_id",
		items, int64(o.TotalAmount), o.DeliveryAddress, nilIfEmpty(o.SpecialRequests), o.CustomerPhone,
		string(o.Status), o.OrderDate.UTC(), nilIfEmpty(o.CourierName), nilIfEmpty(o.CourierPhone))
	if err != nil {
		slog.Error(s.name+".InsertOrder failed", "error", err, "phone", o.CustomerPhone)
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}
	slog.Debug(s.name+".InsertOrder succeeded", "orderID", id, "phone", o.CustomerPhone)
	return id, nil
}

func (s *sqlStore) FindOrdersByCustomer(ctx context.Context, phone string) ([]models.Order, error) {
	return s.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_phone_number = ? ORDER BY order_id`, phone)
}

func (s *sqlStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY order_id DESC`)
}

func (s *sqlStore) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`), orderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+".GetOrder failed", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	return &o, nil
}

func (s *sqlStore) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, courierName, courierPhone string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE orders SET status = ?, courier_name = ?, courier_phone_number = ? WHERE order_id = ?`),
		string(status), nilIfEmpty(courierName), nilIfEmpty(courierPhone), orderID)
	if err != nil {
		slog.Error(s.name+".UpdateOrderStatus failed", "error", err, "orderID", orderID)
		return fmt.Errorf("failed to update order %d: %w", orderID, err)
	}
	return requireAffected(res, "order", orderID)
}

func (s *sqlStore) queryOrders(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.name+".queryOrders failed", "error", err)
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}
	return orders, nil
}

// insertReturningID runs an INSERT and returns the generated key. PostgreSQL
// needs RETURNING; SQLite reports LastInsertId.
func (s *sqlStore) insertReturningID(ctx context.Context, query, idColumn string, args ...interface{}) (int64, error) {
	if s.dialect == "postgres" {
		var id int64
		err := s.db.QueryRowContext(ctx, s.q(query+` RETURNING `+idColumn), args...).Scan(&id)
		return id, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	slog.Debug(s.name + ": closing database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error(s.name+": failed to close database", "error", err)
	}
	return err
}
