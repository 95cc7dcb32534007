package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const menuColumns = `item_id, name, category, description, price_cents, is_available`

func scanMenuItem(row rowScanner) (models.MenuItem, error) {
	var m models.MenuItem
	var description sql.NullString
	var cents int64
	if err := row.Scan(&m.ItemID, &m.Name, &m.Category, &description, &cents, &m.IsAvailable); err != nil {
		return m, err
	}
	m.Description = description.String
	m.Price = models.Money(cents)
	return m, nil
}

const orderColumns = `order_id, items, total_cents, delivery_address, special_requests,
	customer_phone_number, status, order_date, courier_name, courier_phone_number`

func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	var items []byte
	var cents int64
	var special, courierName, courierPhone sql.NullString
	var status string
	err := row.Scan(&o.OrderID, &items, &cents, &o.DeliveryAddress, &special,
		&o.CustomerPhone, &status, &o.OrderDate, &courierName, &courierPhone)
	if err != nil {
		return o, err
	}
	decoded, err := decodeItems(items)
	if err != nil {
		return o, fmt.Errorf("order %d: %w", o.OrderID, err)
	}
	o.Items = decoded
	o.TotalAmount = models.Money(cents)
	o.SpecialRequests = special.String
	o.Status = models.OrderStatus(status)
	o.CourierName = courierName.String
	o.CourierPhone = courierPhone.String
	o.OrderDate = o.OrderDate.UTC()
	return o, nil
}

// encodeItems stores item id -> quantity as a JSON object with string keys.
func encodeItems(items map[int64]int) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode order items: %w", err)
	}
	return string(b), nil
}

func decodeItems(raw []byte) (map[int64]int, error) {
	items := make(map[int64]int)
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	return items, nil
}

// rebind rewrites ? placeholders as $1..$n for PostgreSQL.
func rebind(dialect, query string) string {
	if dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
