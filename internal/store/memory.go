package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a process-local Store for tests and the console.
type InMemoryStore struct {
	mu         sync.RWMutex
	menu       []models.MenuItem
	orders     []models.Order
	dedup      map[string]DedupRecord
	nextItemID int64
	nextOrder  int64
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		dedup:      make(map[string]DedupRecord),
		nextItemID: 1,
		nextOrder:  1,
	}
}

func (s *InMemoryStore) QueryItems(ctx context.Context, categories []string) ([]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		want[c] = struct{}{}
	}
	var out []models.MenuItem
	for _, item := range s.menu {
		if len(want) > 0 {
			if _, ok := want[item.Category]; !ok {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *InMemoryStore) FindItemsByName(ctx context.Context, names []string) (map[string]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.MenuItem, len(names))
	for _, name := range names {
		for _, item := range s.menu {
			if item.Name == name {
				out[name] = item
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindItemNamesByID(ctx context.Context, ids []int64) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if i := s.menuIndex(id); i >= 0 {
			out[id] = s.menu[i].Name
		}
	}
	return out, nil
}

func (s *InMemoryStore) GetMenuItem(ctx context.Context, itemID int64) (*models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.menuIndex(itemID)
	if i < 0 {
		return nil, fmt.Errorf("menu item %d: %w", itemID, ErrNotFound)
	}
	item := s.menu[i]
	return &item, nil
}

func (s *InMemoryStore) AddMenuItem(ctx context.Context, item models.MenuItem) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ItemID = s.nextItemID
	s.nextItemID++
	s.menu = append(s.menu, item)
	return item.ItemID, nil
}

func (s *InMemoryStore) UpdateMenuItem(ctx context.Context, item models.MenuItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.menuIndex(item.ItemID)
	if i < 0 {
		return fmt.Errorf("menu item %d: %w", item.ItemID, ErrNotFound)
	}
	s.menu[i] = item
	return nil
}

func (s *InMemoryStore) DeleteMenuItem(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.menuIndex(itemID)
	if i < 0 {
		return fmt.Errorf("menu item %d: %w", itemID, ErrNotFound)
	}
	s.menu = append(s.menu[:i], s.menu[i+1:]...)
	return nil
}

// menuIndex must be called with mu held.
func (s *InMemoryStore) menuIndex(id int64) int {
	for i, item := range s.menu {
		if item.ItemID == id {
			return i
		}
	}
	return -1
}

func (s *InMemoryStore) InsertOrder(ctx context.Context, order models.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.OrderID = s.nextOrder
	s.nextOrder++
	order.Items = copyItems(order.Items)
	s.orders = append(s.orders, order)
	return order.OrderID, nil
}

func (s *InMemoryStore) FindOrdersByCustomer(ctx context.Context, phone string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.CustomerPhone == phone {
			o.Items = copyItems(o.Items)
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *InMemoryStore) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.OrderID == orderID {
			o.Items = copyItems(o.Items)
			return &o, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		o.Items = copyItems(o.Items)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID > out[j].OrderID })
	return out, nil
}

func (s *InMemoryStore) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, courierName, courierPhone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].OrderID == orderID {
			s.orders[i].Status = status
			s.orders[i].CourierName = courierName
			s.orders[i].CourierPhone = courierPhone
			return nil
		}
	}
	return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
}

func copyItems(items map[int64]int) map[int64]int {
	out := make(map[int64]int, len(items))
	for k, v := range items {
		out[k] = v
	}
	return out
}

func (s *InMemoryStore) IsDuplicate(messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dedup[messageID]
	return ok, nil
}

func (s *InMemoryStore) RecordInbound(messageID, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dedup[messageID]; ok {
		return false, nil
	}
	s.dedup[messageID] = DedupRecord{MessageID: messageID, Phone: phone, ReceivedAt: time.Now().UTC()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.dedup[messageID]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	rec.ProcessedAt = &now
	s.dedup[messageID] = rec
	return nil
}

func (s *InMemoryStore) PurgeBefore(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.dedup {
		if rec.ReceivedAt.Before(before) {
			delete(s.dedup, id)
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
