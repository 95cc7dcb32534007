// Package ordering implements menu catalog access and the order ledger.
package ordering

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/calendar"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// dayMarker prefixes a weekday restriction inside an item description.
const dayMarker = "available on"

// MenuRepository is the read side of the menu table.
type MenuRepository interface {
	// QueryItems returns items in catalog order. A nil or empty filter returns
	// everything, one category matches exactly, several match by membership.
	QueryItems(ctx context.Context, categories []string) ([]models.MenuItem, error)
}

// CategoryGroup is one category and its items in catalog read order.
type CategoryGroup struct {
	Category string            `json:"category"`
	Items    []models.MenuItem `json:"items"`
}

// Menu is the catalog grouped by category in first-seen order.
type Menu []CategoryGroup

// Len returns the number of items across all categories.
func (m Menu) Len() int {
	n := 0
	for _, g := range m {
		n += len(g.Items)
	}
	return n
}

// Catalog provides read-only, day-aware menu lookups.
type Catalog struct {
	repo MenuRepository
	days calendar.Resolver
}

// NewCatalog creates a Catalog reading from repo and resolving days with days.
func NewCatalog(repo MenuRepository, days calendar.Resolver) *Catalog {
	return &Catalog{repo: repo, days: days}
}

// ListItems returns the menu grouped by category. filter is an optional
// comma-separated category list.
func (c *Catalog) ListItems(ctx context.Context, filter string) (Menu, error) {
	categories := ParseCategoryFilter(filter)
	items, err := c.repo.QueryItems(ctx, categories)
	if err != nil {
		slog.Error("Catalog.ListItems: query failed", "error", err, "categories", categories)
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}

	today := c.days.CurrentDay()
	var menu Menu
	index := make(map[string]int)
	for _, item := range items {
		if day, ok := RequiredDay(item.Description); ok && !strings.EqualFold(day, today) {
			item.IsAvailable = false
		}
		pos, seen := index[item.Category]
		if !seen {
			pos = len(menu)
			index[item.Category] = pos
			menu = append(menu, CategoryGroup{Category: item.Category})
		}
		menu[pos].Items = append(menu[pos].Items, item)
	}
	slog.Debug("Catalog.ListItems: menu built", "categories", len(menu), "items", menu.Len(), "today", today)
	return menu, nil
}

// ParseCategoryFilter splits a comma-separated filter and capitalizes each token
// (first letter upper, rest lower). Blank tokens are dropped.
func ParseCategoryFilter(filter string) []string {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(filter, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		out = append(out, capitalize(tok))
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// RequiredDay extracts the weekday from an "Available on <Day>" marker,
// lower-cased. Callers compare it case-insensitively.
func RequiredDay(description string) (string, bool) {
	lower := strings.ToLower(description)
	i := strings.Index(lower, dayMarker)
	if i < 0 {
		return "", false
	}
	rest := strings.Fields(lower[i+len(dayMarker):])
	if len(rest) == 0 {
		return "", false
	}
	day := strings.TrimFunc(rest[0], func(r rune) bool { return !unicode.IsLetter(r) })
	if day == "" {
		return "", false
	}
	return day, true
}
