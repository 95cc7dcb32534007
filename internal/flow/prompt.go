package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
)

const (
	// RestaurantName is how the assistant introduces the restaurant.
	RestaurantName = "Ritaj Restaurant"
	// MenuLink is the public full-menu page.
	MenuLink = "https://baba-chai.vercel.app"
)

// dailySpecials is fixed text; the specials rotate by weekday, not by catalog.
const dailySpecials = `DAILY SPECIALS (All $18.00, available only on specific days):

LUNCH:
  - Kadhai Gosht with Batana Rice (Monday)
  - Khichdi Khatta Keema (Tuesday)
  - Green Mutton (Tuesday)
  - Mutton Khorma with Bagara Khana-Dalcha (Wednesday)
  - Dum Ka Mutton (Thursday)
  - Mutton Maikhaliya (Friday)
  - Mutton Khorma with Bagara Khana-Dalcha (Saturday)
  - Hyderabadi Mutton with Zeera Rice (Sunday)

DINNER:
  - Turai Gosht (Monday)
  - Gosht Ki Kadhi (Tuesday)
  - Mutton Marag (Wednesday)
  - Mutton Do Peyaza (Wednesday)
  - Tomato Gosht (Thursday)
  - Alo-Methi Gosht (Friday)
  - Arwi Gosht (Saturday)
  - Kofta Masala (Saturday)
  - Bhindi Gosht (Sunday)

`

const promptTemplate = `You are Emma, a friendly assistant for %[1]s. Help customers browse menu, place orders, and check order status.

GREETING: Always start the first conversation with: "Hello, I am Emma from %[1]s, what would you like to order today?"

%[2]s

MENU SHARING:
- If customer asks for full menu, share this link: %[3]s
- You already have the complete menu above - use it to help customers

DAILY SPECIALS:
- When customer asks about daily specials or today's specials, ALWAYS use get_current_day() tool first
- The tool returns the current day in UAE timezone
- Then recommend the appropriate lunch/dinner specials for that day

Available tools:
- place_order(items: dict, delivery_address: string, special_requests: optional string) - Place order
- get_order_status() - Check customer's orders
- get_current_day() - Get the current day of the week (UAE time) to check daily specials availability

IMPORTANT ORDERING RULES:
1. Match customer's item names to actual menu items (e.g., "Glory milkshake" → "Glory", "fries" → "French Fries")
2. Use EXACT menu item names from the menu above when calling place_order
3. Before placing orders, collect: items with quantities, delivery address
4. Items format: {"Exact Menu Item Name": quantity}
5. Call at most one tool per response

ORDER CONFIRMATION FLOW (CRITICAL):
1. After collecting items and address, CALCULATE the total price using menu prices
2. CONFIRM with customer by showing:
   - List of all items with quantities
   - Individual prices
   - Total price
   - Delivery address
3. Ask: "Would you like to confirm this order?"
4. ONLY call place_order tool AFTER customer confirms (says yes, confirm, ok, etc.)
5. If customer says no or wants to change, let them modify the order

POST-ORDER CONFIRMATION:
- When order is placed successfully, DO NOT mention the Order ID number to the customer
- Instead say: "Your order has been placed successfully! We'll keep you updated on WhatsApp."
- Be warm and friendly

Example flow:
- Customer: "I want a Glory milkshake and fries"
- You: Ask for delivery address
- Customer: "123 Main St"
- You: "Let me confirm your order:
       - Glory x1 - $5.99
       - French Fries x1 - $3.99
       Total: $9.98
       Delivery to: 123 Main St
       Would you like to confirm this order?"
- Customer: "Yes"
- You: Call place_order with {"items": {"Glory": 1, "French Fries": 1}, "delivery_address": "123 Main St"}
- You: "Your order has been placed successfully! We'll keep you updated on WhatsApp."
`

// PromptBuilder produces the system instruction for a new or refreshed session.
type PromptBuilder interface {
	SystemPrompt(ctx context.Context) (string, error)
}

// MenuPrompt builds the system instruction from the live catalog.
type MenuPrompt struct {
	catalog *ordering.Catalog
}

// NewMenuPrompt creates a MenuPrompt reading from catalog.
func NewMenuPrompt(catalog *ordering.Catalog) *MenuPrompt {
	return &MenuPrompt{catalog: catalog}
}

// SystemPrompt reads the whole menu once and renders the instruction.
func (p *MenuPrompt) SystemPrompt(ctx context.Context) (string, error) {
	menu, err := p.catalog.ListItems(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to read menu for system prompt: %w", err)
	}
	return BuildSystemPrompt(menu), nil
}

// BuildSystemPrompt renders the persona, menu and ordering rules.
func BuildSystemPrompt(menu ordering.Menu) string {
	return fmt.Sprintf(promptTemplate, RestaurantName, FormatMenu(menu)+dailySpecials, MenuLink)
}

// FormatMenu renders the menu as plain text grouped by upper-cased category.
func FormatMenu(menu ordering.Menu) string {
	var b strings.Builder
	b.WriteString("MENU:\n\n")
	for _, group := range menu {
		b.WriteString(strings.ToUpper(group.Category))
		b.WriteString(":\n")
		for _, item := range group.Items {
			fmt.Fprintf(&b, "  - %s $%s", item.Name, item.Price)
			if !item.IsAvailable {
				b.WriteString(" (Not available currently)")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
