package flow

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// ToolCatalog returns the tool definitions offered to the model on every call.
func ToolCatalog() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        string(models.ToolPlaceOrder),
				Description: openai.String("Places a food order for the customer. Items should be a dictionary mapping exact menu item names to their quantities as integers."),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]interface{}{
						"items": map[string]interface{}{
							"type":                 "object",
							"description":          "Dictionary mapping exact menu item names (strings) to quantities (integers). Example: {'French Fries': 1, 'Burger': 2}",
							"additionalProperties": map[string]interface{}{"type": "integer"},
						},
						"delivery_address": map[string]interface{}{
							"type":        "string",
							"description": "Full delivery address",
						},
						"special_requests": map[string]interface{}{
							"type":        "string",
							"description": "Optional special instructions",
						},
					},
					"required": []string{"items", "delivery_address"},
				},
			},
		},
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        string(models.ToolGetOrderStatus),
				Description: openai.String("Gets order status for the customer"),
				Parameters: shared.FunctionParameters{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
		},
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        string(models.ToolGetCurrentDay),
				Description: openai.String("Gets the current day of the week (e.g., Monday, Tuesday) to check which daily specials are available"),
				Parameters: shared.FunctionParameters{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
		},
	}
}
