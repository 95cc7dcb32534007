package store

import "github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"

// DemoMenu is a starter catalog used when the menu table is empty.
func DemoMenu() []models.MenuItem {
	return []models.MenuItem{
		{Name: "Karak Chai", Category: "Drinks", Description: "Spiced milk tea", Price: 300, IsAvailable: true},
		{Name: "Suleimani Tea", Category: "Drinks", Description: "Black tea with lemon", Price: 250, IsAvailable: true},
		{Name: "Fresh Orange Juice", Category: "Drinks", Price: 800, IsAvailable: true},
		{Name: "Chicken Shawarma", Category: "Mains", Description: "Wrapped with garlic sauce", Price: 1200, IsAvailable: true},
		{Name: "Falafel Wrap", Category: "Mains", Price: 900, IsAvailable: true},
		{Name: "Mutton Biryani", Category: "Mains", Description: "Friday special. Available on Friday", Price: 2500, IsAvailable: true},
		{Name: "Chicken Machboos", Category: "Mains", Description: "Available on Thursday", Price: 2200, IsAvailable: true},
		{Name: "Samosa", Category: "Snacks", Description: "Two pieces", Price: 400, IsAvailable: true},
		{Name: "French Fries", Category: "Snacks", Price: 600, IsAvailable: true},
		{Name: "Luqaimat", Category: "Desserts", Description: "Sweet dumplings with date syrup", Price: 1000, IsAvailable: true},
		{Name: "Kunafa", Category: "Desserts", Price: 1500, IsAvailable: false},
	}
}
