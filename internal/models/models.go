package models

import (
	"github.com/shopspring/decimal"
)

// ProcessResponse summarises an import of items.
type ProcessResponse struct {
	TotalItems      int             `json:"total_items"`
	TotalCategories int             `json:"total_categories"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// FoodItem is a single entry in the fridge.
type FoodItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	PurchaseDate Date            `json:"purchaseDate"`
	ExpiryDate   Date            `json:"expiryDate"`
	InBasket     bool            `json:"inBasket"`
	AppliedTips  []StorageTip    `json:"appliedTips,omitempty"`
}

// HasTip reports whether a tip with the given id was already applied.
func (i FoodItem) HasTip(id string) bool {
	for _, t := range i.AppliedTips {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with i.
func (i FoodItem) Clone() FoodItem {
	if i.AppliedTips != nil {
		tips := make([]StorageTip, len(i.AppliedTips))
		copy(tips, i.AppliedTips)
		i.AppliedTips = tips
	}
	return i
}

const (
	// MaxQuantity is the largest quantity a single item may hold.
	MaxQuantity = 9999
	// MaxExtendDays is the most a single storage tip may extend an expiry date.
	MaxExtendDays = 365
)

// StorageTip is an AI suggested way to keep an item fresh for longer.
type StorageTip struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ExtendDays  int    `json:"extendDays"`
}

// Purchase is an append-only record of money spent on an item.
type Purchase struct {
	ID          string          `json:"id"`
	ItemID      string          `json:"itemId"`
	Name        string          `json:"name"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	PurchasedAt Date            `json:"purchasedAt"`
}

// MonthlyExpense is the household's total living expense for a month.
type MonthlyExpense struct {
	Month  string          `json:"month"` // YYYY-MM
	Amount decimal.Decimal `json:"amount"`
}

// Snapshot is the complete persisted state of a household.
type Snapshot struct {
	Items     []FoodItem       `json:"items"`
	Purchases []Purchase       `json:"purchases"`
	Expenses  []MonthlyExpense `json:"expenses"`
}
