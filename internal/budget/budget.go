// Package budget aggregates purchase history into monthly spending and the
// household Engel coefficient.
package budget

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aoi01/fridgesnap/internal/models"
)

var hundred = decimal.NewFromInt(100)

// CategoryAmount is the money spent on one category in a month.
type CategoryAmount struct {
	Category models.Category `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthSummary is the dashboard view of one calendar month.
type MonthSummary struct {
	Month         string           `json:"month"`
	FoodTotal     decimal.Decimal  `json:"foodTotal"`
	Purchases     int              `json:"purchases"`
	LivingExpense *decimal.Decimal `json:"livingExpense"`
	// EngelCoefficient is nil when the living expense is unset or zero.
	EngelCoefficient *decimal.Decimal `json:"engelCoefficient"`
	ByCategory       []CategoryAmount `json:"byCategory"`
}

// EngelCoefficient returns food / living * 100 rounded half-up to one
// decimal place. ok is false when living is not positive.
func EngelCoefficient(food, living decimal.Decimal) (decimal.Decimal, bool) {
	if !living.IsPositive() {
		return decimal.Zero, false
	}
	return food.Mul(hundred).Div(living).Round(1), true
}

// MonthlyTotals sums purchase prices per YYYY-MM month.
func MonthlyTotals(purchases []models.Purchase) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, p := range purchases {
		key := p.PurchasedAt.MonthKey()
		totals[key] = totals[key].Add(p.Price)
	}
	return totals
}

// Summarize builds the summary of a single month.
func Summarize(month string, purchases []models.Purchase, expenses map[string]decimal.Decimal) MonthSummary {
	s := MonthSummary{Month: month, FoodTotal: decimal.Zero}
	byCat := make(map[models.Category]decimal.Decimal)

	for _, p := range purchases {
		if p.PurchasedAt.MonthKey() != month {
			continue
		}
		s.FoodTotal = s.FoodTotal.Add(p.Price)
		s.Purchases++
		byCat[p.Category] = byCat[p.Category].Add(p.Price)
	}

	s.ByCategory = make([]CategoryAmount, 0, len(byCat))
	for c, amount := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Category: c, Amount: amount})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if cmp := a.Amount.Cmp(b.Amount); cmp != 0 {
			return cmp > 0
		}
		return a.Category < b.Category
	})

	if living, ok := expenses[month]; ok {
		l := living
		s.LivingExpense = &l
		if engel, ok := EngelCoefficient(s.FoodTotal, living); ok {
			s.EngelCoefficient = &engel
		}
	}

	return s
}

// Summaries returns one summary per month for the n months ending with the
// month of until, oldest first. Months without purchases are included.
func Summaries(purchases []models.Purchase, expenses map[string]decimal.Decimal, until models.Date, n int) []MonthSummary {
	if n <= 0 {
		return []MonthSummary{}
	}
	first := time.Date(until.Year(), until.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)

	out := make([]MonthSummary, 0, n)
	for i := 0; i < n; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		out = append(out, Summarize(month, purchases, expenses))
	}
	return out
}
