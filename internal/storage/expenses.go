package storage

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/validation"
)

// Purchases returns the purchase history, oldest first.
func (s *MemoryStorage) Purchases(_ context.Context) []models.Purchase {
	s.mx.RLock()
	out := make([]models.Purchase, len(s.purchases))
	copy(out, s.purchases)
	s.mx.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PurchasedAt.Before(out[j].PurchasedAt.Time)
	})
	return out
}

// LivingExpenses returns the living expense recorded for each month.
func (s *MemoryStorage) LivingExpenses(_ context.Context) map[string]decimal.Decimal {
	s.mx.RLock()
	defer s.mx.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.expenses))
	for k, v := range s.expenses {
		out[k] = v
	}
	return out
}

// SetLivingExpense records the household's living expense for month (YYYY-MM).
func (s *MemoryStorage) SetLivingExpense(ctx context.Context, month string, amount decimal.Decimal) error {
	if !models.ValidMonth(month) {
		return validation.Newf("month", "datetime=2006-01")
	}
	if err := validation.Money("amount", amount); err != nil {
		return err
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	if err := s.persist("save living expense", func(k Keeper) error {
		return k.SaveExpense(ctx, models.MonthlyExpense{Month: month, Amount: amount})
	}); err != nil {
		return err
	}
	s.expenses[month] = amount
	return nil
}
