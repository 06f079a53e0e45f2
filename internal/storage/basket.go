package storage

import (
	"context"

	"github.com/aoi01/fridgesnap/internal/models"
)

// SetInBasket earmarks (or releases) an item for today's cooking.
func (s *MemoryStorage) SetInBasket(ctx context.Context, id string, in bool) (models.FoodItem, error) {
	return s.mutate(ctx, "update basket", id, func(it *models.FoodItem) error {
		if it.InBasket == in {
			return errUnchanged
		}
		it.InBasket = in
		return nil
	})
}

// Basket returns the earmarked items, first-expiring-first.
func (s *MemoryStorage) Basket(ctx context.Context) []models.FoodItem {
	all := s.Items(ctx)
	out := make([]models.FoodItem, 0, len(all))
	for _, it := range all {
		if it.InBasket {
			out = append(out, it)
		}
	}
	return out
}

// ClearBasket moves every basket item back to the fridge and returns how
// many items were released.
func (s *MemoryStorage) ClearBasket(ctx context.Context) (int, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	var changed []models.FoodItem
	for _, it := range s.items {
		if !it.InBasket {
			continue
		}
		it = it.Clone()
		it.InBasket = false
		changed = append(changed, it)
	}
	if len(changed) == 0 {
		return 0, nil
	}

	if err := s.persist("clear basket", func(k Keeper) error {
		return k.UpsertItems(ctx, changed)
	}); err != nil {
		return 0, err
	}
	for _, it := range changed {
		s.items[it.ID] = it
	}
	return len(changed), nil
}

// ConsumeBasket removes the basket items from the fridge, as happens after
// cooking with them, and returns what was removed.
func (s *MemoryStorage) ConsumeBasket(ctx context.Context) ([]models.FoodItem, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	var used []models.FoodItem
	var ids []string
	for id, it := range s.items {
		if it.InBasket {
			used = append(used, it.Clone())
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []models.FoodItem{}, nil
	}

	if err := s.persist("consume basket", func(k Keeper) error {
		return k.DeleteItems(ctx, ids)
	}); err != nil {
		return nil, err
	}
	for _, id := range ids {
		delete(s.items, id)
	}
	return used, nil
}
