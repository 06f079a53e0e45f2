package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aoi01/fridgesnap/internal/expiry"
	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/validation"
)

// NewItem is the input for adding an item to the fridge. Zero quantity means
// one; zero dates fall back to today and the category shelf life.
type NewItem struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Category     string          `json:"category" validate:"max=40"`
	Quantity     int             `json:"quantity" validate:"gte=0,lte=9999"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
	PurchaseDate models.Date     `json:"purchaseDate"`
	ExpiryDate   models.Date     `json:"expiryDate"`
}

// ItemPatch changes selected fields of an item.
type ItemPatch struct {
	Name         *string          `json:"name" validate:"omitempty,max=100"`
	Category     *string          `json:"category" validate:"omitempty,max=40"`
	Quantity     *int             `json:"quantity" validate:"omitempty,gte=1,lte=9999"`
	Price        *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	PurchaseDate *models.Date     `json:"purchaseDate"`
	ExpiryDate   *models.Date     `json:"expiryDate"`
}

var errUnchanged = errors.New("unchanged")

// Filter narrows ListItems.
type Filter struct {
	Status   expiry.Status
	Category models.Category
	InBasket *bool
}

func (f Filter) match(e expiry.Entry) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.InBasket != nil && e.InBasket != *f.InBasket {
		return false
	}
	return true
}

func (s *MemoryStorage) buildItem(in NewItem, today models.Date) (models.FoodItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return models.FoodItem{}, err
	}
	if err := validation.Money("price", in.Price); err != nil {
		return models.FoodItem{}, err
	}

	item := models.FoodItem{
		ID:           s.newID(),
		Name:         in.Name,
		Category:     models.ParseCategory(in.Category),
		Quantity:     in.Quantity,
		Price:        in.Price,
		PurchaseDate: in.PurchaseDate,
		ExpiryDate:   in.ExpiryDate,
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.PurchaseDate.IsZero() {
		item.PurchaseDate = today
	}
	if item.ExpiryDate.IsZero() {
		item.ExpiryDate = expiry.DefaultExpiry(item.Category, item.PurchaseDate)
	}
	if err := checkDates(item); err != nil {
		return models.FoodItem{}, err
	}
	return item, nil
}

// checkDates rejects dates the keepers cannot write back out.
func checkDates(it models.FoodItem) error {
	param := fmt.Sprintf("%d-12-31", models.MaxYear)
	if !it.PurchaseDate.InRange() {
		return &validation.Error{Fields: []validation.FieldError{{Field: "purchaseDate", Rule: "max", Param: param}}}
	}
	if !it.ExpiryDate.InRange() {
		return &validation.Error{Fields: []validation.FieldError{{Field: "expiryDate", Rule: "max", Param: param}}}
	}
	return nil
}

// AddItems adds items to the fridge and records a purchase for each of them.
// Either all items are added or none.
func (s *MemoryStorage) AddItems(ctx context.Context, in []NewItem) ([]models.FoodItem, error) {
	if len(in) == 0 {
		return nil, validation.Newf("items", "required")
	}

	today := s.Today()
	items := make([]models.FoodItem, 0, len(in))
	purchases := make([]models.Purchase, 0, len(in))
	for _, n := range in {
		item, err := s.buildItem(n, today)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		purchases = append(purchases, models.Purchase{
			ID:          s.newID(),
			ItemID:      item.ID,
			Name:        item.Name,
			Category:    item.Category,
			Price:       item.Price,
			PurchasedAt: item.PurchaseDate,
		})
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	for _, it := range items {
		if _, exists := s.items[it.ID]; exists {
			return nil, ErrConflict
		}
	}

	if err := s.persist("add items", func(k Keeper) error {
		return k.AddItems(ctx, items, purchases)
	}); err != nil {
		return nil, err
	}

	for _, it := range items {
		s.items[it.ID] = it
	}
	s.purchases = append(s.purchases, purchases...)

	return cloneItems(items), nil
}

// Items returns every item, first-expiring-first.
func (s *MemoryStorage) Items(_ context.Context) []models.FoodItem {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.sortedItemsLocked()
}

// ListItems returns the items matching f annotated with their freshness.
func (s *MemoryStorage) ListItems(ctx context.Context, f Filter) []expiry.Entry {
	entries := expiry.Annotate(s.Today(), s.Items(ctx))
	out := make([]expiry.Entry, 0, len(entries))
	for _, e := range entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// GetItem returns the item with the given id.
func (s *MemoryStorage) GetItem(_ context.Context, id string) (models.FoodItem, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return models.FoodItem{}, ErrNotFound
	}
	return it.Clone(), nil
}

// UpdateItem applies p to the item with the given id.
func (s *MemoryStorage) UpdateItem(ctx context.Context, id string, p ItemPatch) (models.FoodItem, error) {
	if err := validation.Struct(p); err != nil {
		return models.FoodItem{}, err
	}
	if p.Price != nil {
		if err := validation.Money("price", *p.Price); err != nil {
			return models.FoodItem{}, err
		}
	}

	return s.mutate(ctx, "update item", id, func(it *models.FoodItem) error {
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return validation.Newf("name", "required")
			}
			it.Name = name
		}
		if p.Category != nil {
			it.Category = models.ParseCategory(*p.Category)
		}
		if p.Quantity != nil {
			it.Quantity = *p.Quantity
		}
		if p.Price != nil {
			it.Price = *p.Price
		}
		if p.PurchaseDate != nil && !p.PurchaseDate.IsZero() {
			it.PurchaseDate = *p.PurchaseDate
		}
		if p.ExpiryDate != nil && !p.ExpiryDate.IsZero() {
			it.ExpiryDate = *p.ExpiryDate
		}
		return nil
	})
}

// DeleteItem removes an item from the fridge. Its purchase stays in history.
func (s *MemoryStorage) DeleteItem(ctx context.Context, id string) error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	if err := s.persist("delete item", func(k Keeper) error {
		return k.DeleteItems(ctx, []string{id})
	}); err != nil {
		return err
	}
	delete(s.items, id)
	return nil
}

// ApplyTip records tip on the item and pushes its expiry date back by the
// tip's ExtendDays. Applying the same tip twice changes nothing.
func (s *MemoryStorage) ApplyTip(ctx context.Context, id string, tip models.StorageTip) (models.FoodItem, error) {
	if tip.ID == "" {
		return models.FoodItem{}, validation.Newf("tip.id", "required")
	}
	if tip.ExtendDays < 0 {
		return models.FoodItem{}, validation.Newf("tip.extendDays", "gte")
	}
	if tip.ExtendDays > models.MaxExtendDays {
		return models.FoodItem{}, &validation.Error{Fields: []validation.FieldError{
			{Field: "tip.extendDays", Rule: "lte", Param: strconv.Itoa(models.MaxExtendDays)},
		}}
	}

	return s.mutate(ctx, "apply tip", id, func(it *models.FoodItem) error {
		if it.HasTip(tip.ID) {
			return errUnchanged
		}
		it.AppliedTips = append(it.AppliedTips, tip)
		it.ExpiryDate = it.ExpiryDate.AddDays(tip.ExtendDays)
		return nil
	})
}

// mutate runs fn on a copy of the item and writes the result through.
// fn may return errUnchanged to skip persisting.
func (s *MemoryStorage) mutate(ctx context.Context, op, id string, fn func(*models.FoodItem) error) (models.FoodItem, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	current, ok := s.items[id]
	if !ok {
		return models.FoodItem{}, ErrNotFound
	}

	updated := current.Clone()
	if err := fn(&updated); err != nil {
		if errors.Is(err, errUnchanged) {
			return current.Clone(), nil
		}
		return models.FoodItem{}, err
	}
	if err := checkDates(updated); err != nil {
		return models.FoodItem{}, err
	}

	if err := s.persist(op, func(k Keeper) error {
		return k.UpsertItems(ctx, []models.FoodItem{updated})
	}); err != nil {
		return models.FoodItem{}, err
	}
	s.items[id] = updated
	return updated.Clone(), nil
}

func (s *MemoryStorage) sortedItemsLocked() []models.FoodItem {
	out := make([]models.FoodItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.Clone())
	}
	expiry.SortByExpiry(out)
	return out
}

func cloneItems(items []models.FoodItem) []models.FoodItem {
	out := make([]models.FoodItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
