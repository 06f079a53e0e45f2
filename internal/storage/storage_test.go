package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoi01/fridgesnap/internal/expiry"
	"github.com/aoi01/fridgesnap/internal/filekeeper"
	"github.com/aoi01/fridgesnap/internal/logger"
	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/validation"
)

type fakeKeeper struct {
	snap     models.Snapshot
	upserted []models.FoodItem
	deleted  []string
	expenses []models.MonthlyExpense
	fail     error
}

func (k *fakeKeeper) Load(context.Context) (*models.Snapshot, error) {
	return &k.snap, nil
}

func (k *fakeKeeper) AddItems(_ context.Context, items []models.FoodItem, purchases []models.Purchase) error {
	if k.fail != nil {
		return k.fail
	}
	k.snap.Items = append(k.snap.Items, items...)
	k.snap.Purchases = append(k.snap.Purchases, purchases...)
	return nil
}

func (k *fakeKeeper) UpsertItems(_ context.Context, items []models.FoodItem) error {
	if k.fail != nil {
		return k.fail
	}
	k.upserted = append(k.upserted, items...)
	return nil
}

func (k *fakeKeeper) DeleteItems(_ context.Context, ids []string) error {
	if k.fail != nil {
		return k.fail
	}
	k.deleted = append(k.deleted, ids...)
	return nil
}

func (k *fakeKeeper) SaveExpense(_ context.Context, e models.MonthlyExpense) error {
	if k.fail != nil {
		return k.fail
	}
	k.expenses = append(k.expenses, e)
	return nil
}

func (k *fakeKeeper) Ping(context.Context) bool { return k.fail == nil }
func (k *fakeKeeper) Close() bool               { return true }

var today = time.Date(2024, time.April, 10, 18, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
}

func newTestStorage(t *testing.T, k Keeper) *MemoryStorage {
	t.Helper()
	s, err := NewMemoryStorage(context.Background(), k, logger.NewNop(),
		WithClock(func() time.Time { return today }),
		WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return s
}

func TestAddItems_AppliesDefaults(t *testing.T) {
	k := &fakeKeeper{}
	s := newTestStorage(t, k)

	items, err := s.AddItems(context.Background(), []NewItem{
		{Name: "  chicken thigh ", Category: "Meat", Price: decimal.NewFromInt(398)},
		{Name: "yogurt", Category: "dairy", Quantity: 2, Price: decimal.NewFromInt(150),
			PurchaseDate: models.NewDate(2024, time.April, 8), ExpiryDate: models.NewDate(2024, time.April, 20)},
		{Name: "dragon fruit", Category: "exotic"},
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	chicken := items[0]
	assert.Equal(t, "chicken thigh", chicken.Name)
	assert.Equal(t, models.CategoryMeat, chicken.Category)
	assert.Equal(t, 1, chicken.Quantity)
	assert.Equal(t, models.NewDate(2024, time.April, 10), chicken.PurchaseDate)
	assert.Equal(t, models.NewDate(2024, time.April, 13), chicken.ExpiryDate)

	assert.Equal(t, models.NewDate(2024, time.April, 20), items[1].ExpiryDate)
	assert.Equal(t, models.CategoryOther, items[2].Category)

	require.Len(t, k.snap.Purchases, 3)
	assert.Equal(t, chicken.ID, k.snap.Purchases[0].ItemID)
	assert.Len(t, s.Purchases(context.Background()), 3)
}

func TestAddItems_RejectsInvalidInputAtomically(t *testing.T) {
	s := newTestStorage(t, &fakeKeeper{})

	_, err := s.AddItems(context.Background(), []NewItem{
		{Name: "ok"},
		{Name: "   "},
	})
	require.Error(t, err)
	assert.True(t, validation.IsValidation(err))
	assert.Empty(t, s.Items(context.Background()))

	_, err = s.AddItems(context.Background(), []NewItem{{Name: "bad", Price: decimal.NewFromInt(-1)}})
	assert.True(t, validation.IsValidation(err))

	_, err = s.AddItems(context.Background(), nil)
	assert.True(t, validation.IsValidation(err))
}

func TestAddItems_KeeperFailureLeavesStateUntouched(t *testing.T) {
	k := &fakeKeeper{fail: errors.New("disk full")}
	s := newTestStorage(t, k)

	_, err := s.AddItems(context.Background(), []NewItem{{Name: "milk"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, k.fail)
	assert.Empty(t, s.Items(context.Background()))
	assert.Empty(t, s.Purchases(context.Background()))
	assert.False(t, s.Ping(context.Background()))
}

func TestLoadFromKeeper(t *testing.T) {
	k := &fakeKeeper{snap: models.Snapshot{
		Items: []models.FoodItem{
			{ID: "b", Name: "b", ExpiryDate: models.NewDate(2024, time.April, 15)},
			{ID: "a", Name: "a", ExpiryDate: models.NewDate(2024, time.April, 9)},
		},
		Expenses: []models.MonthlyExpense{{Month: "2024-04", Amount: decimal.NewFromInt(250000)}},
	}}
	s := newTestStorage(t, k)

	items := s.Items(context.Background())
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.True(t, s.LivingExpenses(context.Background())["2024-04"].Equal(decimal.NewFromInt(250000)))
}

func TestListItems_Filters(t *testing.T) {
	s := newTestStorage(t, nil)
	ctx := context.Background()

	_, err := s.AddItems(ctx, []NewItem{
		{Name: "fish", Category: "fish", ExpiryDate: models.NewDate(2024, time.April, 9)},
		{Name: "tofu", Category: "other", ExpiryDate: models.NewDate(2024, time.April, 11)},
		{Name: "rice", Category: "grains"},
	})
	require.NoError(t, err)
	_, err = s.SetInBasket(ctx, "id-03", true) // tofu
	require.NoError(t, err)

	all := s.ListItems(ctx, Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, expiry.StatusExpired, all[0].Status)
	assert.Equal(t, expiry.StatusTomorrow, all[1].Status)
	assert.Equal(t, expiry.StatusSafe, all[2].Status)

	expired := s.ListItems(ctx, Filter{Status: expiry.StatusExpired})
	require.Len(t, expired, 1)
	assert.Equal(t, "fish", expired[0].Name)

	grains := s.ListItems(ctx, Filter{Category: models.CategoryGrains})
	require.Len(t, grains, 1)
	assert.Equal(t, "rice", grains[0].Name)

	yes := true
	basket := s.ListItems(ctx, Filter{InBasket: &yes})
	require.Len(t, basket, 1)
	assert.Equal(t, "tofu", basket[0].Name)
}

func TestUpdateItem(t *testing.T) {
	k := &fakeKeeper{}
	s := newTestStorage(t, k)
	ctx := context.Background()

	added, err := s.AddItems(ctx, []NewItem{{Name: "milk", Category: "dairy"}})
	require.NoError(t, err)
	id := added[0].ID

	name := "oat milk"
	qty := 3
	price := decimal.NewFromInt(220)
	exp := models.NewDate(2024, time.May, 1)
	got, err := s.UpdateItem(ctx, id, ItemPatch{Name: &name, Quantity: &qty, Price: &price, ExpiryDate: &exp})
	require.NoError(t, err)
	assert.Equal(t, "oat milk", got.Name)
	assert.Equal(t, 3, got.Quantity)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, exp, got.ExpiryDate)
	require.Len(t, k.upserted, 1)

	zero := 0
	_, err = s.UpdateItem(ctx, id, ItemPatch{Quantity: &zero})
	assert.True(t, validation.IsValidation(err))

	blank := " "
	_, err = s.UpdateItem(ctx, id, ItemPatch{Name: &blank})
	assert.True(t, validation.IsValidation(err))

	_, err = s.UpdateItem(ctx, "missing", ItemPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteItemKeepsPurchase(t *testing.T) {
	k := &fakeKeeper{}
	s := newTestStorage(t, k)
	ctx := context.Background()

	added, err := s.AddItems(ctx, []NewItem{{Name: "bread", Price: decimal.NewFromInt(180)}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(ctx, added[0].ID))
	assert.ErrorIs(t, s.DeleteItem(ctx, added[0].ID), ErrNotFound)
	assert.Equal(t, []string{added[0].ID}, k.deleted)
	assert.Empty(t, s.Items(ctx))
	assert.Len(t, s.Purchases(ctx), 1)

	_, err = s.GetItem(ctx, added[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBasketLifecycle(t *testing.T) {
	k := &fakeKeeper{}
	s := newTestStorage(t, k)
	ctx := context.Background()

	added, err := s.AddItems(ctx, []NewItem{{Name: "onion"}, {Name: "carrot"}, {Name: "beef"}})
	require.NoError(t, err)

	for _, it := range added[:2] {
		got, err := s.SetInBasket(ctx, it.ID, true)
		require.NoError(t, err)
		assert.True(t, got.InBasket)
	}
	upserts := len(k.upserted)
	_, err = s.SetInBasket(ctx, added[0].ID, true)
	require.NoError(t, err)
	assert.Len(t, k.upserted, upserts, "no-op basket change must not hit the keeper")

	assert.Len(t, s.Basket(ctx), 2)

	n, err := s.ClearBasket(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, s.Basket(ctx))

	_, err = s.SetInBasket(ctx, added[2].ID, true)
	require.NoError(t, err)
	used, err := s.ConsumeBasket(ctx)
	require.NoError(t, err)
	require.Len(t, used, 1)
	assert.Equal(t, "beef", used[0].Name)
	assert.Len(t, s.Items(ctx), 2)

	used, err = s.ConsumeBasket(ctx)
	require.NoError(t, err)
	assert.Empty(t, used)

	_, err = s.SetInBasket(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyTipIsIdempotent(t *testing.T) {
	s := newTestStorage(t, &fakeKeeper{})
	ctx := context.Background()

	added, err := s.AddItems(ctx, []NewItem{{Name: "spinach", Category: "vegetables"}})
	require.NoError(t, err)
	before := added[0].ExpiryDate

	tip := models.StorageTip{ID: "wrap", Title: "Wrap in damp paper", ExtendDays: 3}
	got, err := s.ApplyTip(ctx, added[0].ID, tip)
	require.NoError(t, err)
	assert.Equal(t, before.AddDays(3), got.ExpiryDate)
	assert.True(t, got.HasTip("wrap"))

	got, err = s.ApplyTip(ctx, added[0].ID, tip)
	require.NoError(t, err)
	assert.Equal(t, before.AddDays(3), got.ExpiryDate)
	assert.Len(t, got.AppliedTips, 1)

	_, err = s.ApplyTip(ctx, added[0].ID, models.StorageTip{})
	assert.True(t, validation.IsValidation(err))
}

func TestReturnedItemsAreCopies(t *testing.T) {
	s := newTestStorage(t, nil)
	ctx := context.Background()

	added, err := s.AddItems(ctx, []NewItem{{Name: "kale"}})
	require.NoError(t, err)
	_, err = s.ApplyTip(ctx, added[0].ID, models.StorageTip{ID: "t1", ExtendDays: 1})
	require.NoError(t, err)

	got, err := s.GetItem(ctx, added[0].ID)
	require.NoError(t, err)
	got.AppliedTips[0].Title = "mutated"

	again, err := s.GetItem(ctx, added[0].ID)
	require.NoError(t, err)
	assert.Empty(t, again.AppliedTips[0].Title)
}

func TestSetLivingExpense(t *testing.T) {
	k := &fakeKeeper{}
	s := newTestStorage(t, k)
	ctx := context.Background()

	require.NoError(t, s.SetLivingExpense(ctx, "2024-04", decimal.NewFromInt(200000)))
	require.Len(t, k.expenses, 1)
	assert.True(t, s.LivingExpenses(ctx)["2024-04"].Equal(decimal.NewFromInt(200000)))

	assert.True(t, validation.IsValidation(s.SetLivingExpense(ctx, "April", decimal.NewFromInt(1))))
	assert.True(t, validation.IsValidation(s.SetLivingExpense(ctx, "2024-04", decimal.NewFromInt(-1))))

	snap := s.Snapshot()
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, "2024-04", snap.Expenses[0].Month)
}

func TestApplyTip_RejectsOversizedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fridge.json")
	ctx := context.Background()

	open := func() *MemoryStorage {
		k, err := filekeeper.NewFileKeeper(path, logger.NewNop())
		require.NoError(t, err)
		return newTestStorage(t, k)
	}

	s := open()
	added, err := s.AddItems(ctx, []NewItem{{Name: "miso", Category: "seasonings"}})
	require.NoError(t, err)
	before := added[0].ExpiryDate

	_, err = s.ApplyTip(ctx, added[0].ID, models.StorageTip{ID: "x", ExtendDays: 10_000_000})
	require.True(t, validation.IsValidation(err), "got %v", err)

	_, err = s.ApplyTip(ctx, added[0].ID, models.StorageTip{ID: "y", ExtendDays: models.MaxExtendDays})
	require.NoError(t, err)

	reopened := open()
	got, err := reopened.GetItem(ctx, added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, before.AddDays(models.MaxExtendDays), got.ExpiryDate)
	assert.Len(t, got.AppliedTips, 1)
}

func TestDatesOutsideWireRangeAreRejected(t *testing.T) {
	s := newTestStorage(t, &fakeKeeper{})
	ctx := context.Background()
	far := models.NewDate(10000, time.January, 1)

	_, err := s.AddItems(ctx, []NewItem{{Name: "salt", ExpiryDate: far}})
	assert.True(t, validation.IsValidation(err), "got %v", err)

	added, err := s.AddItems(ctx, []NewItem{{Name: "salt"}})
	require.NoError(t, err)
	_, err = s.UpdateItem(ctx, added[0].ID, ItemPatch{ExpiryDate: &far})
	assert.True(t, validation.IsValidation(err), "got %v", err)

	got, err := s.GetItem(ctx, added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, added[0].ExpiryDate, got.ExpiryDate)
}

func TestMoneyFitsStorageColumns(t *testing.T) {
	s := newTestStorage(t, &fakeKeeper{})
	ctx := context.Background()

	tests := []struct {
		name  string
		price string
		ok    bool
	}{
		{"cents", "1.23", true},
		{"sub cent", "1.235", false},
		{"too large", "1e11", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddItems(ctx, []NewItem{{Name: "tuna", Price: decimal.RequireFromString(tt.price)}})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, validation.IsValidation(err), "got %v", err)
			}
		})
	}

	added, err := s.AddItems(ctx, []NewItem{{Name: "tofu", Price: decimal.NewFromInt(80)}})
	require.NoError(t, err)
	odd := decimal.RequireFromString("80.005")
	_, err = s.UpdateItem(ctx, added[0].ID, ItemPatch{Price: &odd})
	assert.True(t, validation.IsValidation(err))

	assert.True(t, validation.IsValidation(s.SetLivingExpense(ctx, "2024-04", decimal.RequireFromString("1000.001"))))
	assert.True(t, validation.IsValidation(s.SetLivingExpense(ctx, "2024-04", decimal.New(1, 10))))
}
