package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/models"
)

// ErrConflict indicates a data conflict in the store.
var (
	ErrConflict = errors.New("data conflict")
	ErrNotFound = errors.New("not found")
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Keeper persists the household state. Every mutation of MemoryStorage is
// written through to the keeper before it becomes visible.
type Keeper interface {
	Load(context.Context) (*models.Snapshot, error)
	AddItems(context.Context, []models.FoodItem, []models.Purchase) error
	UpsertItems(context.Context, []models.FoodItem) error
	DeleteItems(context.Context, []string) error
	SaveExpense(context.Context, models.MonthlyExpense) error
	Ping(context.Context) bool
	Close() bool
}

// MemoryStorage represents an in-memory storage with locking mechanisms
type MemoryStorage struct {
	mx sync.RWMutex

	items     map[string]models.FoodItem
	purchases []models.Purchase
	expenses  map[string]decimal.Decimal

	keeper Keeper
	log    Log
	now    func() time.Time
	newID  func() string
}

// Option tweaks a MemoryStorage.
type Option func(*MemoryStorage)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStorage) {
		s.now = now
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *MemoryStorage) {
		s.newID = gen
	}
}

// NewMemoryStorage creates a new MemoryStorage instance and loads the
// persisted state from keeper. A nil keeper keeps everything in memory.
func NewMemoryStorage(ctx context.Context, keeper Keeper, log Log, opts ...Option) (*MemoryStorage, error) {
	s := &MemoryStorage{
		items:    make(map[string]models.FoodItem),
		expenses: make(map[string]decimal.Decimal),
		keeper:   keeper,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if keeper == nil {
		return s, nil
	}

	snap, err := keeper.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load household data: %w", err)
	}
	for _, it := range snap.Items {
		s.items[it.ID] = it
	}
	s.purchases = append(s.purchases, snap.Purchases...)
	for _, e := range snap.Expenses {
		s.expenses[e.Month] = e.Amount
	}

	log.Info("household data loaded",
		zap.Int("items", len(s.items)),
		zap.Int("purchases", len(s.purchases)),
		zap.Int("expenses", len(s.expenses)))

	return s, nil
}

// Today is the current calendar day as seen by the store.
func (s *MemoryStorage) Today() models.Date {
	return models.DateOf(s.now())
}

// Ping reports whether the backing keeper is reachable.
func (s *MemoryStorage) Ping(ctx context.Context) bool {
	if s.keeper == nil {
		return true
	}
	return s.keeper.Ping(ctx)
}

// Close releases the keeper.
func (s *MemoryStorage) Close() {
	if s.keeper != nil {
		s.keeper.Close()
	}
}

// Snapshot copies the whole state, items first-expiring-first.
func (s *MemoryStorage) Snapshot() models.Snapshot {
	s.mx.RLock()
	defer s.mx.RUnlock()

	snap := models.Snapshot{
		Items:     s.sortedItemsLocked(),
		Purchases: append([]models.Purchase(nil), s.purchases...),
		Expenses:  make([]models.MonthlyExpense, 0, len(s.expenses)),
	}
	for month, amount := range s.expenses {
		snap.Expenses = append(snap.Expenses, models.MonthlyExpense{Month: month, Amount: amount})
	}
	sort.Slice(snap.Expenses, func(i, j int) bool { return snap.Expenses[i].Month < snap.Expenses[j].Month })
	return snap
}

func (s *MemoryStorage) persist(op string, fn func(Keeper) error) error {
	if s.keeper == nil {
		return nil
	}
	if err := fn(s.keeper); err != nil {
		s.log.Error("failed to persist change", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
