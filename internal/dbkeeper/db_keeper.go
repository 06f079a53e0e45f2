package dbkeeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/models"
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

type DBKeeper struct {
	pool *pgxpool.Pool
	log  Log
}

// NewDBKeeper connects to PostgreSQL and applies the migrations found in
// migrationsDir before returning.
func NewDBKeeper(ctx context.Context, dsn func() string, migrationsDir string, log Log) (*DBKeeper, error) {
	addr := dsn()
	if addr == "" {
		return nil, errors.New("database dsn is empty")
	}

	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		log.Error("Unable to parse database DSN: ", zap.Error(err))
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if err := migrateUp(addr, migrationsDir, log); err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		log.Error("Unable to connect to database: ", zap.Error(err))
		return nil, fmt.Errorf("connect: %w", err)
	}

	log.Info("Connected!")

	return &DBKeeper{
		pool: pool,
		log:  log,
	}, nil
}

func (kp *DBKeeper) Load(ctx context.Context) (*models.Snapshot, error) {
	if kp.pool == nil {
		return nil, fmt.Errorf("database connection pool is nil")
	}

	var (
		snap models.Snapshot
		err  error
	)
	if snap.Items, err = kp.loadItems(ctx); err != nil {
		return nil, err
	}
	if snap.Purchases, err = kp.loadPurchases(ctx); err != nil {
		return nil, err
	}
	if snap.Expenses, err = kp.loadExpenses(ctx); err != nil {
		return nil, err
	}

	kp.log.Info("Successfully loaded household data",
		zap.Int("items", len(snap.Items)),
		zap.Int("purchases", len(snap.Purchases)))
	return &snap, nil
}

func (kp *DBKeeper) loadItems(ctx context.Context) ([]models.FoodItem, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT id, name, category, quantity, price::text, purchase_date, expiry_date, in_basket, applied_tips::text
		FROM items
	`)
	if err != nil {
		kp.log.Error("Failed to execute query", zap.Error(err))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var items []models.FoodItem
	for rows.Next() {
		var (
			it                models.FoodItem
			category          string
			price, tips       string
			purchased, expiry time.Time
		)
		if err := rows.Scan(&it.ID, &it.Name, &category, &it.Quantity, &price, &purchased, &expiry, &it.InBasket, &tips); err != nil {
			kp.log.Error("Failed to scan row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		it.Category = models.Category(category)
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("item %s price: %w", it.ID, err)
		}
		it.PurchaseDate = models.DateOf(purchased)
		it.ExpiryDate = models.DateOf(expiry)
		if err := json.Unmarshal([]byte(tips), &it.AppliedTips); err != nil {
			return nil, fmt.Errorf("item %s tips: %w", it.ID, err)
		}
		if len(it.AppliedTips) == 0 {
			it.AppliedTips = nil
		}
		items = append(items, it)
	}

	if rows.Err() != nil {
		kp.log.Error("Error occurred during rows iteration", zap.Error(rows.Err()))
		return nil, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}
	return items, nil
}

func (kp *DBKeeper) loadPurchases(ctx context.Context) ([]models.Purchase, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT id, item_id, name, category, price::text, purchased_at
		FROM purchases
		ORDER BY purchased_at, id
	`)
	if err != nil {
		kp.log.Error("Failed to execute query", zap.Error(err))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var purchases []models.Purchase
	for rows.Next() {
		var (
			p         models.Purchase
			category  string
			price     string
			purchased time.Time
		)
		if err := rows.Scan(&p.ID, &p.ItemID, &p.Name, &category, &price, &purchased); err != nil {
			kp.log.Error("Failed to scan row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p.Category = models.Category(category)
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("purchase %s price: %w", p.ID, err)
		}
		p.PurchasedAt = models.DateOf(purchased)
		purchases = append(purchases, p)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}
	return purchases, nil
}

func (kp *DBKeeper) loadExpenses(ctx context.Context) ([]models.MonthlyExpense, error) {
	rows, err := kp.pool.Query(ctx, `SELECT month, amount::text FROM monthly_expenses ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var expenses []models.MonthlyExpense
	for rows.Next() {
		var e models.MonthlyExpense
		var amount string
		if err := rows.Scan(&e.Month, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("expense %s amount: %w", e.Month, err)
		}
		expenses = append(expenses, e)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}
	return expenses, nil
}

const (
	upsertItemStmt = `
		INSERT INTO items (id, name, category, quantity, price, purchase_date, expiry_date, in_basket, applied_tips)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			quantity = EXCLUDED.quantity,
			price = EXCLUDED.price,
			purchase_date = EXCLUDED.purchase_date,
			expiry_date = EXCLUDED.expiry_date,
			in_basket = EXCLUDED.in_basket,
			applied_tips = EXCLUDED.applied_tips`
	insertPurchaseStmt = `
		INSERT INTO purchases (id, item_id, name, category, price, purchased_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		ON CONFLICT (id) DO NOTHING`
)

func (kp *DBKeeper) AddItems(ctx context.Context, items []models.FoodItem, purchases []models.Purchase) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		if err := queueItem(batch, it); err != nil {
			return err
		}
	}
	for _, p := range purchases {
		batch.Queue(insertPurchaseStmt, p.ID, p.ItemID, p.Name, string(p.Category), p.Price.String(), p.PurchasedAt.Time)
	}
	return kp.execBatch(ctx, batch)
}

func (kp *DBKeeper) UpsertItems(ctx context.Context, items []models.FoodItem) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		if err := queueItem(batch, it); err != nil {
			return err
		}
	}
	return kp.execBatch(ctx, batch)
}

func (kp *DBKeeper) DeleteItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if kp.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}
	if _, err := kp.pool.Exec(ctx, `DELETE FROM items WHERE id = ANY($1)`, ids); err != nil {
		kp.log.Error("Failed to delete items", zap.Error(err))
		return fmt.Errorf("failed to delete items: %w", err)
	}
	return nil
}

func (kp *DBKeeper) SaveExpense(ctx context.Context, e models.MonthlyExpense) error {
	if kp.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}
	_, err := kp.pool.Exec(ctx, `
		INSERT INTO monthly_expenses (month, amount) VALUES ($1, $2::numeric)
		ON CONFLICT (month) DO UPDATE SET amount = EXCLUDED.amount
	`, e.Month, e.Amount.String())
	if err != nil {
		kp.log.Error("Failed to save living expense", zap.Error(err))
		return fmt.Errorf("failed to save living expense: %w", err)
	}
	return nil
}

func queueItem(batch *pgx.Batch, it models.FoodItem) error {
	tips := it.AppliedTips
	if tips == nil {
		tips = []models.StorageTip{}
	}
	b, err := json.Marshal(tips)
	if err != nil {
		return fmt.Errorf("marshal tips: %w", err)
	}
	batch.Queue(upsertItemStmt,
		it.ID, it.Name, string(it.Category), it.Quantity, it.Price.String(),
		it.PurchaseDate.Time, it.ExpiryDate.Time, it.InBasket, string(b))
	return nil
}

// execBatch runs every queued statement in a single transaction.
func (kp *DBKeeper) execBatch(ctx context.Context, batch *pgx.Batch) (err error) {
	if batch.Len() == 0 {
		return nil
	}
	if kp.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}

	tx, err := kp.pool.Begin(ctx)
	if err != nil {
		kp.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				kp.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, execErr := br.Exec(); execErr != nil {
			_ = br.Close()
			err = fmt.Errorf("failed to execute batch query: %w", execErr)
			return err
		}
	}
	if closeErr := br.Close(); closeErr != nil {
		err = fmt.Errorf("failed to close batch: %w", closeErr)
		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		return err
	}
	return nil
}

func (kp *DBKeeper) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := kp.pool.Ping(ctx); err != nil {
		kp.log.Error("Database ping failed", zap.Error(err))
		return false
	}

	return true
}

func (kp *DBKeeper) Close() bool {
	if kp.pool != nil {
		kp.pool.Close()
		kp.log.Info("Database connection pool closed")
		return true
	}
	kp.log.Info("Attempted to close a nil database connection pool")
	return false
}
