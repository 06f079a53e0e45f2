package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/expiry"
	"github.com/aoi01/fridgesnap/internal/gemini"
	"github.com/aoi01/fridgesnap/internal/middleware"
	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/recipes"
	"github.com/aoi01/fridgesnap/internal/storage"
)

// Storage interface for fridge operations
type Storage interface {
	AddItems(context.Context, []storage.NewItem) ([]models.FoodItem, error)
	Items(context.Context) []models.FoodItem
	ListItems(context.Context, storage.Filter) []expiry.Entry
	GetItem(context.Context, string) (models.FoodItem, error)
	UpdateItem(context.Context, string, storage.ItemPatch) (models.FoodItem, error)
	DeleteItem(context.Context, string) error
	ApplyTip(context.Context, string, models.StorageTip) (models.FoodItem, error)

	SetInBasket(context.Context, string, bool) (models.FoodItem, error)
	Basket(context.Context) []models.FoodItem
	ClearBasket(context.Context) (int, error)
	ConsumeBasket(context.Context) ([]models.FoodItem, error)

	Purchases(context.Context) []models.Purchase
	LivingExpenses(context.Context) map[string]decimal.Decimal
	SetLivingExpense(context.Context, string, decimal.Decimal) error

	Today() models.Date
	Ping(context.Context) bool
}

// Assistant is the generative AI backend.
type Assistant interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*gemini.Receipt, error)
	GenerateRecipe(ctx context.Context, ingredients []gemini.Ingredient) (*gemini.Recipe, error)
	StorageTips(ctx context.Context, item models.FoodItem) ([]models.StorageTip, error)
}

// RecipeFinder searches the recipe API.
type RecipeFinder interface {
	Search(ctx context.Context, keyword string, basket []string) ([]recipes.Recipe, error)
}

// ReceiptArchive keeps uploaded receipt photos.
type ReceiptArchive interface {
	StoreReceipt(ctx context.Context, image []byte, contentType string) (string, error)
}

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// BaseController struct for handling requests
type BaseController struct {
	storage   Storage
	assistant Assistant
	finder    RecipeFinder
	archive   ReceiptArchive
	alerts    http.Handler
	log       Log
}

type Option func(*BaseController)

// WithReceiptArchive stores every uploaded receipt photo.
func WithReceiptArchive(a ReceiptArchive) Option {
	return func(h *BaseController) {
		h.archive = a
	}
}

// WithAlerts mounts the websocket alert endpoint.
func WithAlerts(ws http.Handler) Option {
	return func(h *BaseController) {
		h.alerts = ws
	}
}

// NewBaseController creates a new BaseController instance
func NewBaseController(storage Storage, assistant Assistant, finder RecipeFinder, log Log, opts ...Option) *BaseController {
	instance := &BaseController{
		storage:   storage,
		assistant: assistant,
		finder:    finder,
		log:       log,
	}
	for _, opt := range opts {
		opt(instance)
	}

	return instance
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chimw.Recoverer)

	r.Get("/ping", h.ping)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.listItems)
			r.Post("/", h.addItems)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getItem)
				r.Patch("/", h.updateItem)
				r.Delete("/", h.deleteItem)
				r.Put("/basket", h.putInBasket)
				r.Delete("/basket", h.takeFromBasket)
				r.Post("/tips", h.suggestTips)
				r.Post("/tips/apply", h.applyTip)
			})
		})

		r.Get("/basket", h.getBasket)
		r.Delete("/basket", h.clearBasket)
		r.Post("/basket/consume", h.consumeBasket)

		r.Get("/expiring", h.getExpiring)

		r.Post("/receipts", h.postReceipt)

		r.Get("/recipes/search", h.searchRecipes)
		r.Post("/recipes/generate", h.generateRecipe)

		r.Get("/budget", h.getBudget)
		r.Get("/budget/{month}", h.getBudgetMonth)
		r.Put("/budget/{month}/living-expense", h.putLivingExpense)
		r.Get("/purchases", h.getPurchases)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ArchiveTypeMiddleware)
			r.Post("/import", h.importItems)
		})
		r.Get("/export", h.exportItems)

		if h.alerts != nil {
			r.Get("/alerts/ws", h.alerts.ServeHTTP)
		}
	})

	return r
}

func (h *BaseController) ping(w http.ResponseWriter, r *http.Request) {
	if !h.storage.Ping(r.Context()) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "storage is unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
