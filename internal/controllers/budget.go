package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	"github.com/aoi01/fridgesnap/internal/budget"
	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/validation"
)

const (
	defaultBudgetMonths = 6
	maxBudgetMonths     = 24
)

type livingExpenseRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

func (h *BaseController) getBudget(w http.ResponseWriter, r *http.Request) {
	months := defaultBudgetMonths
	if s := r.URL.Query().Get("months"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxBudgetMonths {
			h.fail(w, &validation.Error{Fields: []validation.FieldError{{Field: "months", Rule: "range", Param: "1-24"}}})
			return
		}
		months = n
	}

	ctx := r.Context()
	summaries := budget.Summaries(h.storage.Purchases(ctx), h.storage.LivingExpenses(ctx), h.storage.Today(), months)
	writeJSON(w, http.StatusOK, map[string]any{"months": summaries})
}

func (h *BaseController) getBudgetMonth(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	if !models.ValidMonth(month) {
		h.fail(w, validation.Newf("month", "datetime"))
		return
	}
	ctx := r.Context()
	writeJSON(w, http.StatusOK, budget.Summarize(month, h.storage.Purchases(ctx), h.storage.LivingExpenses(ctx)))
}

func (h *BaseController) putLivingExpense(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")

	var req livingExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Amount == nil {
		h.fail(w, validation.Newf("amount", "required"))
		return
	}

	ctx := r.Context()
	if err := h.storage.SetLivingExpense(ctx, month, *req.Amount); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budget.Summarize(month, h.storage.Purchases(ctx), h.storage.LivingExpenses(ctx)))
}

func (h *BaseController) getPurchases(w http.ResponseWriter, r *http.Request) {
	purchases := h.storage.Purchases(r.Context())

	if month := r.URL.Query().Get("month"); month != "" {
		if !models.ValidMonth(month) {
			h.fail(w, validation.Newf("month", "datetime"))
			return
		}
		filtered := make([]models.Purchase, 0, len(purchases))
		for _, p := range purchases {
			if p.PurchasedAt.MonthKey() == month {
				filtered = append(filtered, p)
			}
		}
		purchases = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}
