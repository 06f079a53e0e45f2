package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/aoi01/fridgesnap/internal/expiry"
	"github.com/aoi01/fridgesnap/internal/gemini"
	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/storage"
	"github.com/aoi01/fridgesnap/internal/validation"
)

type addItemsRequest struct {
	Items []storage.NewItem `json:"items"`
}

type applyTipRequest struct {
	Tip models.StorageTip `json:"tip"`
}

func parseFilter(r *http.Request) (storage.Filter, error) {
	var f storage.Filter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		st, ok := expiry.ParseStatus(strings.ToLower(s))
		if !ok {
			return f, validation.Newf("status", "oneof")
		}
		f.Status = st
	}
	if s := q.Get("category"); s != "" {
		c := models.Category(strings.ToLower(s))
		if !c.Valid() {
			return f, validation.Newf("category", "oneof")
		}
		f.Category = c
	}
	if s := q.Get("basket"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, validation.Newf("basket", "boolean")
		}
		f.InBasket = &b
	}
	return f, nil
}

func (h *BaseController) listItems(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"today": h.storage.Today(),
		"items": h.storage.ListItems(r.Context(), f),
	})
}

func (h *BaseController) addItems(w http.ResponseWriter, r *http.Request) {
	var req addItemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	items, err := h.storage.AddItems(r.Context(), req.Items)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": items})
}

func (h *BaseController) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.storage.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *BaseController) updateItem(w http.ResponseWriter, r *http.Request) {
	var patch storage.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.storage.UpdateItem(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *BaseController) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BaseController) putInBasket(w http.ResponseWriter, r *http.Request) {
	h.setBasket(w, r, true)
}

func (h *BaseController) takeFromBasket(w http.ResponseWriter, r *http.Request) {
	h.setBasket(w, r, false)
}

func (h *BaseController) setBasket(w http.ResponseWriter, r *http.Request, in bool) {
	item, err := h.storage.SetInBasket(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *BaseController) getBasket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.storage.Basket(r.Context())})
}

func (h *BaseController) clearBasket(w http.ResponseWriter, r *http.Request) {
	n, err := h.storage.ClearBasket(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (h *BaseController) consumeBasket(w http.ResponseWriter, r *http.Request) {
	items, err := h.storage.ConsumeBasket(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consumed": items})
}

func (h *BaseController) getExpiring(w http.ResponseWriter, r *http.Request) {
	today := h.storage.Today()
	entries := expiry.Annotate(today, h.storage.Items(r.Context()))
	groups := expiry.GroupUrgent(entries)

	count := 0
	for _, g := range groups {
		count += len(g)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"today":  today,
		"count":  count,
		"groups": groups,
	})
}

func (h *BaseController) suggestTips(w http.ResponseWriter, r *http.Request) {
	item, err := h.storage.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	tips, err := h.assistant.StorageTips(r.Context(), item)
	if err != nil {
		h.failUpstream(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item, "tips": tips})
}

func (h *BaseController) applyTip(w http.ResponseWriter, r *http.Request) {
	var req applyTipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Tip.ID == "" && strings.TrimSpace(req.Tip.Title) != "" {
		req.Tip.ID = gemini.TipID(req.Tip.Title)
	}
	item, err := h.storage.ApplyTip(r.Context(), chi.URLParam(r, "id"), req.Tip)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
