package controllers

import (
	"net/http"
	"strings"

	"github.com/aoi01/fridgesnap/internal/gemini"
)

func (h *BaseController) searchRecipes(w http.ResponseWriter, r *http.Request) {
	basket := h.storage.Basket(r.Context())
	names := make([]string, 0, len(basket))
	for _, it := range basket {
		names = append(names, it.Name)
	}

	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	found, err := h.finder.Search(r.Context(), keyword, names)
	if err != nil {
		h.failUpstream(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"basket":  names,
		"recipes": found,
	})
}

func (h *BaseController) generateRecipe(w http.ResponseWriter, r *http.Request) {
	basket := h.storage.Basket(r.Context())
	ingredients := make([]gemini.Ingredient, 0, len(basket))
	for _, it := range basket {
		ingredients = append(ingredients, gemini.Ingredient{Name: it.Name, Quantity: it.Quantity})
	}

	recipe, err := h.assistant.GenerateRecipe(r.Context(), ingredients)
	if err != nil {
		h.failUpstream(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}
