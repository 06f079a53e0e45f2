package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/compress"
	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/storage"
	"github.com/aoi01/fridgesnap/internal/validation"
)

// importItems adds every row of the CSV file the archive middleware
// extracted. One bad row rejects the whole file.
func (h *BaseController) importItems(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	records, err := compress.DecodeItems(r.Body)
	if err != nil {
		h.fail(w, err)
		return
	}

	in := make([]storage.NewItem, 0, len(records))
	for _, rec := range records {
		item := storage.NewItem{
			Name:         strings.TrimSpace(rec.Name),
			Category:     rec.Category,
			Quantity:     rec.Quantity,
			Price:        rec.Price,
			PurchaseDate: rec.PurchaseDate,
			ExpiryDate:   rec.ExpiryDate,
		}
		err := validation.Struct(item)
		if err == nil {
			err = validation.Money("price", item.Price)
		}
		if err != nil {
			h.fail(w, &compress.RowError{Row: rec.Row, Err: err})
			return
		}
		in = append(in, item)
	}

	items, err := h.storage.AddItems(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summarizeImport(items))
}

func summarizeImport(items []models.FoodItem) *models.ProcessResponse {
	resp := &models.ProcessResponse{TotalItems: len(items)}
	categories := make(map[models.Category]struct{})
	for _, it := range items {
		categories[it.Category] = struct{}{}
		resp.TotalPrice = resp.TotalPrice.Add(it.Price)
	}
	resp.TotalCategories = len(categories)
	return resp
}

func (h *BaseController) exportItems(w http.ResponseWriter, r *http.Request) {
	items := h.storage.Items(r.Context())

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="fridge-%s.zip"`, h.storage.Today()))

	zw, err := compress.NewZipWriter(w, "items.csv")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := compress.EncodeItems(zw, items); err != nil {
		h.log.Error("failed to write export", zap.Error(err))
	}
	if err := zw.Close(); err != nil {
		h.log.Error("failed to finish export archive", zap.Error(err))
	}
}
