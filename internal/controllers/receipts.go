package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/gemini"
	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/storage"
	"github.com/aoi01/fridgesnap/internal/validation"
)

type receiptResponse struct {
	Receipt  *gemini.Receipt   `json:"receipt"`
	Items    []models.FoodItem `json:"items,omitempty"`
	ImageKey string            `json:"imageKey,omitempty"`
}

func (h *BaseController) postReceipt(w http.ResponseWriter, r *http.Request) {
	commit := false
	if s := r.URL.Query().Get("commit"); s != "" {
		var err error
		if commit, err = strconv.ParseBool(s); err != nil {
			h.fail(w, validation.Newf("commit", "boolean"))
			return
		}
	}

	image, mimeType, err := readImage(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	receipt, err := h.assistant.ExtractReceipt(r.Context(), image, mimeType)
	if err != nil {
		h.failUpstream(w, err)
		return
	}

	resp := receiptResponse{Receipt: receipt}
	if h.archive != nil {
		key, err := h.archive.StoreReceipt(r.Context(), image, mimeType)
		if err != nil {
			h.log.Warn("failed to archive receipt image", zap.Error(err))
		} else {
			resp.ImageKey = key
		}
	}

	if !commit || len(receipt.Items) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	in := make([]storage.NewItem, 0, len(receipt.Items))
	for _, it := range receipt.Items {
		in = append(in, storage.NewItem{
			Name:         it.Name,
			Category:     string(it.Category),
			Quantity:     it.Quantity,
			Price:        it.Price,
			PurchaseDate: receipt.PurchaseDate,
			ExpiryDate:   it.ExpiryDate,
		})
	}
	if resp.Items, err = h.storage.AddItems(r.Context(), in); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// readImage pulls the "image" part out of a multipart upload.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, gemini.MaxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(gemini.MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", validation.Newf("image", "max")
		}
		return nil, "", validation.Newf("image", "multipart")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", validation.Newf("image", "required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, gemini.MaxImageBytes+1))
	if err != nil {
		return nil, "", err
	}

	mimeType := strings.ToLower(strings.TrimSpace(strings.SplitN(header.Header.Get("Content-Type"), ";", 2)[0]))
	if !gemini.SupportedImage(mimeType) {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
