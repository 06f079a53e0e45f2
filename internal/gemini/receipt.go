package gemini

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aoi01/fridgesnap/internal/expiry"
	"github.com/aoi01/fridgesnap/internal/models"
	"github.com/aoi01/fridgesnap/internal/validation"
)

// MaxImageBytes bounds a receipt photo.
const MaxImageBytes = 10 << 20

// maxReceiptExpiryDays caps the shelf life the model may claim for an item.
const maxReceiptExpiryDays = 3650

var imageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
}

// SupportedImage reports whether mimeType can be sent as a receipt.
func SupportedImage(mimeType string) bool {
	_, ok := imageTypes[strings.ToLower(mimeType)]
	return ok
}

// ReceiptItem is one food line read from a receipt.
type ReceiptItem struct {
	Name       string          `json:"name"`
	Category   models.Category `json:"category"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExpiryDate models.Date     `json:"expiryDate"`
}

type Receipt struct {
	PurchaseDate models.Date   `json:"purchaseDate"`
	Items        []ReceiptItem `json:"items"`
}

type rawReceipt struct {
	PurchaseDate string `json:"purchaseDate"`
	Items        []struct {
		Name       string          `json:"name"`
		Category   string          `json:"category"`
		Quantity   number          `json:"quantity"`
		Price      decimal.Decimal `json:"price"`
		ExpiryDays number          `json:"expiryDays"`
	} `json:"items"`
}

// ExtractReceipt reads the food items off a receipt photo.
func (c *Client) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*Receipt, error) {
	if len(image) == 0 {
		return nil, validation.Newf("image", "required")
	}
	if len(image) > MaxImageBytes {
		return nil, validation.Newf("image", "max")
	}
	if !SupportedImage(mimeType) {
		return nil, validation.Newf("image", "mimetype")
	}

	var raw rawReceipt
	err := c.generateJSON(ctx, 0.1, &raw,
		textPart(buildReceiptPrompt()),
		imagePart(strings.ToLower(mimeType), image))
	if err != nil {
		return nil, err
	}

	return raw.normalize(models.DateOf(c.now())), nil
}

func (r rawReceipt) normalize(today models.Date) *Receipt {
	purchased, err := models.ParseDate(strings.TrimSpace(r.PurchaseDate))
	if err != nil || purchased.After(today.Time) {
		purchased = today
	}

	out := &Receipt{PurchaseDate: purchased, Items: make([]ReceiptItem, 0, len(r.Items))}
	for _, it := range r.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		item := ReceiptItem{
			Name:     name,
			Category: models.ParseCategory(it.Category),
			Quantity: it.Quantity.Int(),
			Price:    it.Price.Round(2),
		}
		switch {
		case item.Quantity < 1:
			item.Quantity = 1
		case item.Quantity > models.MaxQuantity:
			item.Quantity = models.MaxQuantity
		}
		if item.Price.IsNegative() {
			item.Price = decimal.Zero
		}
		if days := it.ExpiryDays.Int(); days > 0 {
			item.ExpiryDate = purchased.AddDays(min(days, maxReceiptExpiryDays))
		} else {
			item.ExpiryDate = expiry.DefaultExpiry(item.Category, purchased)
		}
		out.Items = append(out.Items, item)
	}
	return out
}
