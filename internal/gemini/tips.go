package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/aoi01/fridgesnap/internal/expiry"
	"github.com/aoi01/fridgesnap/internal/models"
)

type rawTips struct {
	Tips []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ExtendDays  number `json:"extendDays"`
	} `json:"tips"`
}

// StorageTips asks the model how item could be kept fresh for longer.
func (c *Client) StorageTips(ctx context.Context, item models.FoodItem) ([]models.StorageTip, error) {
	daysLeft := expiry.DaysUntil(models.DateOf(c.now()), item.ExpiryDate)

	var raw rawTips
	if err := c.generateJSON(ctx, 0.4, &raw, textPart(buildTipsPrompt(item, daysLeft))); err != nil {
		return nil, err
	}

	tips := make([]models.StorageTip, 0, len(raw.Tips))
	seen := make(map[string]struct{}, len(raw.Tips))
	for _, t := range raw.Tips {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		id := TipID(title)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		days := t.ExtendDays.Int()
		switch {
		case days < 0:
			days = 0
		case days > models.MaxExtendDays:
			days = models.MaxExtendDays
		}
		tips = append(tips, models.StorageTip{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(t.Description),
			ExtendDays:  days,
		})
	}
	return tips, nil
}

// TipID derives a stable id from the tip title so that the same advice is
// recognised when it is generated again.
func TipID(title string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(title))))
	return hex.EncodeToString(sum[:6])
}
