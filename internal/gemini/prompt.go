package gemini

import (
	"fmt"
	"strings"

	"github.com/aoi01/fridgesnap/internal/models"
)

func categoryList() string {
	cats := models.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func buildReceiptPrompt() string {
	return fmt.Sprintf(`You read photographed shop receipts.
Extract only food and drink purchases. Ignore bags, discounts, taxes and totals.

Return ONLY valid JSON, no markdown:
{"purchaseDate":"YYYY-MM-DD or empty","items":[{"name":"","category":"","quantity":1,"price":0,"expiryDays":0}]}

Rules:
- category is one of: %s
- price is the total paid for the line
- expiryDays is how many days the item usually keeps after purchase, 0 if unsure
- return {"purchaseDate":"","items":[]} if the image is not a receipt`, categoryList())
}

func buildRecipePrompt(ingredients []Ingredient) string {
	var sb strings.Builder
	for _, in := range ingredients {
		fmt.Fprintf(&sb, "- %s x%d\n", in.Name, in.Quantity)
	}
	return fmt.Sprintf(`Suggest one home-cooking recipe that uses as many of these ingredients as possible.
Common seasonings may be assumed.

Ingredients:
%s
Return ONLY valid JSON, no markdown:
{"title":"","description":"","ingredients":[""],"steps":[""],"cookingMinutes":0,"servings":0}`, sb.String())
}

func buildTipsPrompt(item models.FoodItem, daysLeft int) string {
	return fmt.Sprintf(`Give up to 3 practical storage tips that keep this food fresh for longer.

Food: %s
Category: %s
Days until expiry: %d

Return ONLY valid JSON, no markdown:
{"tips":[{"title":"","description":"","extendDays":0}]}
extendDays is the realistic number of extra days the tip buys, 0 if none.`, item.Name, item.Category, daysLeft)
}
