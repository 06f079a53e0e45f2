package gemini

import (
	"context"
	"strings"

	"github.com/aoi01/fridgesnap/internal/apierr"
	"github.com/aoi01/fridgesnap/internal/validation"
)

type Ingredient struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Recipe is a dish suggested by the model.
type Recipe struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Ingredients    []string `json:"ingredients"`
	Steps          []string `json:"steps"`
	CookingMinutes int      `json:"cookingMinutes"`
	Servings       int      `json:"servings"`
}

type rawRecipe struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Ingredients    []string `json:"ingredients"`
	Steps          []string `json:"steps"`
	CookingMinutes number   `json:"cookingMinutes"`
	Servings       number   `json:"servings"`
}

// GenerateRecipe asks the model for a recipe built around ingredients.
func (c *Client) GenerateRecipe(ctx context.Context, ingredients []Ingredient) (*Recipe, error) {
	if len(ingredients) == 0 {
		return nil, validation.Newf("basket", "required")
	}

	var raw rawRecipe
	if err := c.generateJSON(ctx, 0.7, &raw, textPart(buildRecipePrompt(ingredients))); err != nil {
		return nil, err
	}

	r := &Recipe{
		Title:          strings.TrimSpace(raw.Title),
		Description:    strings.TrimSpace(raw.Description),
		Ingredients:    compact(raw.Ingredients),
		Steps:          compact(raw.Steps),
		CookingMinutes: raw.CookingMinutes.Int(),
		Servings:       raw.Servings.Int(),
	}
	if r.Title == "" || len(r.Steps) == 0 {
		return nil, apierr.BadResponse(service, "recipe without title or steps")
	}
	if r.CookingMinutes < 0 {
		r.CookingMinutes = 0
	}
	if r.Servings < 1 {
		r.Servings = 1
	}
	return r, nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
