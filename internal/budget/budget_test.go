package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoi01/fridgesnap/internal/models"
)

func purchase(name string, c models.Category, price int64, d models.Date) models.Purchase {
	return models.Purchase{ID: name, Name: name, Category: c, Price: decimal.NewFromInt(price), PurchasedAt: d}
}

func TestEngelCoefficient(t *testing.T) {
	tests := []struct {
		name   string
		food   string
		living string
		want   string
		ok     bool
	}{
		{"quarter", "50000", "200000", "25", true},
		{"rounds half up", "1", "8", "12.5", true},
		{"one decimal", "1", "3", "33.3", true},
		{"two thirds", "2", "3", "66.7", true},
		{"zero living", "100", "0", "0", false},
		{"negative living", "100", "-5", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EngelCoefficient(decimal.RequireFromString(tt.food), decimal.RequireFromString(tt.living))
			assert.Equal(t, tt.ok, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestMonthlyTotals(t *testing.T) {
	purchases := []models.Purchase{
		purchase("a", models.CategoryMeat, 300, models.NewDate(2024, time.January, 31)),
		purchase("b", models.CategoryFish, 200, models.NewDate(2024, time.January, 1)),
		purchase("c", models.CategoryMeat, 150, models.NewDate(2024, time.February, 1)),
	}

	totals := MonthlyTotals(purchases)
	require.Len(t, totals, 2)
	assert.True(t, totals["2024-01"].Equal(decimal.NewFromInt(500)))
	assert.True(t, totals["2024-02"].Equal(decimal.NewFromInt(150)))
}

func TestSummarize(t *testing.T) {
	d := models.NewDate(2024, time.March, 5)
	purchases := []models.Purchase{
		purchase("beef", models.CategoryMeat, 800, d),
		purchase("pork", models.CategoryMeat, 400, d),
		purchase("milk", models.CategoryDairy, 200, d),
		purchase("eggs", models.CategoryEggs, 1200, d),
		purchase("old", models.CategoryMeat, 999, models.NewDate(2024, time.February, 28)),
	}

	t.Run("with living expense", func(t *testing.T) {
		s := Summarize("2024-03", purchases, map[string]decimal.Decimal{"2024-03": decimal.NewFromInt(10000)})

		assert.Equal(t, 4, s.Purchases)
		assert.True(t, s.FoodTotal.Equal(decimal.NewFromInt(2600)))
		require.NotNil(t, s.EngelCoefficient)
		assert.True(t, s.EngelCoefficient.Equal(decimal.NewFromInt(26)))

		require.Len(t, s.ByCategory, 3)
		// meat and eggs tie at 1200, name breaks the tie
		assert.Equal(t, models.CategoryEggs, s.ByCategory[0].Category)
		assert.Equal(t, models.CategoryMeat, s.ByCategory[1].Category)
		assert.Equal(t, models.CategoryDairy, s.ByCategory[2].Category)
	})

	t.Run("without living expense", func(t *testing.T) {
		s := Summarize("2024-03", purchases, nil)
		assert.Nil(t, s.LivingExpense)
		assert.Nil(t, s.EngelCoefficient)
	})

	t.Run("zero living expense", func(t *testing.T) {
		s := Summarize("2024-03", purchases, map[string]decimal.Decimal{"2024-03": decimal.Zero})
		require.NotNil(t, s.LivingExpense)
		assert.Nil(t, s.EngelCoefficient)
	})
}

func TestSummaries(t *testing.T) {
	purchases := []models.Purchase{
		purchase("a", models.CategoryMeat, 100, models.NewDate(2023, time.December, 24)),
		purchase("b", models.CategoryMeat, 50, models.NewDate(2024, time.February, 2)),
	}

	out := Summaries(purchases, nil, models.NewDate(2024, time.February, 20), 3)
	require.Len(t, out, 3)
	assert.Equal(t, "2023-12", out[0].Month)
	assert.Equal(t, "2024-01", out[1].Month)
	assert.Equal(t, "2024-02", out[2].Month)
	assert.True(t, out[1].FoodTotal.IsZero())
	assert.Empty(t, out[1].ByCategory)
	assert.True(t, out[2].FoodTotal.Equal(decimal.NewFromInt(50)))

	assert.Empty(t, Summaries(purchases, nil, models.NewDate(2024, time.February, 20), 0))
}
