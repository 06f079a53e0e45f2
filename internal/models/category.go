package models

import "strings"

type Category string

const (
	CategoryVegetables Category = "vegetables"
	CategoryFruits     Category = "fruits"
	CategoryMeat       Category = "meat"
	CategoryFish       Category = "fish"
	CategoryDairy      Category = "dairy"
	CategoryEggs       Category = "eggs"
	CategoryGrains     Category = "grains"
	CategorySeasonings Category = "seasonings"
	CategoryBeverages  Category = "beverages"
	CategoryFrozen     Category = "frozen"
	CategoryPrepared   Category = "prepared"
	CategoryOther      Category = "other"
)

// shelfLife is the number of days an item of a category keeps after purchase
// when nothing better is known.
var shelfLife = map[Category]int{
	CategoryVegetables: 7,
	CategoryFruits:     7,
	CategoryMeat:       3,
	CategoryFish:       2,
	CategoryDairy:      10,
	CategoryEggs:       14,
	CategoryGrains:     180,
	CategorySeasonings: 365,
	CategoryBeverages:  30,
	CategoryFrozen:     60,
	CategoryPrepared:   2,
	CategoryOther:      7,
}

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{
		CategoryVegetables, CategoryFruits, CategoryMeat, CategoryFish,
		CategoryDairy, CategoryEggs, CategoryGrains, CategorySeasonings,
		CategoryBeverages, CategoryFrozen, CategoryPrepared, CategoryOther,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := shelfLife[c]
	return ok
}

// ShelfLifeDays returns the default shelf life for c.
func (c Category) ShelfLifeDays() int {
	if d, ok := shelfLife[c]; ok {
		return d
	}
	return shelfLife[CategoryOther]
}

// ParseCategory normalises free text (as produced by receipt extraction or CSV
// files) into a known category. Unknown values map to CategoryOther.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	switch c {
	case "vegetable", "veg", "produce":
		return CategoryVegetables
	case "fruit":
		return CategoryFruits
	case "seafood":
		return CategoryFish
	case "milk", "cheese", "yogurt":
		return CategoryDairy
	case "egg":
		return CategoryEggs
	case "rice", "bread", "noodles", "grain":
		return CategoryGrains
	case "seasoning", "condiments", "condiment", "spices":
		return CategorySeasonings
	case "drinks", "drink", "beverage":
		return CategoryBeverages
	case "frozen food":
		return CategoryFrozen
	case "ready meal", "deli", "side dish":
		return CategoryPrepared
	}
	return CategoryOther
}
