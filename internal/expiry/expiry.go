// Package expiry classifies fridge items by how close they are to their
// expiry date.
package expiry

import (
	"sort"

	"github.com/aoi01/fridgesnap/internal/models"
)

// Status is the freshness bucket of an item.
type Status string

const (
	StatusExpired  Status = "expired"
	StatusToday    Status = "today"
	StatusTomorrow Status = "tomorrow"
	StatusSoon     Status = "soon"
	StatusSafe     Status = "safe"
)

// SoonDays is the largest day difference still reported as StatusSoon.
const SoonDays = 3

// Statuses lists every status from most to least urgent.
func Statuses() []Status {
	return []Status{StatusExpired, StatusToday, StatusTomorrow, StatusSoon, StatusSafe}
}

// ParseStatus returns the status named s.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses() {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// DaysUntil returns the number of calendar days from today to expiry.
// Negative values mean the item is past its date.
func DaysUntil(today, expiry models.Date) int {
	return expiry.DaysSince(today)
}

// Classify buckets the day difference between today and expiry.
func Classify(today, expiry models.Date) Status {
	d := DaysUntil(today, expiry)
	switch {
	case d < 0:
		return StatusExpired
	case d == 0:
		return StatusToday
	case d == 1:
		return StatusTomorrow
	case d <= SoonDays:
		return StatusSoon
	default:
		return StatusSafe
	}
}

// Urgent reports whether the item needs attention.
func (s Status) Urgent() bool {
	return s != StatusSafe && s != ""
}

// Rank orders statuses, lower is more urgent.
func (s Status) Rank() int {
	for i, st := range Statuses() {
		if st == s {
			return i
		}
	}
	return len(Statuses())
}

// DefaultExpiry is the expiry date assumed for an item of category c bought
// on purchased when nothing better is known.
func DefaultExpiry(c models.Category, purchased models.Date) models.Date {
	return purchased.AddDays(c.ShelfLifeDays())
}

// SortByExpiry orders items first-expiring-first. Ties are broken by name and
// then id so the order is stable across reloads.
func SortByExpiry(items []models.FoodItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate.Time) {
			return a.ExpiryDate.Before(b.ExpiryDate.Time)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// Entry is an item annotated with its freshness.
type Entry struct {
	models.FoodItem
	Status   Status `json:"status"`
	DaysLeft int    `json:"daysLeft"`
}

// Annotate classifies every item against today.
func Annotate(today models.Date, items []models.FoodItem) []Entry {
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, Entry{
			FoodItem: it,
			Status:   Classify(today, it.ExpiryDate),
			DaysLeft: DaysUntil(today, it.ExpiryDate),
		})
	}
	return out
}

// GroupUrgent groups the urgent entries by status. Safe items are dropped.
func GroupUrgent(entries []Entry) map[Status][]Entry {
	groups := make(map[Status][]Entry)
	for _, e := range entries {
		if !e.Status.Urgent() {
			continue
		}
		groups[e.Status] = append(groups[e.Status], e)
	}
	return groups
}
