// Package restock finds products whose stock flipped from unavailable to
// available inside a lookback window.
package restock

import (
	"sort"
	"time"

	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/models"
)

// DefaultLookback is how far back a restock transition is searched for.
const DefaultLookback = time.Hour

// Transition is a product whose newest check is in stock while the check
// before it was not.
type Transition struct {
	ProductID string
	Latest    models.StockCheck
	Previous  models.StockCheck
}

// Window returns the start of the lookback window ending at now.
func Window(now time.Time, lookback time.Duration) time.Time {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return now.Add(-lookback)
}

// Detect ranks each product's checks newer than since, newest first, and
// reports the products whose first-ranked check is in stock and whose
// second-ranked check is out of stock. A pre-order or unknown check before
// an in-stock one is not a restock. Checks with equal timestamps are ordered by
// ID, which is time-ordered, so the later insert ranks first.
func Detect(checks []models.StockCheck, since time.Time) []Transition {
	byProduct := make(map[string][]models.StockCheck)
	for _, c := range checks {
		if !c.CheckedAt.After(since) {
			continue
		}
		byProduct[c.ProductID] = append(byProduct[c.ProductID], c)
	}

	var out []Transition
	for productID, list := range byProduct {
		if len(list) < 2 {
			continue
		}
		sort.Slice(list, func(i, j int) bool { return newer(list[i], list[j]) })
		if list[0].InStock && outOfStock(list[1]) {
			out = append(out, Transition{ProductID: productID, Latest: list[0], Previous: list[1]})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Latest.CheckedAt, out[j].Latest.CheckedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// outOfStock falls back to the boolean for rows recorded without a status.
func outOfStock(c models.StockCheck) bool {
	if c.Status == "" {
		return !c.InStock
	}
	return classifier.Status(c.Status) == classifier.StatusOutOfStock
}

func newer(a, b models.StockCheck) bool {
	if !a.CheckedAt.Equal(b.CheckedAt) {
		return a.CheckedAt.After(b.CheckedAt)
	}
	return a.ID > b.ID
}
