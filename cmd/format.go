package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/fatih/color"
	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/lukman83/matcha-stock/internal/notify"
)

var (
	inStockColor    = color.New(color.FgGreen, color.Bold)
	outOfStockColor = color.New(color.FgRed)
	preOrderColor   = color.New(color.FgYellow)
	dimColor        = color.New(color.Faint)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statusLabel colors a status for terminal output.
func statusLabel(status string) string {
	switch classifier.Status(status) {
	case classifier.StatusInStock:
		return inStockColor.Sprint("IN STOCK")
	case classifier.StatusPreOrder:
		return preOrderColor.Sprint("PRE-ORDER")
	case classifier.StatusOutOfStock:
		return outOfStockColor.Sprint("OUT OF STOCK")
	default:
		return dimColor.Sprint("UNKNOWN")
	}
}

// printResultTable prints a single classification in a card layout.
func printResultTable(w io.Writer, rawURL string, res classifier.Result) {
	fmt.Fprintf(w, " %s  %s\n", statusLabel(string(res.Status)), cleanURL(rawURL))
	fmt.Fprintf(w, "    Confidence: %.2f\n", res.Confidence)
	for _, s := range res.Signals {
		fmt.Fprintf(w, "    - %s\n", s)
	}
	if len(res.Inventory) > 0 {
		fmt.Fprintln(w, "    Variants:")
		for _, v := range res.Inventory {
			mark := outOfStockColor.Sprint("✗")
			if v.Available {
				mark = inStockColor.Sprint("✓")
			}
			line := fmt.Sprintf("      %s %s", mark, truncate(v.Title, 48))
			if v.Quantity > 0 {
				line += fmt.Sprintf(" (%d left)", v.Quantity)
			}
			fmt.Fprintln(w, line)
		}
	}
}

// printStatusTable lists the latest check of every product of a brand.
func printStatusTable(w io.Writer, statuses []models.ProductStatus) {
	for i, s := range statuses {
		if i > 0 {
			fmt.Fprintln(w)
		}
		status := "unknown"
		if s.Status != nil {
			status = *s.Status
		}
		fmt.Fprintf(w, " %d. %s  %s\n", i+1, truncate(s.Name, 60), statusLabel(status))

		line := "    Price: " + notify.FormatPrice(s.Price)
		if s.Weight != nil {
			line += "  |  " + *s.Weight
		}
		if s.CheckedAt != nil {
			line += "  |  Checked: " + s.CheckedAt.Local().Format("2006-01-02 15:04")
		} else {
			line += "  |  " + dimColor.Sprint("never checked")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "    %s\n", cleanURL(s.URL))
	}
}

func printBrandsTable(w io.Writer, brands []models.BrandSummary) {
	width := 5
	for _, b := range brands {
		width = max(width, len([]rune(b.Name)))
	}
	width = min(width, 40)
	fmt.Fprintf(w, "%-*s  %8s  %13s  %s\n", width, "BRAND", "PRODUCTS", "SUBSCRIPTIONS", "WEBSITE")
	for _, b := range brands {
		fmt.Fprintf(w, "%-*s  %8d  %13d  %s\n", width, truncate(b.Name, width), b.ProductCount, b.SubscriptionCount, b.Website)
	}
}

// cleanURL strips tracking query params (variant, utm_*, etc.)
// and returns just the product page URL.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
