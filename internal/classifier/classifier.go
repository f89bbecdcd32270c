// Package classifier decides whether a product can be bought right now.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Status is the availability of a product.
type Status string

const (
	StatusInStock    Status = "in_stock"
	StatusOutOfStock Status = "out_of_stock"
	StatusPreOrder   Status = "pre_order"
	StatusUnknown    Status = "unknown"
)

// InStock collapses a status to the persisted boolean. Only in_stock is true.
func (s Status) InStock() bool { return s == StatusInStock }

const (
	confidenceAvailable = 0.95
	confidencePreOrder  = 0.95
	confidenceSoldOut   = 0.9
)

// ErrNoVariants is returned by product sources that found a product without any variants.
var ErrNoVariants = errors.New("product has no variants")

type Variant struct {
	ID                string
	Title             string
	Available         bool
	InventoryQuantity int
	Price             string
}

// ProductData is the structured product description published by a storefront.
type ProductData struct {
	Variants    []Variant
	Tags        []string
	ProductType string
	Description string
}

type VariantStock struct {
	VariantID string `json:"variant_id"`
	Title     string `json:"title"`
	Available bool   `json:"available"`
	Quantity  int    `json:"quantity"`
}

// Result is the outcome of a single classification.
type Result struct {
	Status     Status         `json:"status"`
	Confidence float64        `json:"confidence"`
	Signals    []string       `json:"signals"`
	Inventory  []VariantStock `json:"inventory,omitempty"`
}

// PageFetcher loads the rendered product page for the pre-order fallback.
type PageFetcher interface {
	FetchPage(ctx context.Context) (PageSignals, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context) (PageSignals, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context) (PageSignals, error) { return f(ctx) }

var productKeywords = []string{"pre-order", "preorder", "expected", "coming soon", "notify me"}

// Classify decides the status of a product from its variants, falling back
// to product metadata and the rendered page when nothing is purchasable.
func Classify(ctx context.Context, data ProductData, page PageFetcher) Result {
	res := Result{Inventory: inventory(data.Variants)}

	if len(data.Variants) == 0 {
		res.Status = StatusUnknown
		res.Signals = []string{"no variants found"}
		return res
	}

	available := 0
	for _, v := range data.Variants {
		if v.Available {
			available++
		}
	}
	if available > 0 {
		res.Status = StatusInStock
		res.Confidence = confidenceAvailable
		res.Signals = []string{fmt.Sprintf("%d of %d variants available", available, len(data.Variants))}
		return res
	}

	var signals []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			signals = append(signals, s)
		}
	}

	matched := false
	for _, kw := range matchKeywords(productText(data), productKeywords) {
		add(kw)
		matched = true
	}

	var failure string
	if page == nil {
		failure = "page check failed: no page fetcher"
	} else if ps, err := page.FetchPage(ctx); err != nil {
		failure = "page check failed: " + err.Error()
	} else {
		kws, expected := FindPreOrder(ps)
		for _, kw := range kws {
			add(kw)
			matched = true
		}
		if expected != "" {
			add("expected date: " + expected)
			matched = true
		}
	}

	if matched {
		res.Status = StatusPreOrder
		res.Confidence = confidencePreOrder
		res.Signals = signals
		return res
	}

	res.Status = StatusOutOfStock
	res.Confidence = confidenceSoldOut
	if failure != "" {
		res.Signals = append(res.Signals, failure)
	}
	res.Signals = append(res.Signals, "no pre-order indicator found")
	return res
}

// Failed is the result recorded when a product could not be classified at all.
func Failed(err error) Result {
	return Result{
		Status:  StatusOutOfStock,
		Signals: []string{"classification failed: " + err.Error()},
	}
}

func inventory(variants []Variant) []VariantStock {
	if len(variants) == 0 {
		return nil
	}
	out := make([]VariantStock, 0, len(variants))
	for _, v := range variants {
		out = append(out, VariantStock{
			VariantID: v.ID,
			Title:     v.Title,
			Available: v.Available,
			Quantity:  v.InventoryQuantity,
		})
	}
	return out
}

func productText(data ProductData) string {
	parts := append([]string{}, data.Tags...)
	parts = append(parts, data.ProductType, data.Description)
	return strings.Join(parts, "\n")
}

// matchKeywords returns the keywords found in text, in keyword order.
func matchKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}
