package classifier

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func staticPage(text string, labels ...string) PageFetcher {
	return PageFetcherFunc(func(ctx context.Context) (PageSignals, error) {
		return PageSignals{Text: text, Labels: labels}, nil
	})
}

func TestClassifyAvailableVariant(t *testing.T) {
	data := ProductData{
		Variants: []Variant{
			{ID: "1", Title: "20g", Available: false},
			{ID: "2", Title: "40g", Available: true, InventoryQuantity: 3},
		},
		Tags: []string{"pre-order"},
	}
	called := false
	page := PageFetcherFunc(func(ctx context.Context) (PageSignals, error) {
		called = true
		return PageSignals{}, nil
	})

	res := Classify(context.Background(), data, page)
	if res.Status != StatusInStock {
		t.Fatalf("Invalid status, got: %s, instead of: %s.", res.Status, StatusInStock)
	}
	if res.Confidence != 0.95 {
		t.Errorf("Invalid confidence, got: %v, instead of: 0.95.", res.Confidence)
	}
	if want := []string{"1 of 2 variants available"}; !reflect.DeepEqual(res.Signals, want) {
		t.Errorf("Invalid signals, got: %v, instead of: %v.", res.Signals, want)
	}
	if called {
		t.Error("page fetched although a variant was available")
	}
	if len(res.Inventory) != 2 || res.Inventory[1].Quantity != 3 {
		t.Errorf("Invalid inventory: %+v", res.Inventory)
	}
}

func TestClassifyNoVariants(t *testing.T) {
	res := Classify(context.Background(), ProductData{Tags: []string{"pre-order"}}, staticPage("pre-order now"))
	if res.Status != StatusUnknown || res.Confidence != 0 {
		t.Fatalf("got %s/%v, want unknown/0", res.Status, res.Confidence)
	}
	if want := []string{"no variants found"}; !reflect.DeepEqual(res.Signals, want) {
		t.Errorf("got %v, want %v", res.Signals, want)
	}
	if res.Status.InStock() {
		t.Error("unknown must not persist as in stock")
	}
}

func TestClassifyUnavailable(t *testing.T) {
	soldOut := []Variant{{ID: "1", Title: "40g"}, {ID: "2", Title: "100g"}}

	tests := []struct {
		name       string
		data       ProductData
		page       PageFetcher
		status     Status
		confidence float64
		signals    []string
	}{
		{
			name:       "tag pre-order",
			data:       ProductData{Variants: soldOut, Tags: []string{"matcha", "Pre-Order"}},
			page:       staticPage("Sold out"),
			status:     StatusPreOrder,
			confidence: 0.95,
			signals:    []string{"pre-order"},
		},
		{
			name:       "description coming soon",
			data:       ProductData{Variants: soldOut, Description: "New harvest Coming Soon."},
			page:       staticPage(""),
			status:     StatusPreOrder,
			confidence: 0.95,
			signals:    []string{"coming soon"},
		},
		{
			name:       "page expected date",
			data:       ProductData{Variants: soldOut},
			page:       staticPage("Sayaka 40g\nExpected in stock by July 15, 2025."),
			status:     StatusPreOrder,
			confidence: 0.95,
			signals:    []string{"expected in stock", "expected date: July 15, 2025"},
		},
		{
			name:       "button label",
			data:       ProductData{Variants: soldOut},
			page:       staticPage("Sayaka 40g", "Notify me when available"),
			status:     StatusPreOrder,
			confidence: 0.95,
			signals:    []string{"notify me when", "notify me"},
		},
		{
			name:       "keywords deduplicated across sources",
			data:       ProductData{Variants: soldOut, ProductType: "Preorder"},
			page:       staticPage("Preorder today"),
			status:     StatusPreOrder,
			confidence: 0.95,
			signals:    []string{"preorder"},
		},
		{
			name:       "nothing found",
			data:       ProductData{Variants: soldOut, Tags: []string{"ceremonial"}},
			page:       staticPage("Sold out"),
			status:     StatusOutOfStock,
			confidence: 0.9,
			signals:    []string{"no pre-order indicator found"},
		},
		{
			name:       "nil fetcher",
			data:       ProductData{Variants: soldOut},
			status:     StatusOutOfStock,
			confidence: 0.9,
			signals:    []string{"page check failed: no page fetcher", "no pre-order indicator found"},
		},
		{
			name: "fetch failure",
			data: ProductData{Variants: soldOut},
			page: PageFetcherFunc(func(ctx context.Context) (PageSignals, error) {
				return PageSignals{}, errors.New("timeout")
			}),
			status:     StatusOutOfStock,
			confidence: 0.9,
			signals:    []string{"page check failed: timeout", "no pre-order indicator found"},
		},
		{
			name: "fetch failure with tag match",
			data: ProductData{Variants: soldOut, Tags: []string{"notify me"}},
			page: PageFetcherFunc(func(ctx context.Context) (PageSignals, error) {
				return PageSignals{}, errors.New("timeout")
			}),
			status:     StatusPreOrder,
			confidence: 0.95,
			signals:    []string{"notify me"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(context.Background(), tt.data, tt.page)
			if res.Status != tt.status {
				t.Errorf("status got %s, want %s", res.Status, tt.status)
			}
			if res.Confidence != tt.confidence {
				t.Errorf("confidence got %v, want %v", res.Confidence, tt.confidence)
			}
			if !reflect.DeepEqual(res.Signals, tt.signals) {
				t.Errorf("signals got %q, want %q", res.Signals, tt.signals)
			}
			if len(res.Inventory) != len(tt.data.Variants) {
				t.Errorf("inventory got %d entries, want %d", len(res.Inventory), len(tt.data.Variants))
			}
			if res.Status.InStock() {
				t.Error("unavailable product reported in stock")
			}
		})
	}
}

func TestInspectPage(t *testing.T) {
	doc := `<html><head><title>Ummon 20g</title><script>var x = "pre-order";</script></head>
<body>
  <h1>Ummon</h1>
  <p>  Expected in stock on 2025-09-01 </p>
  <button class="btn">Notify me</button>
  <a href="/cart">Cart</a>
  <input type="submit" value="Email when available">
  <input type="text" value="ignored">
  <div aria-label="Back in stock alert"></div>
  <style>.x{}</style>
</body></html>`

	ps, err := InspectPage(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(ps.Text, "var x") {
		t.Errorf("script text leaked into page text: %q", ps.Text)
	}
	if !strings.Contains(ps.Text, "Ummon") || !strings.Contains(ps.Text, "Expected in stock on 2025-09-01") {
		t.Errorf("missing visible text: %q", ps.Text)
	}
	wantLabels := []string{"Notify me", "Cart", "Email when available", "Back in stock alert"}
	if !reflect.DeepEqual(ps.Labels, wantLabels) {
		t.Errorf("labels got %q, want %q", ps.Labels, wantLabels)
	}

	kws, expected := FindPreOrder(ps)
	wantKws := []string{"expected in stock", "email when available", "back in stock", "notify me"}
	if !reflect.DeepEqual(kws, wantKws) {
		t.Errorf("keywords got %q, want %q", kws, wantKws)
	}
	if expected != "2025-09-01" {
		t.Errorf("expected date got %q", expected)
	}
}

func TestFindPreOrderExpectedForms(t *testing.T) {
	tests := map[string]string{
		"Expected in stock: late August":      "late August",
		"expected in stock by March 3, 2026!": "March 3, 2026",
		"Expected in stock only online":       "",
		"Back soon":                           "",
	}
	for text, want := range tests {
		_, got := FindPreOrder(PageSignals{Text: text})
		if got != want {
			t.Errorf("FindPreOrder(%q) expected date got %q, want %q", text, got, want)
		}
	}
}
