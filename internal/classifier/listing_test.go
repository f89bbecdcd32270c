package classifier

import (
	"strings"
	"testing"
)

func TestClassifyListing(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		inStock bool
		matched bool
	}{
		{
			name:    "sold out text wins over add to cart",
			html:    `<p>Sold out</p><button>Add to cart</button>`,
			inStock: false,
			matched: true,
		},
		{
			name:    "sold out class",
			html:    `<span class="product-form__inventory product-form__inventory--out sold_out">x</span><button>Add to bag</button>`,
			inStock: false,
			matched: true,
		},
		{
			name:    "japanese sold out",
			html:    `<span>売り切れ</span>`,
			inStock: false,
			matched: true,
		},
		{
			name:    "title sold out",
			html:    `<html><head><title>Sayaka - SOLD OUT</title></head><body><button>Add to bag</button></body></html>`,
			inStock: false,
			matched: true,
		},
		{
			name:    "add to bag button",
			html:    `<form><button type="submit"> Add to Bag </button></form>`,
			inStock: true,
			matched: true,
		},
		{
			name:    "submit input",
			html:    `<input type="submit" value="Add">`,
			inStock: true,
			matched: true,
		},
		{
			name:    "add to cart class",
			html:    `<div class="product-add-to-cart"></div>`,
			inStock: true,
			matched: true,
		},
		{
			name:    "quantity selector",
			html:    `<select name="Quantity"><option>1</option></select>`,
			inStock: true,
			matched: true,
		},
		{
			name:    "quantity class",
			html:    `<div class="quantity-picker"></div>`,
			inStock: true,
			matched: true,
		},
		{
			name:    "notify me",
			html:    `<p>Notify me when this returns</p>`,
			inStock: false,
			matched: true,
		},
		{
			name:    "nothing",
			html:    `<p>Ceremonial matcha from Uji</p>`,
			inStock: false,
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := InspectListing(strings.NewReader(tt.html))
			if err != nil {
				t.Fatal(err)
			}
			d := ClassifyListing(s)
			if d.InStock != tt.inStock {
				t.Errorf("in stock got %v, want %v (%s)", d.InStock, tt.inStock, d.Reason)
			}
			if d.Matched != tt.matched {
				t.Errorf("matched got %v, want %v (%s)", d.Matched, tt.matched, d.Reason)
			}
		})
	}
}

func TestListingDecisionResult(t *testing.T) {
	res := ListingDecision{InStock: true, Reason: "quantity selector", Matched: true}.Result()
	if res.Status != StatusInStock || res.Confidence != 0.8 {
		t.Errorf("got %s/%v", res.Status, res.Confidence)
	}

	res = ListingDecision{Reason: "no indicator found"}.Result()
	if res.Status != StatusOutOfStock || res.Confidence != 0.5 {
		t.Errorf("got %s/%v", res.Status, res.Confidence)
	}
	if len(res.Signals) != 1 || res.Signals[0] != "no indicator found" {
		t.Errorf("signals got %q", res.Signals)
	}
}
