package classifier

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ListingSignals are the lowercased markers a storefront page exposes
// around its purchase controls.
type ListingSignals struct {
	Title   string
	Text    string
	Classes []string
	Buttons []string
	Inputs  []ListingInput
	Selects []string
}

type ListingInput struct {
	Type  string
	Name  string
	Value string
}

// ListingDecision is the outcome of the keyword classifier.
type ListingDecision struct {
	InStock bool
	Reason  string
	// Matched is false when no indicator was found and the default applied.
	Matched bool
}

const (
	confidenceListingMatched = 0.8
	confidenceListingDefault = 0.5
)

// Result converts the decision into a classification result.
func (d ListingDecision) Result() Result {
	res := Result{Status: StatusOutOfStock, Signals: []string{d.Reason}, Confidence: confidenceListingDefault}
	if d.InStock {
		res.Status = StatusInStock
	}
	if d.Matched {
		res.Confidence = confidenceListingMatched
	}
	return res
}

var soldOutPhrases = []string{
	"sold out",
	"out of stock",
	"temporarily unavailable",
	"not available",
	"unavailable",
	"在庫切れ",
	"売り切れ",
}

var (
	soldOutClassRe = regexp.MustCompile(`sold-out|sold_out|soldout|out-of-stock|unavailable|disabled|sold.*out`)
	addToCartRe    = regexp.MustCompile(`add.*cart|add.*bag`)
)

var restockPhrases = []string{"expected in stock", "back in stock", "notify me"}

// InspectListing parses a page and collects its listing signals.
func InspectListing(r io.Reader) (ListingSignals, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return ListingSignals{}, fmt.Errorf("parse page: %w", err)
	}
	return InspectNode(doc), nil
}

// InspectNode collects listing signals from the subtree rooted at n.
func InspectNode(n *html.Node) ListingSignals {
	var s ListingSignals
	var text []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				text = append(text, strings.ToLower(t))
			}
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			if class := attr(n, "class"); class != "" {
				s.Classes = append(s.Classes, strings.ToLower(class))
			}
			switch n.Data {
			case "title":
				s.Title = strings.ToLower(nodeText(n, " "))
			case "button":
				s.Buttons = append(s.Buttons, strings.ToLower(nodeText(n, " ")))
			case "input":
				s.Inputs = append(s.Inputs, ListingInput{
					Type:  strings.ToLower(attr(n, "type")),
					Name:  strings.ToLower(attr(n, "name")),
					Value: strings.ToLower(attr(n, "value")),
				})
			case "select":
				s.Selects = append(s.Selects, strings.ToLower(attr(n, "name")))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	s.Text = strings.Join(text, "\n")
	return s
}

// ClassifyListing applies the keyword rules in precedence order: sold-out
// markers, purchase controls, quantity selectors, restock notices. With no
// marker at all the product is treated as out of stock.
func ClassifyListing(s ListingSignals) ListingDecision {
	if reason, ok := SoldOut(s); ok {
		return ListingDecision{InStock: false, Reason: reason, Matched: true}
	}

	for _, b := range s.Buttons {
		if strings.Contains(b, "add to bag") || strings.Contains(b, "add to cart") {
			return ListingDecision{InStock: true, Reason: fmt.Sprintf("add to cart button %q", b), Matched: true}
		}
	}
	for _, in := range s.Inputs {
		if in.Type == "submit" && strings.Contains(in.Value, "add") {
			return ListingDecision{InStock: true, Reason: fmt.Sprintf("submit input %q", in.Value), Matched: true}
		}
	}
	for _, c := range s.Classes {
		if addToCartRe.MatchString(c) {
			return ListingDecision{InStock: true, Reason: fmt.Sprintf("add to cart class %q", c), Matched: true}
		}
	}

	for _, name := range s.Selects {
		if strings.Contains(name, "quantity") {
			return ListingDecision{InStock: true, Reason: "quantity selector", Matched: true}
		}
	}
	for _, in := range s.Inputs {
		if strings.Contains(in.Name, "quantity") {
			return ListingDecision{InStock: true, Reason: "quantity input", Matched: true}
		}
	}
	for _, c := range s.Classes {
		if strings.Contains(c, "quantity") {
			return ListingDecision{InStock: true, Reason: fmt.Sprintf("quantity class %q", c), Matched: true}
		}
	}

	for _, p := range restockPhrases {
		if strings.Contains(s.Text, p) {
			return ListingDecision{InStock: false, Reason: fmt.Sprintf("restock notice %q", p), Matched: true}
		}
	}

	return ListingDecision{InStock: false, Reason: "no indicator found"}
}

// SoldOut reports whether the signals carry a sold-out marker.
func SoldOut(s ListingSignals) (string, bool) {
	for _, p := range soldOutPhrases {
		if strings.Contains(s.Text, p) {
			return fmt.Sprintf("sold out text %q", p), true
		}
	}
	for _, c := range s.Classes {
		if m := soldOutClassRe.FindString(c); m != "" {
			return fmt.Sprintf("sold out class %q", m), true
		}
	}
	if strings.Contains(s.Title, "sold out") {
		return "sold out title", true
	}
	return "", false
}
