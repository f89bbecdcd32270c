package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/lukman83/matcha-stock/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const noPrice = "Check website for pricing"

// FormatPrice renders a price as "$12.34".
func FormatPrice(price *float64) string {
	if price == nil {
		return noPrice
	}
	return fmt.Sprintf("$%.2f", *price)
}

type productView struct {
	Subject        string
	Brand          string
	Name           string
	Weight         string
	Price          string
	URL            string
	ImageURL       string
	UnsubscribeURL string
}

type brandView struct {
	Subject        string
	Brand          string
	Website        string
	Count          int
	Noun           string
	Products       []productView
	UnsubscribeURL string
}

func viewOf(p models.Product) productView {
	v := productView{
		Brand: p.BrandName,
		Name:  p.Name,
		Price: FormatPrice(p.Price),
		URL:   p.URL,
	}
	if p.Weight != nil {
		v.Weight = *p.Weight
	}
	if p.ImageURL != nil {
		v.ImageURL = *p.ImageURL
	}
	return v
}

// ProductSubject is the subject line of a single product restock email.
func ProductSubject(p models.Product) string {
	s := fmt.Sprintf("🍵 %s %s", p.BrandName, p.Name)
	if p.Weight != nil && *p.Weight != "" {
		s += " - " + *p.Weight
	}
	return s + " is back in stock!"
}

// BrandSubject is the subject line of a brand digest email.
func BrandSubject(brand string, count int) string {
	return fmt.Sprintf("🍵 %s has %d matcha %s back in stock!", brand, count, productNoun(count))
}

// SMSBody is the text of a restock SMS.
func SMSBody(p models.Product) string {
	return fmt.Sprintf("🍵 Good news! %s's %s is back in stock! Check it out soon before it sells out again.", p.BrandName, p.Name)
}

func productNoun(n int) string {
	if n == 1 {
		return "product"
	}
	return "products"
}

// RenderProductEmail builds the subject, HTML and plain-text bodies for one product.
func RenderProductEmail(p models.Product, unsubscribeURL string) (subject, html, text string, err error) {
	v := viewOf(p)
	v.Subject = ProductSubject(p)
	v.UnsubscribeURL = unsubscribeURL

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "product.html", v); err != nil {
		return "", "", "", fmt.Errorf("render product email: %w", err)
	}

	var tb strings.Builder
	fmt.Fprintf(&tb, "Good news! %s %s", v.Brand, v.Name)
	if v.Weight != "" {
		fmt.Fprintf(&tb, " (%s)", v.Weight)
	}
	fmt.Fprintf(&tb, " is back in stock.\n\nPrice: %s\nBuy now: %s\n\nUnsubscribe: %s\n", v.Price, v.URL, unsubscribeURL)
	return v.Subject, buf.String(), tb.String(), nil
}

// RenderBrandEmail builds the digest email listing every restocked product of a brand.
func RenderBrandEmail(b models.BrandRestock, unsubscribeURL string) (subject, html, text string, err error) {
	v := brandView{
		Subject:        BrandSubject(b.BrandName, len(b.Products)),
		Brand:          b.BrandName,
		Website:        b.BrandWebsite,
		Count:          len(b.Products),
		Noun:           productNoun(len(b.Products)),
		UnsubscribeURL: unsubscribeURL,
	}
	for _, r := range b.Products {
		v.Products = append(v.Products, viewOf(r.Product))
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "brand.html", v); err != nil {
		return "", "", "", fmt.Errorf("render brand email: %w", err)
	}

	var tb strings.Builder
	fmt.Fprintf(&tb, "Great news! %s has restocked %d matcha %s.\n\n", v.Brand, v.Count, v.Noun)
	for _, p := range v.Products {
		fmt.Fprintf(&tb, "- %s", p.Name)
		if p.Weight != "" {
			fmt.Fprintf(&tb, " - %s", p.Weight)
		}
		fmt.Fprintf(&tb, ": %s\n  %s\n", p.Price, p.URL)
	}
	fmt.Fprintf(&tb, "\nUnsubscribe: %s\n", unsubscribeURL)
	return v.Subject, buf.String(), tb.String(), nil
}
