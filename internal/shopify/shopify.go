// Package shopify checks products on Shopify storefronts through their
// public product JSON.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/httputil"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/lukman83/matcha-stock/internal/platform"
)

// ProductJSONURL derives the /products/<handle>.json endpoint from a product
// page URL, including the /collections/<c>/products/<handle> form.
func ProductJSONURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse product url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("product url %q is not absolute", pageURL)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "products" && segments[i+1] != "" {
			handle := strings.TrimSuffix(segments[i+1], ".json")
			handle = strings.TrimSuffix(handle, ".js")
			prefix := strings.Join(segments[:i], "/")
			// Keep a locale prefix such as /en or /ja; drop collection paths.
			if len(segments[:i]) >= 2 && segments[i-2] == "collections" {
				prefix = strings.Join(segments[:i-2], "/")
			}
			path := "/products/" + handle + ".json"
			if prefix != "" {
				path = "/" + prefix + path
			}
			return u.Scheme + "://" + u.Host + path, nil
		}
	}
	return "", fmt.Errorf("product url %q has no /products/<handle> segment", pageURL)
}

type productEnvelope struct {
	Product productJSON `json:"product"`
}

type productJSON struct {
	ID          json.Number     `json:"id"`
	Title       string          `json:"title"`
	BodyHTML    string          `json:"body_html"`
	ProductType string          `json:"product_type"`
	Tags        json.RawMessage `json:"tags"`
	Variants    []variantJSON   `json:"variants"`
}

type variantJSON struct {
	ID                json.Number `json:"id"`
	Title             string      `json:"title"`
	Price             string      `json:"price"`
	Available         *bool       `json:"available"`
	InventoryQuantity *int        `json:"inventory_quantity"`
}

// parseTags accepts Shopify's comma-separated tag string as well as a JSON list.
func parseTags(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil
		}
		list = strings.Split(joined, ",")
	}
	tags := make([]string, 0, len(list))
	for _, t := range list {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// DecodeProduct turns a product JSON document into classifier input. A
// variant without an availability flag counts as available when it has
// stock on hand.
func DecodeProduct(body []byte) (classifier.ProductData, error) {
	var env productEnvelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return classifier.ProductData{}, fmt.Errorf("decode product json: %w", err)
	}
	p := env.Product

	data := classifier.ProductData{
		Tags:        parseTags(p.Tags),
		ProductType: p.ProductType,
	}
	if p.BodyHTML != "" {
		if ps, err := classifier.InspectPage(strings.NewReader(p.BodyHTML)); err == nil {
			data.Description = ps.Text
		}
	}
	for _, v := range p.Variants {
		qty := 0
		if v.InventoryQuantity != nil {
			qty = *v.InventoryQuantity
		}
		available := qty > 0
		if v.Available != nil {
			available = *v.Available
		}
		data.Variants = append(data.Variants, classifier.Variant{
			ID:                v.ID.String(),
			Title:             v.Title,
			Available:         available,
			InventoryQuantity: qty,
			Price:             v.Price,
		})
	}
	return data, nil
}

// Client fetches product data and pages from Shopify storefronts.
type Client struct {
	http *http.Client
}

func NewClient(client *http.Client) *Client {
	return &Client{http: client}
}

// Product fetches and decodes the product JSON behind a product page URL.
func (c *Client) Product(ctx context.Context, pageURL string) (classifier.ProductData, error) {
	jsonURL, err := ProductJSONURL(pageURL)
	if err != nil {
		return classifier.ProductData{}, err
	}
	body, err := httputil.Fetch(ctx, c.http, jsonURL, httputil.JSONHeaders(pageURL))
	if err != nil {
		return classifier.ProductData{}, err
	}
	return DecodeProduct(body)
}

// Page fetches the product page and extracts its text and control labels.
func (c *Client) Page(ctx context.Context, pageURL string) (classifier.PageSignals, error) {
	body, err := httputil.Fetch(ctx, c.http, pageURL, httputil.BrowserHeaders())
	if err != nil {
		return classifier.PageSignals{}, err
	}
	return classifier.InspectPage(bytes.NewReader(body))
}

// Checker classifies Shopify products from their variants, falling back to
// the product page for pre-order hints.
type Checker struct {
	client *Client
}

func NewChecker(client *http.Client) *Checker {
	return &Checker{client: NewClient(client)}
}

func (c *Checker) Name() string { return "shopify" }

func (c *Checker) Check(ctx context.Context, p models.Product) (classifier.Result, error) {
	platform.ReportProgress(ctx, "Fetching product data for %s", p.Name)
	data, err := c.client.Product(ctx, p.URL)
	if err != nil {
		return classifier.Failed(err), err
	}

	page := classifier.PageFetcherFunc(func(ctx context.Context) (classifier.PageSignals, error) {
		platform.ReportProgress(ctx, "No variant available, checking the product page")
		return c.client.Page(ctx, p.URL)
	})
	return classifier.Classify(ctx, data, page), nil
}
