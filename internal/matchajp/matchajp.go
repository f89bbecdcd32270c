// Package matchajp reads the Koyamaen matcha collection on matchajp.net.
package matchajp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/httputil"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/lukman83/matcha-stock/internal/platform"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	DefaultCollectionURL = "https://www.matchajp.net/collections/koyamaen-matcha-powder"
	DefaultPages         = 5
	BrandName            = "MatchaJP - Koyamaen"
)

var (
	priceRe  = regexp.MustCompile(`\$?\s*([\d.,]+)`)
	dollarRe = regexp.MustCompile(`\$\s*\d`)
	weightRe = regexp.MustCompile(`(?i)(\d+)\s*g\b`)
)

// Scraper walks the collection pages one after another.
type Scraper struct {
	client     *http.Client
	collection string
	pages      int
	logger     *zap.SugaredLogger
}

func NewScraper(client *http.Client, collectionURL string, pages int, logger *zap.SugaredLogger) *Scraper {
	if collectionURL == "" {
		collectionURL = DefaultCollectionURL
	}
	if pages <= 0 {
		pages = DefaultPages
	}
	return &Scraper{client: client, collection: collectionURL, pages: pages, logger: logger}
}

func (s *Scraper) Name() string { return "matchajp" }

// Catalog returns the products listed on pages 1..N, deduplicated by URL.
// A page that fails to load is logged and skipped.
func (s *Scraper) Catalog(ctx context.Context) ([]models.ScrapedProduct, error) {
	seen := make(map[string]bool)
	var out []models.ScrapedProduct
	failed := 0

	for page := 1; page <= s.pages; page++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		pageURL := fmt.Sprintf("%s?page=%d", s.collection, page)
		platform.ReportProgress(ctx, "Scraping collection page %d of %d", page, s.pages)

		body, err := httputil.Fetch(ctx, s.client, pageURL, httputil.BrowserHeaders())
		if err != nil {
			failed++
			s.logger.Warnw("collection page failed", "page", page, "error", err)
			continue
		}
		products, err := ParseCollection(bytes.NewReader(body), pageURL)
		if err != nil {
			failed++
			s.logger.Warnw("collection page unreadable", "page", page, "error", err)
			continue
		}

		added := 0
		for _, p := range products {
			if seen[p.URL] {
				continue
			}
			seen[p.URL] = true
			out = append(out, p)
			added++
		}
		s.logger.Infow("collection page scraped", "page", page, "products", len(products), "new", added)
	}

	if failed == s.pages {
		return nil, fmt.Errorf("all %d collection pages failed", s.pages)
	}
	return out, nil
}

// ParseCollection extracts product cards from a collection page. Relative
// links are resolved against pageURL.
func ParseCollection(r io.Reader, pageURL string) ([]models.ScrapedProduct, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}

	seen := make(map[string]bool)
	var out []models.ScrapedProduct
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := classifier.Attr(n, "href")
			if strings.Contains(href, "/products/") {
				if p, ok := parseCard(n, base); ok && !seen[p.URL] {
					seen[p.URL] = true
					out = append(out, p)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func parseCard(link *html.Node, base *url.URL) (models.ScrapedProduct, bool) {
	ref, err := url.Parse(classifier.Attr(link, "href"))
	if err != nil {
		return models.ScrapedProduct{}, false
	}
	abs := base.ResolveReference(ref)
	abs.RawQuery = ""
	abs.Fragment = ""

	card := link.Parent
	if card == nil {
		card = link
	}

	name := classifier.NodeText(link, " ")
	if len(name) < 3 {
		name = cardTitle(card)
	}
	if len(name) < 3 {
		return models.ScrapedProduct{}, false
	}

	p := models.ScrapedProduct{Name: name, URL: abs.String()}
	if price, ok := cardPrice(card); ok {
		p.Price = &price
	}
	if img := cardImage(card); img != "" {
		p.ImageURL = &img
	}
	if m := weightRe.FindStringSubmatch(name); m != nil {
		w := m[1] + "g"
		p.Weight = &w
	}

	signals := classifier.InspectNode(card)
	if reason, soldOut := classifier.SoldOut(signals); soldOut {
		p.Reason = reason
	} else {
		p.InStock = true
		p.Reason = "no sold out marker on card"
	}
	return p, true
}

func cardTitle(card *html.Node) string {
	var title string
	find(card, func(n *html.Node) bool {
		switch {
		case n.Data == "h3", n.Data == "h2", n.Data == "h4", hasClass(n, "product-title"):
			if t := classifier.NodeText(n, " "); t != "" {
				title = t
				return true
			}
		}
		return false
	})
	return title
}

func cardPrice(card *html.Node) (float64, bool) {
	var text string
	find(card, func(n *html.Node) bool {
		if (n.Data == "span" && (hasClass(n, "price-item") || hasClass(n, "price"))) || (n.Data == "div" && hasClass(n, "price")) {
			text = classifier.NodeText(n, " ")
			return text != ""
		}
		return false
	})
	if text == "" {
		text = firstText(card, func(s string) bool { return dollarRe.MatchString(s) })
	}
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

func cardImage(card *html.Node) string {
	var src string
	find(card, func(n *html.Node) bool {
		if n.Data == "img" {
			src = classifier.Attr(n, "src")
			if src == "" {
				src = classifier.Attr(n, "data-src")
			}
			return src != ""
		}
		return false
	})
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	return src
}

// find visits the element nodes under root depth-first until match returns true.
func find(root *html.Node, match func(*html.Node) bool) bool {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return true
		}
		if find(c, match) {
			return true
		}
	}
	return false
}

func firstText(root *html.Node, match func(string) bool) string {
	var out string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); match(t) {
				out = t
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(classifier.Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
