package classifier

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// PageSignals is what a rendered product page says about itself.
type PageSignals struct {
	Text   string
	Labels []string
}

var pageKeywords = []string{
	"pre-order",
	"preorder",
	"expected in stock",
	"notify me when",
	"email when available",
	"back in stock",
	"notify me",
}

var expectedDateRe = regexp.MustCompile(`(?i)expected\s+in\s+stock\s*(?:by\b|on\b|:)\s*([^\n.!|]{2,40})`)

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// InspectPage extracts the visible text and control labels from HTML.
func InspectPage(r io.Reader) (PageSignals, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return PageSignals{}, fmt.Errorf("parse page: %w", err)
	}
	var text, labels []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if label := attr(n, "aria-label"); label != "" {
				labels = append(labels, label)
			}
			switch n.Data {
			case "button", "a":
				if label := nodeText(n, " "); label != "" {
					labels = append(labels, label)
				}
			case "input":
				switch strings.ToLower(attr(n, "type")) {
				case "submit", "button":
					if v := attr(n, "value"); v != "" {
						labels = append(labels, v)
					}
				}
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				text = append(text, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return PageSignals{Text: strings.Join(text, "\n"), Labels: labels}, nil
}

// FindPreOrder reports the pre-order keywords present in the page and the
// expected restock date, if the page states one.
func FindPreOrder(ps PageSignals) (keywords []string, expected string) {
	haystack := ps.Text + "\n" + strings.Join(ps.Labels, "\n")
	keywords = matchKeywords(haystack, pageKeywords)
	if m := expectedDateRe.FindStringSubmatch(ps.Text); m != nil {
		expected = strings.TrimSpace(m[1])
	}
	return keywords, expected
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// nodeText joins the trimmed text nodes under n, skipping non-visible elements.
func nodeText(n *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

// NodeText returns the visible text under n, each text node trimmed and
// joined with sep.
func NodeText(n *html.Node, sep string) string { return nodeText(n, sep) }

// Attr returns the trimmed value of an attribute, or "".
func Attr(n *html.Node, key string) string { return attr(n, key) }
