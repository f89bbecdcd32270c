// Package pagemonitor watches a page that exposes no per-product stock
// markers and records an in-stock check whenever its product list changes.
package pagemonitor

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/httputil"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/lukman83/matcha-stock/internal/platform"
	"github.com/lukman83/matcha-stock/internal/store"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Outcome describes what a single monitor run observed.
type Outcome string

const (
	OutcomeInitial   Outcome = "initial"
	OutcomeChanged   Outcome = "changed"
	OutcomeUnchanged Outcome = "unchanged"
)

const changedConfidence = 0.6

type Store interface {
	MonitoredPage(ctx context.Context, productID string) (models.MonitoredPage, error)
	SaveMonitoredPage(ctx context.Context, p models.MonitoredPage) error
	RecordCheck(ctx context.Context, c models.StockCheck) (models.StockCheck, error)
}

type Monitor struct {
	client *http.Client
	store  Store
	logger *zap.SugaredLogger
	now    func() time.Time
}

func New(client *http.Client, st Store, logger *zap.SugaredLogger) *Monitor {
	return &Monitor{client: client, store: st, logger: logger, now: time.Now}
}

// Run fetches the page, hashes its product content and compares it with
// the stored hash. The first run only stores the hash. A changed hash is
// saved and recorded as an in-stock check for the product.
func (m *Monitor) Run(ctx context.Context, productID, url string) (Outcome, error) {
	platform.ReportProgress(ctx, "Fetching %s", url)
	body, err := httputil.Fetch(ctx, m.client, url, httputil.BrowserHeaders())
	if err != nil {
		return "", err
	}
	hash, err := ContentHash(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	prev, err := m.store.MonitoredPage(ctx, productID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := m.store.SaveMonitoredPage(ctx, models.MonitoredPage{
			ProductID:   productID,
			URL:         url,
			ContentHash: hash,
			CheckedAt:   now,
		}); err != nil {
			return "", err
		}
		m.logger.Infow("page baseline stored", "product", productID, "hash", hash)
		return OutcomeInitial, nil
	case err != nil:
		return "", err
	}

	if prev.ContentHash == hash {
		prev.CheckedAt = now
		prev.URL = url
		if err := m.store.SaveMonitoredPage(ctx, prev); err != nil {
			return "", err
		}
		m.logger.Infow("page unchanged", "product", productID)
		return OutcomeUnchanged, nil
	}

	if err := m.store.SaveMonitoredPage(ctx, models.MonitoredPage{
		ProductID:   productID,
		URL:         url,
		ContentHash: hash,
		CheckedAt:   now,
		ChangedAt:   &now,
	}); err != nil {
		return "", err
	}
	if _, err := m.store.RecordCheck(ctx, models.StockCheck{
		ProductID:  productID,
		InStock:    true,
		Status:     string(classifier.StatusInStock),
		Confidence: changedConfidence,
		CheckedAt:  now,
	}); err != nil {
		return "", err
	}
	m.logger.Infow("page changed", "product", productID, "previous", prev.ContentHash, "hash", hash)
	return OutcomeChanged, nil
}

// ContentHash returns the hex md5 of the visible text of the product list:
// the first div with class "products", else main, else the whole document.
func ContentHash(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	root := first(doc, func(n *html.Node) bool {
		if n.Data != "div" {
			return false
		}
		for _, c := range strings.Fields(classifier.Attr(n, "class")) {
			if c == "products" {
				return true
			}
		}
		return false
	})
	if root == nil {
		root = first(doc, func(n *html.Node) bool { return n.Data == "main" })
	}
	if root == nil {
		root = doc
	}
	sum := md5.Sum([]byte(classifier.NodeText(root, "")))
	return hex.EncodeToString(sum[:]), nil
}

func first(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := first(c, match); found != nil {
			return found
		}
	}
	return nil
}
