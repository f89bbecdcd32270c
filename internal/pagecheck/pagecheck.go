// Package pagecheck classifies a product from its static HTML page using
// keyword and class-name markers.
package pagecheck

import (
	"bytes"
	"context"
	"net/http"

	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/httputil"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/lukman83/matcha-stock/internal/platform"
)

type Checker struct {
	client *http.Client
}

func NewChecker(client *http.Client) *Checker {
	return &Checker{client: client}
}

func (c *Checker) Name() string { return "page" }

func (c *Checker) Check(ctx context.Context, p models.Product) (classifier.Result, error) {
	platform.ReportProgress(ctx, "Fetching %s", p.URL)
	body, err := httputil.Fetch(ctx, c.client, p.URL, httputil.BrowserHeaders())
	if err != nil {
		return classifier.Failed(err), err
	}
	signals, err := classifier.InspectListing(bytes.NewReader(body))
	if err != nil {
		return classifier.Failed(err), err
	}
	return classifier.ClassifyListing(signals).Result(), nil
}
