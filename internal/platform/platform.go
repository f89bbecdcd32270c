// Package platform holds the per-site integrations the runners dispatch to.
package platform

import (
	"context"

	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/models"
)

// Checker classifies the current availability of one tracked product.
// On error the returned result is still safe to record.
type Checker interface {
	Name() string
	Check(ctx context.Context, p models.Product) (classifier.Result, error)
}

// Cataloger lists every product a storefront collection currently shows.
type Cataloger interface {
	Name() string
	Catalog(ctx context.Context) ([]models.ScrapedProduct, error)
}
