// Package scrape runs the batch jobs that check stored products and sync
// collection catalogs into the database.
package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/lukman83/matcha-stock/internal/platform"
	"github.com/lukman83/matcha-stock/internal/store"
	"go.uber.org/zap"
)

type Store interface {
	Brands(ctx context.Context) ([]models.Brand, error)
	BrandByName(ctx context.Context, name string) (models.Brand, error)
	CreateBrand(ctx context.Context, name, website string) (models.Brand, error)
	ProductsByBrand(ctx context.Context, brandID string) ([]models.Product, error)
	UpsertProduct(ctx context.Context, brandID string, sp models.ScrapedProduct) (string, error)
	RecordCheck(ctx context.Context, c models.StockCheck) (models.StockCheck, error)
}

// Resolver finds the checker responsible for a brand.
type Resolver func(brand string) (platform.Checker, bool)

// Summary counts what a run did. Failed counts products whose check or
// write failed; they are still included in Products.
type Summary struct {
	Brands   int `json:"brands"`
	Products int `json:"products"`
	InStock  int `json:"in_stock"`
	Recorded int `json:"recorded"`
	Failed   int `json:"failed"`
}

type Runner struct {
	store   Store
	resolve Resolver
	logger  *zap.SugaredLogger
}

func NewRunner(st Store, resolve Resolver, logger *zap.SugaredLogger) *Runner {
	if resolve == nil {
		resolve = platform.ForBrand
	}
	return &Runner{store: st, resolve: resolve, logger: logger}
}

// CheckBrands checks every product of the named brands one at a time and
// records a check for each. With no names every brand that has a checker is
// processed. A failed check is recorded with the out-of-stock fallback result.
func (r *Runner) CheckBrands(ctx context.Context, names []string) (Summary, error) {
	brands, err := r.selectBrands(ctx, names)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, b := range brands {
		checker, ok := r.resolve(b.Name)
		if !ok {
			r.logger.Infow("no checker for brand, skipping", "brand", b.Name)
			continue
		}
		products, err := r.store.ProductsByBrand(ctx, b.ID)
		if err != nil {
			r.logger.Errorw("load products failed", "brand", b.Name, "error", err)
			continue
		}
		sum.Brands++
		r.logger.Infow("checking brand", "brand", b.Name, "checker", checker.Name(), "products", len(products))

		for _, p := range products {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			sum.Products++
			res, err := checker.Check(ctx, p)
			if err != nil {
				sum.Failed++
				if res.Status == "" {
					res = classifier.Failed(err)
				}
				r.logger.Warnw("check failed", "brand", b.Name, "product", p.Name, "error", err)
			}
			if r.record(ctx, p.ID, res) {
				sum.Recorded++
			} else if err == nil {
				sum.Failed++
			}
			if res.Status.InStock() {
				sum.InStock++
			}
		}
	}
	return sum, nil
}

// SyncCatalog scrapes a collection, upserts every listed product under the
// brand (created when missing) and records a check per product.
func (r *Runner) SyncCatalog(ctx context.Context, brandName, website string, cat platform.Cataloger) (Summary, error) {
	brand, err := r.store.BrandByName(ctx, brandName)
	if errors.Is(err, store.ErrNotFound) {
		brand, err = r.store.CreateBrand(ctx, brandName, website)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("brand %q: %w", brandName, err)
	}

	scraped, err := cat.Catalog(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("catalog %s: %w", cat.Name(), err)
	}

	sum := Summary{Brands: 1}
	for _, sp := range scraped {
		sum.Products++
		id, err := r.store.UpsertProduct(ctx, brand.ID, sp)
		if err != nil {
			sum.Failed++
			r.logger.Errorw("save product failed", "brand", brandName, "product", sp.Name, "error", err)
			continue
		}
		res := classifier.ListingDecision{InStock: sp.InStock, Reason: sp.Reason, Matched: true}.Result()
		if r.record(ctx, id, res) {
			sum.Recorded++
		} else {
			sum.Failed++
		}
		if sp.InStock {
			sum.InStock++
		}
	}
	r.logger.Infow("catalog synced",
		"brand", brandName,
		"products", sum.Products,
		"in_stock", sum.InStock,
		"failed", sum.Failed,
	)
	return sum, nil
}

func (r *Runner) record(ctx context.Context, productID string, res classifier.Result) bool {
	check, err := r.store.RecordCheck(ctx, models.StockCheck{
		ProductID:  productID,
		InStock:    res.Status.InStock(),
		Status:     string(res.Status),
		Confidence: res.Confidence,
	})
	if err != nil {
		r.logger.Errorw("record check failed", "product", productID, "error", err)
		return false
	}
	r.logger.Debugw("check recorded",
		"product", productID,
		"status", check.Status,
		"confidence", check.Confidence,
	)
	return true
}

func (r *Runner) selectBrands(ctx context.Context, names []string) ([]models.Brand, error) {
	if len(names) == 0 {
		return r.store.Brands(ctx)
	}
	var out []models.Brand
	for _, name := range names {
		b, err := r.store.BrandByName(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
