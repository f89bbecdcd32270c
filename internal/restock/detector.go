package restock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lukman83/matcha-stock/internal/models"
	"go.uber.org/zap"
)

// Store is the slice of persistence the detector reads from.
type Store interface {
	ChecksSince(ctx context.Context, since time.Time) ([]models.StockCheck, error)
	ProductsWithBrand(ctx context.Context, ids []string) ([]models.Product, error)
}

// Detector turns recent stock history into restock notifications.
type Detector struct {
	store    Store
	lookback time.Duration
	logger   *zap.SugaredLogger
}

func NewDetector(store Store, lookback time.Duration, logger *zap.SugaredLogger) *Detector {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Detector{store: store, lookback: lookback, logger: logger}
}

// Restocked returns the products that came back in stock within the
// lookback window ending at now, newest first.
func (d *Detector) Restocked(ctx context.Context, now time.Time) ([]models.Restock, error) {
	since := Window(now, d.lookback)
	checks, err := d.store.ChecksSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load stock history: %w", err)
	}

	transitions := Detect(checks, since)
	if len(transitions) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(transitions))
	for _, t := range transitions {
		ids = append(ids, t.ProductID)
	}
	products, err := d.store.ProductsWithBrand(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load restocked products: %w", err)
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	restocks := make([]models.Restock, 0, len(transitions))
	for _, t := range transitions {
		p, ok := byID[t.ProductID]
		if !ok {
			d.logger.Warnw("restocked product no longer exists", "product", t.ProductID)
			continue
		}
		restocks = append(restocks, models.Restock{
			Product:     p,
			Latest:      t.Latest,
			Previous:    t.Previous,
			RestockedAt: t.Latest.CheckedAt,
		})
	}
	d.logger.Infow("restock detection finished",
		"since", since,
		"checks", len(checks),
		"restocked", len(restocks),
	)
	return restocks, nil
}

// RestockedByBrand groups Restocked by brand. Brands are ordered by name and
// products by name within a brand.
func (d *Detector) RestockedByBrand(ctx context.Context, now time.Time) ([]models.BrandRestock, error) {
	restocks, err := d.Restocked(ctx, now)
	if err != nil {
		return nil, err
	}
	return GroupByBrand(restocks), nil
}

func GroupByBrand(restocks []models.Restock) []models.BrandRestock {
	index := make(map[string]int)
	var out []models.BrandRestock
	for _, r := range restocks {
		i, ok := index[r.Product.BrandID]
		if !ok {
			i = len(out)
			index[r.Product.BrandID] = i
			out = append(out, models.BrandRestock{
				BrandID:      r.Product.BrandID,
				BrandName:    r.Product.BrandName,
				BrandWebsite: r.Product.BrandWebsite,
			})
		}
		out[i].Products = append(out[i].Products, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].BrandName < out[j].BrandName })
	for _, b := range out {
		sort.Slice(b.Products, func(i, j int) bool { return b.Products[i].Product.Name < b.Products[j].Product.Name })
	}
	return out
}
