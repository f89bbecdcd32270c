package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lukman83/matcha-stock/internal/models"
)

func (s *Store) Brands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	err := s.db.SelectContext(ctx, &brands, `SELECT id, name, website, created_at FROM brands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return brands, nil
}

func (s *Store) BrandByName(ctx context.Context, name string) (models.Brand, error) {
	var b models.Brand
	err := s.db.GetContext(ctx, &b, s.rebind(`SELECT id, name, website, created_at FROM brands WHERE name = ?`), name)
	if err != nil {
		return b, notFound(err, fmt.Sprintf("brand %q", name))
	}
	return b, nil
}

func (s *Store) CreateBrand(ctx context.Context, name, website string) (models.Brand, error) {
	b := models.Brand{
		ID:        uuid.NewString(),
		Name:      name,
		Website:   website,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO brands (id, name, website, created_at)
		VALUES (:id, :name, :website, :created_at)`, b)
	if err != nil {
		return models.Brand{}, fmt.Errorf("create brand %q: %w", name, err)
	}
	return b, nil
}

// RenameBrand changes a brand's display name.
func (s *Store) RenameBrand(ctx context.Context, from, to string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE brands SET name = ? WHERE name = ?`), to, from)
	if err != nil {
		return fmt.Errorf("rename brand %q: %w", from, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("brand %q: %w", from, ErrNotFound)
	}
	return nil
}

// BrandSummaries lists brands with their product and active subscription counts.
func (s *Store) BrandSummaries(ctx context.Context) ([]models.BrandSummary, error) {
	var out []models.BrandSummary
	err := s.db.SelectContext(ctx, &out, s.rebind(`SELECT b.id, b.name, b.website, b.created_at,
		(SELECT COUNT(*) FROM products p WHERE p.brand_id = b.id) AS product_count,
		(SELECT COUNT(*) FROM brand_subscriptions bs WHERE bs.brand_id = b.id AND bs.active = ?) AS subscription_count
		FROM brands b
		ORDER BY b.name`), true)
	if err != nil {
		return nil, fmt.Errorf("brand summaries: %w", err)
	}
	return out, nil
}
