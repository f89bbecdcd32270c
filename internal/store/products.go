package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lukman83/matcha-stock/internal/models"
)

const productColumns = `p.id, p.brand_id, p.name, p.weight, p.price, p.url, p.image_url, p.created_at, p.updated_at`

func (s *Store) ProductsByBrand(ctx context.Context, brandID string) ([]models.Product, error) {
	var out []models.Product
	err := s.db.SelectContext(ctx, &out, s.rebind(`SELECT `+productColumns+`, b.name AS brand_name, b.website AS brand_website
		FROM products p JOIN brands b ON b.id = p.brand_id
		WHERE p.brand_id = ?
		ORDER BY p.name`), brandID)
	if err != nil {
		return nil, fmt.Errorf("products of brand %s: %w", brandID, err)
	}
	return out, nil
}

func (s *Store) ProductByURL(ctx context.Context, url string) (models.Product, error) {
	var p models.Product
	err := s.db.GetContext(ctx, &p, s.rebind(`SELECT `+productColumns+`, b.name AS brand_name, b.website AS brand_website
		FROM products p JOIN brands b ON b.id = p.brand_id
		WHERE p.url = ?
		ORDER BY p.created_at
		LIMIT 1`), url)
	if err != nil {
		return p, notFound(err, fmt.Sprintf("product %s", url))
	}
	return p, nil
}

func (s *Store) ProductByName(ctx context.Context, brandID, name string) (models.Product, error) {
	var p models.Product
	err := s.db.GetContext(ctx, &p, s.rebind(`SELECT `+productColumns+`, b.name AS brand_name, b.website AS brand_website
		FROM products p JOIN brands b ON b.id = p.brand_id
		WHERE p.brand_id = ? AND p.name = ?`), brandID, name)
	if err != nil {
		return p, notFound(err, fmt.Sprintf("product %q", name))
	}
	return p, nil
}

// UpsertProduct inserts a product or refreshes the attributes of the
// existing product with the same brand and name. It returns the product id.
func (s *Store) UpsertProduct(ctx context.Context, brandID string, sp models.ScrapedProduct) (string, error) {
	now := time.Now().UTC()
	var id string
	err := s.db.QueryRowxContext(ctx, s.rebind(`INSERT INTO products
		(id, brand_id, name, weight, price, url, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (brand_id, name) DO UPDATE SET
			weight = excluded.weight,
			price = excluded.price,
			url = excluded.url,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at
		RETURNING id`),
		uuid.NewString(), brandID, sp.Name, sp.Weight, sp.Price, sp.URL, sp.ImageURL, now, now,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert product %q: %w", sp.Name, err)
	}
	return id, nil
}

// CreateProduct adds a product under a brand.
func (s *Store) CreateProduct(ctx context.Context, brandID, name, url string) (models.Product, error) {
	now := time.Now().UTC()
	p := models.Product{
		ID:        uuid.NewString(),
		BrandID:   brandID,
		Name:      name,
		URL:       url,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO products (id, brand_id, name, url, created_at, updated_at)
		VALUES (:id, :brand_id, :name, :url, :created_at, :updated_at)`, p)
	if err != nil {
		return models.Product{}, fmt.Errorf("create product %q: %w", name, err)
	}
	return p, nil
}

// ProductsWithBrand loads products by id joined with their brand.
func (s *Store) ProductsWithBrand(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+productColumns+`, b.name AS brand_name, b.website AS brand_website
		FROM products p JOIN brands b ON b.id = p.brand_id
		WHERE p.id IN (?)
		ORDER BY p.name`, ids)
	if err != nil {
		return nil, err
	}
	var out []models.Product
	if err := s.db.SelectContext(ctx, &out, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("products with brand: %w", err)
	}
	return out, nil
}
