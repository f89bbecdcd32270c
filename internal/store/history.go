package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lukman83/matcha-stock/internal/models"
)

// RecordCheck appends a stock check. A missing ID is filled with a UUIDv7 so
// that IDs sort in insertion order, and a zero CheckedAt with the current time.
func (s *Store) RecordCheck(ctx context.Context, c models.StockCheck) (models.StockCheck, error) {
	if c.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return c, fmt.Errorf("new check id: %w", err)
		}
		c.ID = id.String()
	}
	if c.CheckedAt.IsZero() {
		c.CheckedAt = time.Now()
	}
	c.CheckedAt = c.CheckedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO stock_history (id, product_id, in_stock, status, confidence, checked_at)
		VALUES (:id, :product_id, :in_stock, :status, :confidence, :checked_at)`, c)
	if err != nil {
		return c, fmt.Errorf("record check for %s: %w", c.ProductID, err)
	}
	return c, nil
}

// ChecksSince returns every check strictly after since, newest first per product.
func (s *Store) ChecksSince(ctx context.Context, since time.Time) ([]models.StockCheck, error) {
	var out []models.StockCheck
	err := s.db.SelectContext(ctx, &out, s.rebind(`SELECT id, product_id, in_stock, status, confidence, checked_at
		FROM stock_history
		WHERE checked_at > ?
		ORDER BY product_id, checked_at DESC, id DESC`), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("checks since %s: %w", since.Format(time.RFC3339), err)
	}
	return out, nil
}

// LatestStatuses returns every product of a brand with its most recent check.
// Products never checked carry nil check fields.
func (s *Store) LatestStatuses(ctx context.Context, brandID string) ([]models.ProductStatus, error) {
	var out []models.ProductStatus
	err := s.db.SelectContext(ctx, &out, s.rebind(`SELECT `+productColumns+`, b.name AS brand_name, b.website AS brand_website,
		h.id AS check_id, h.in_stock, h.status, h.confidence, h.checked_at
		FROM products p
		JOIN brands b ON b.id = p.brand_id
		LEFT JOIN stock_history h ON h.id = (
			SELECT h2.id FROM stock_history h2
			WHERE h2.product_id = p.id
			ORDER BY h2.checked_at DESC, h2.id DESC
			LIMIT 1
		)
		WHERE p.brand_id = ?
		ORDER BY p.name`), brandID)
	if err != nil {
		return nil, fmt.Errorf("latest statuses of brand %s: %w", brandID, err)
	}
	return out, nil
}
