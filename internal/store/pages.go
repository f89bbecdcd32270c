package store

import (
	"context"
	"fmt"

	"github.com/lukman83/matcha-stock/internal/models"
)

func (s *Store) MonitoredPage(ctx context.Context, productID string) (models.MonitoredPage, error) {
	var p models.MonitoredPage
	err := s.db.GetContext(ctx, &p, s.rebind(`SELECT product_id, url, content_hash, checked_at, changed_at
		FROM monitored_pages WHERE product_id = ?`), productID)
	if err != nil {
		return p, notFound(err, fmt.Sprintf("monitored page of %s", productID))
	}
	return p, nil
}

// SaveMonitoredPage inserts or replaces the change-detection state of a page.
func (s *Store) SaveMonitoredPage(ctx context.Context, p models.MonitoredPage) error {
	p.CheckedAt = p.CheckedAt.UTC()
	if p.ChangedAt != nil {
		t := p.ChangedAt.UTC()
		p.ChangedAt = &t
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO monitored_pages (product_id, url, content_hash, checked_at, changed_at)
		VALUES (:product_id, :url, :content_hash, :checked_at, :changed_at)
		ON CONFLICT (product_id) DO UPDATE SET
			url = excluded.url,
			content_hash = excluded.content_hash,
			checked_at = excluded.checked_at,
			changed_at = excluded.changed_at`, p)
	if err != nil {
		return fmt.Errorf("save monitored page %s: %w", p.ProductID, err)
	}
	return nil
}
