package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lukman83/matcha-stock/internal/models"
)

// ProductSubscribers returns the recipients with an active subscription to a product.
func (s *Store) ProductSubscribers(ctx context.Context, productID string) ([]models.Subscriber, error) {
	var out []models.Subscriber
	err := s.db.SelectContext(ctx, &out, s.rebind(`SELECT ps.id AS subscription_id, u.id AS user_id,
		COALESCE(u.email, '') AS email, COALESCE(u.phone, '') AS phone
		FROM product_subscriptions ps
		JOIN users u ON u.id = ps.user_id
		WHERE ps.product_id = ? AND ps.active = ?
		ORDER BY ps.id`), productID, true)
	if err != nil {
		return nil, fmt.Errorf("subscribers of product %s: %w", productID, err)
	}
	return out, nil
}

// BrandSubscribers returns the recipients with an active subscription to a brand.
func (s *Store) BrandSubscribers(ctx context.Context, brandID string) ([]models.Subscriber, error) {
	var out []models.Subscriber
	err := s.db.SelectContext(ctx, &out, s.rebind(`SELECT bs.id AS subscription_id, u.id AS user_id,
		COALESCE(u.email, '') AS email, COALESCE(u.phone, '') AS phone
		FROM brand_subscriptions bs
		JOIN users u ON u.id = bs.user_id
		WHERE bs.brand_id = ? AND bs.active = ?
		ORDER BY bs.id`), brandID, true)
	if err != nil {
		return nil, fmt.Errorf("subscribers of brand %s: %w", brandID, err)
	}
	return out, nil
}

// SubscriptionKind names the table an unsubscribe applies to.
type SubscriptionKind string

const (
	KindProduct SubscriptionKind = "product"
	KindBrand   SubscriptionKind = "brand"
)

// Unsubscribe deactivates the subscriptions of email. With an empty targetID
// every subscription of the given kind is deactivated. It returns the number
// of subscriptions changed.
func (s *Store) Unsubscribe(ctx context.Context, email string, kind SubscriptionKind, targetID string) (int64, error) {
	var table, column string
	switch kind {
	case KindProduct:
		table, column = "product_subscriptions", "product_id"
	case KindBrand:
		table, column = "brand_subscriptions", "brand_id"
	default:
		return 0, fmt.Errorf("unknown subscription kind %q", kind)
	}

	query := `UPDATE ` + table + ` SET active = ?
		WHERE active = ? AND user_id IN (SELECT id FROM users WHERE email = ?)`
	args := []any{false, true, email}
	if targetID != "" {
		query += ` AND ` + column + ` = ?`
		args = append(args, targetID)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("unsubscribe %s: %w", email, err)
	}
	return res.RowsAffected()
}

// Subscribe registers a recipient for a product or brand, creating the user
// when the email or phone is unknown, and reactivates an existing subscription.
func (s *Store) Subscribe(ctx context.Context, email, phone string, kind SubscriptionKind, targetID string) error {
	var table, column string
	switch kind {
	case KindProduct:
		table, column = "product_subscriptions", "product_id"
	case KindBrand:
		table, column = "brand_subscriptions", "brand_id"
	default:
		return fmt.Errorf("unknown subscription kind %q", kind)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var userID string
	err = tx.GetContext(ctx, &userID, s.rebind(`SELECT id FROM users
		WHERE (email = ? AND email <> '') OR (phone = ? AND phone <> '')
		ORDER BY id LIMIT 1`), email, phone)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("find user: %w", err)
	}
	if err != nil {
		userID = uuid.NewString()
		var emailArg, phoneArg any
		if email != "" {
			emailArg = email
		}
		if phone != "" {
			phoneArg = phone
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO users (id, email, phone) VALUES (?, ?, ?)`),
			userID, emailArg, phoneArg); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO `+table+` (id, user_id, `+column+`, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, `+column+`) DO UPDATE SET active = excluded.active`),
		uuid.NewString(), userID, targetID, true)
	if err != nil {
		return fmt.Errorf("subscribe to %s %s: %w", kind, targetID, err)
	}
	return tx.Commit()
}
