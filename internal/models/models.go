package models

import "time"

type Brand struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Website   string    `db:"website" json:"website,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BrandSummary is a brand with the counts shown by admin listings.
type BrandSummary struct {
	Brand
	ProductCount      int `db:"product_count" json:"product_count"`
	SubscriptionCount int `db:"subscription_count" json:"subscription_count"`
}

// Product is a tracked item. BrandName and BrandWebsite are only filled by
// queries that join the owning brand.
type Product struct {
	ID           string    `db:"id" json:"id"`
	BrandID      string    `db:"brand_id" json:"brand_id"`
	Name         string    `db:"name" json:"name"`
	Weight       *string   `db:"weight" json:"weight,omitempty"`
	Price        *float64  `db:"price" json:"price,omitempty"`
	URL          string    `db:"url" json:"url"`
	ImageURL     *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
	BrandName    string    `db:"brand_name" json:"brand_name,omitempty"`
	BrandWebsite string    `db:"brand_website" json:"brand_website,omitempty"`
}

// ScrapedProduct is a catalog entry as read off a collection page.
type ScrapedProduct struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Weight   *string  `json:"weight,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	ImageURL *string  `json:"image_url,omitempty"`
	InStock  bool     `json:"in_stock"`
	Reason   string   `json:"reason,omitempty"`
}

// StockCheck is one row of the append-only stock history.
type StockCheck struct {
	ID         string    `db:"id" json:"id"`
	ProductID  string    `db:"product_id" json:"product_id"`
	InStock    bool      `db:"in_stock" json:"in_stock"`
	Status     string    `db:"status" json:"status"`
	Confidence float64   `db:"confidence" json:"confidence"`
	CheckedAt  time.Time `db:"checked_at" json:"checked_at"`
}

// ProductStatus pairs a product with its most recent check.
type ProductStatus struct {
	Product
	CheckID    *string    `db:"check_id" json:"check_id,omitempty"`
	InStock    *bool      `db:"in_stock" json:"in_stock,omitempty"`
	Status     *string    `db:"status" json:"status,omitempty"`
	Confidence *float64   `db:"confidence" json:"confidence,omitempty"`
	CheckedAt  *time.Time `db:"checked_at" json:"checked_at,omitempty"`
}

// Subscriber is an active subscription resolved to its recipient contact.
type Subscriber struct {
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`
	UserID         string `db:"user_id" json:"user_id"`
	Email          string `db:"email" json:"email,omitempty"`
	Phone          string `db:"phone" json:"phone,omitempty"`
}

// Restock is a product whose latest check flipped from out of stock to in stock.
type Restock struct {
	Product     Product    `json:"product"`
	Latest      StockCheck `json:"latest"`
	Previous    StockCheck `json:"previous"`
	RestockedAt time.Time  `json:"restocked_at"`
}

// BrandRestock groups restocked products under their brand.
type BrandRestock struct {
	BrandID      string    `json:"brand_id"`
	BrandName    string    `json:"brand_name"`
	BrandWebsite string    `json:"brand_website,omitempty"`
	Products     []Restock `json:"products"`
}

// MonitoredPage is the change-detection state of a watched page.
type MonitoredPage struct {
	ProductID   string     `db:"product_id" json:"product_id"`
	URL         string     `db:"url" json:"url"`
	ContentHash string     `db:"content_hash" json:"content_hash"`
	CheckedAt   time.Time  `db:"checked_at" json:"checked_at"`
	ChangedAt   *time.Time `db:"changed_at" json:"changed_at,omitempty"`
}
