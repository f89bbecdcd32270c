package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lukman83/matcha-stock/internal/models"
)

func memdb(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func ptr[T any](v T) *T { return &v }

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn, driver, source string
		wantErr             bool
	}{
		{dsn: "postgres://u:p@localhost:5432/matcha", driver: "pgx", source: "postgres://u:p@localhost:5432/matcha"},
		{dsn: "postgresql://localhost/matcha", driver: "pgx", source: "postgresql://localhost/matcha"},
		{dsn: "sqlite://matcha.db", driver: "sqlite", source: "matcha.db"},
		{dsn: "file:matcha.db?cache=shared", driver: "sqlite", source: "file:matcha.db?cache=shared"},
		{dsn: ":memory:", driver: "sqlite", source: ":memory:"},
		{dsn: "mysql://localhost/matcha", wantErr: true},
		{dsn: "", wantErr: true},
	}
	for _, tt := range tests {
		driver, source, err := parseDSN(tt.dsn)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDSN(%q) expected an error", tt.dsn)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDSN(%q): %v", tt.dsn, err)
			continue
		}
		if driver != tt.driver || source != tt.source {
			t.Errorf("parseDSN(%q) got %s %s, want %s %s", tt.dsn, driver, source, tt.driver, tt.source)
		}
	}
}

func TestMigrateAndRollback(t *testing.T) {
	ctx := context.Background()
	s := memdb(t)

	applied, err := s.Migrate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 0 {
		t.Errorf("second migrate applied %v, want nothing", applied)
	}

	rolled, err := s.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rolled) != 1 || rolled[0] != "0001_init" {
		t.Errorf("rollback got %v", rolled)
	}
	if _, err := s.Brands(ctx); err == nil {
		t.Error("brands table still exists after rollback")
	}

	applied, err = s.Migrate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 1 {
		t.Errorf("re-migrate applied %v", applied)
	}
}

func TestBrands(t *testing.T) {
	ctx := context.Background()
	s := memdb(t)

	if _, err := s.CreateBrand(ctx, "Ippodo Tea", "https://global.ippodo-tea.co.jp"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateBrand(ctx, "Marukyu Koyamaen", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateBrand(ctx, "Ippodo Tea", ""); err == nil {
		t.Error("duplicate brand name accepted")
	}

	if err := s.RenameBrand(ctx, "Marukyu Koyamaen", "MatchaJP - Koyamaen"); err != nil {
		t.Fatal(err)
	}
	if err := s.RenameBrand(ctx, "Nope", "Still nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rename missing brand got %v, want ErrNotFound", err)
	}

	b, err := s.BrandByName(ctx, "MatchaJP - Koyamaen")
	if err != nil {
		t.Fatal(err)
	}
	if b.ID == "" {
		t.Error("brand id empty")
	}
	if _, err := s.BrandByName(ctx, "Marukyu Koyamaen"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old name still resolves: %v", err)
	}

	brands, err := s.Brands(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(brands) != 2 || brands[0].Name != "Ippodo Tea" {
		t.Errorf("Invalid result, got: %+v.", brands)
	}
}

func TestUpsertProduct(t *testing.T) {
	ctx := context.Background()
	s := memdb(t)

	b, err := s.CreateBrand(ctx, "MatchaJP - Koyamaen", "https://www.matchajp.net")
	if err != nil {
		t.Fatal(err)
	}

	first, err := s.UpsertProduct(ctx, b.ID, models.ScrapedProduct{
		Name:  "Wako 40g",
		URL:   "https://www.matchajp.net/products/wako",
		Price: ptr(18.0),
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.UpsertProduct(ctx, b.ID, models.ScrapedProduct{
		Name:     "Wako 40g",
		URL:      "https://www.matchajp.net/products/wako",
		Price:    ptr(21.5),
		Weight:   ptr("40g"),
		ImageURL: ptr("https://cdn.shopify.com/wako.jpg"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("upsert created a second row: %s != %s", first, second)
	}

	products, err := s.ProductsByBrand(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	p := products[0]
	if p.Price == nil || *p.Price != 21.5 {
		t.Errorf("price not refreshed: %v", p.Price)
	}
	if p.Weight == nil || *p.Weight != "40g" {
		t.Errorf("weight not refreshed: %v", p.Weight)
	}
	if p.BrandName != "MatchaJP - Koyamaen" {
		t.Errorf("brand name not joined: %q", p.BrandName)
	}

	byURL, err := s.ProductByURL(ctx, "https://www.matchajp.net/products/wako")
	if err != nil {
		t.Fatal(err)
	}
	if byURL.ID != first {
		t.Errorf("ProductByURL got %s, want %s", byURL.ID, first)
	}

	withBrand, err := s.ProductsWithBrand(ctx, []string{first, "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(withBrand) != 1 || withBrand[0].BrandWebsite != "https://www.matchajp.net" {
		t.Errorf("ProductsWithBrand got %+v", withBrand)
	}
}

func TestStockHistory(t *testing.T) {
	ctx := context.Background()
	s := memdb(t)

	b, _ := s.CreateBrand(ctx, "Ippodo Tea", "")
	p, err := s.CreateProduct(ctx, b.ID, "Sayaka 40g", "https://global.ippodo-tea.co.jp/products/sayaka")
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old, err := s.RecordCheck(ctx, models.StockCheck{ProductID: p.ID, Status: "out_of_stock", Confidence: 0.9, CheckedAt: now.Add(-2 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := s.RecordCheck(ctx, models.StockCheck{ProductID: p.ID, Status: "out_of_stock", Confidence: 0.9, CheckedAt: now.Add(-30 * time.Minute)})
	c, _ := s.RecordCheck(ctx, models.StockCheck{ProductID: p.ID, InStock: true, Status: "in_stock", Confidence: 0.95, CheckedAt: now.Add(-30 * time.Minute)})

	if old.ID == "" || a.ID >= c.ID {
		t.Errorf("check ids not time ordered: %q %q", a.ID, c.ID)
	}

	checks, err := s.ChecksSince(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(checks))
	}
	if checks[0].ID != c.ID || !checks[0].InStock {
		t.Errorf("newest check first expected, got %+v", checks[0])
	}
	if !checks[1].CheckedAt.Equal(now.Add(-30 * time.Minute)) {
		t.Errorf("checked_at round trip got %v", checks[1].CheckedAt)
	}

	statuses, err := s.LatestStatuses(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].CheckID == nil || *statuses[0].CheckID != c.ID {
		t.Errorf("latest status got %+v", statuses)
	}
}

func TestLatestStatusesUnchecked(t *testing.T) {
	ctx := context.Background()
	s := memdb(t)

	b, _ := s.CreateBrand(ctx, "Sazen Tea", "")
	if _, err := s.CreateProduct(ctx, b.ID, "Ceremonial Grade Matcha Collection", "https://www.sazentea.com/en/products/c22-ceremonial-grade-matcha"); err != nil {
		t.Fatal(err)
	}
	statuses, err := s.LatestStatuses(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].InStock != nil || statuses[0].CheckedAt != nil {
		t.Errorf("unchecked product got %+v", statuses)
	}
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := memdb(t)

	b, _ := s.CreateBrand(ctx, "Ippodo Tea", "")
	p, _ := s.CreateProduct(ctx, b.ID, "Ummon 20g", "https://global.ippodo-tea.co.jp/products/ummon")

	if err := s.Subscribe(ctx, "a@example.com", "", KindProduct, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Subscribe(ctx, "", "+15550001111", KindProduct, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Subscribe(ctx, "a@example.com", "", KindBrand, b.ID); err != nil {
		t.Fatal(err)
	}

	subs, err := s.ProductSubscribers(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d product subscribers, want 2", len(subs))
	}

	n, err := s.Unsubscribe(ctx, "a@example.com", KindProduct, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("unsubscribe changed %d rows, want 1", n)
	}
	subs, _ = s.ProductSubscribers(ctx, p.ID)
	if len(subs) != 1 || subs[0].Phone != "+15550001111" || subs[0].Email != "" {
		t.Errorf("remaining subscribers got %+v", subs)
	}

	brandSubs, err := s.BrandSubscribers(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(brandSubs) != 1 || brandSubs[0].Email != "a@example.com" {
		t.Errorf("brand subscribers got %+v", brandSubs)
	}

	summaries, err := s.BrandSummaries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].ProductCount != 1 || summaries[0].SubscriptionCount != 1 {
		t.Errorf("summaries got %+v", summaries)
	}

	n, _ = s.Unsubscribe(ctx, "a@example.com", KindBrand, "")
	if n != 1 {
		t.Errorf("brand unsubscribe changed %d rows, want 1", n)
	}

	if err := s.Subscribe(ctx, "a@example.com", "", KindProduct, p.ID); err != nil {
		t.Fatal(err)
	}
	subs, _ = s.ProductSubscribers(ctx, p.ID)
	if len(subs) != 2 {
		t.Errorf("resubscribe did not reactivate, got %d subscribers", len(subs))
	}
}

func TestMonitoredPage(t *testing.T) {
	ctx := context.Background()
	s := memdb(t)

	b, _ := s.CreateBrand(ctx, "Sazen Tea", "")
	p, _ := s.CreateProduct(ctx, b.ID, "Ceremonial Grade Matcha Collection", "https://www.sazentea.com/en/products/c22-ceremonial-grade-matcha")

	if _, err := s.MonitoredPage(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	checked := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if err := s.SaveMonitoredPage(ctx, models.MonitoredPage{ProductID: p.ID, URL: p.URL, ContentHash: "abc", CheckedAt: checked}); err != nil {
		t.Fatal(err)
	}
	changed := checked.Add(time.Hour)
	if err := s.SaveMonitoredPage(ctx, models.MonitoredPage{ProductID: p.ID, URL: p.URL, ContentHash: "def", CheckedAt: changed, ChangedAt: &changed}); err != nil {
		t.Fatal(err)
	}

	got, err := s.MonitoredPage(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentHash != "def" || got.ChangedAt == nil || !got.ChangedAt.Equal(changed) {
		t.Errorf("Invalid result, got: %+v.", got)
	}
}
