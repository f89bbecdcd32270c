package pagemonitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lukman83/matcha-stock/internal/store"
	"go.uber.org/zap"
)

func TestContentHash(t *testing.T) {
	withProducts := `<html><body><nav>Menu 1</nav><div class="grid products"><p>Matcha A</p></div></body></html>`
	otherNav := `<html><body><nav>Menu 2</nav><div class="grid products"><p>Matcha A</p></div></body></html>`
	changed := `<html><body><nav>Menu 1</nav><div class="grid products"><p>Matcha B</p></div></body></html>`

	a, err := ContentHash(strings.NewReader(withProducts))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ContentHash(strings.NewReader(otherNav))
	c, _ := ContentHash(strings.NewReader(changed))

	if a != b {
		t.Error("navigation changes outside the product list should not change the hash")
	}
	if a == c {
		t.Error("product list changes should change the hash")
	}
	if len(a) != 32 {
		t.Errorf("Invalid result, got: %d hex chars, instead of: 32.", len(a))
	}
}

func TestContentHashFallsBackToMain(t *testing.T) {
	a, _ := ContentHash(strings.NewReader(`<body><header>x</header><main><p>Matcha</p></main></body>`))
	b, _ := ContentHash(strings.NewReader(`<body><header>y</header><main><p>Matcha</p></main></body>`))
	if a != b {
		t.Error("hash should only cover main")
	}
	// "productsgrid" is not the products class
	d, _ := ContentHash(strings.NewReader(`<body><div class="productsgrid">a</div><main>m</main></body>`))
	e, _ := ContentHash(strings.NewReader(`<body><div class="productsgrid">b</div><main>m</main></body>`))
	if d != e {
		t.Error("class match should be on whole tokens")
	}
}

func memstore(t *testing.T) (*store.Store, string) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	brand, err := s.CreateBrand(ctx, "Sazen Tea", "https://www.sazentea.com")
	if err != nil {
		t.Fatalf("create brand: %v", err)
	}
	p, err := s.CreateProduct(ctx, brand.ID, "Ceremonial Grade Matcha Collection", "https://www.sazentea.com/en/products/c22-ceremonial-grade-matcha")
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return s, p.ID
}

func TestRun(t *testing.T) {
	var (
		mu      sync.Mutex
		content = "Matcha A"
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, `<html><body><div class="products"><p>%s</p></div></body></html>`, content)
	}))
	defer srv.Close()

	st, productID := memstore(t)
	m := New(srv.Client(), st, zap.NewNop().Sugar())
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	ctx := context.Background()

	steps := []struct {
		content string
		want    Outcome
	}{
		{"Matcha A", OutcomeInitial},
		{"Matcha A", OutcomeUnchanged},
		{"Matcha A, Matcha B", OutcomeChanged},
		{"Matcha A, Matcha B", OutcomeUnchanged},
	}
	for i, step := range steps {
		mu.Lock()
		content = step.content
		mu.Unlock()
		clock = clock.Add(time.Hour)

		got, err := m.Run(ctx, productID, srv.URL)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != step.want {
			t.Errorf("step %d: got %s, want %s", i, got, step.want)
		}
	}

	page, err := st.MonitoredPage(ctx, productID)
	if err != nil {
		t.Fatal(err)
	}
	if page.ChangedAt == nil || !page.ChangedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("changed_at got %v", page.ChangedAt)
	}
	if !page.CheckedAt.Equal(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("checked_at got %v", page.CheckedAt)
	}

	checks, err := st.ChecksSince(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(checks) != 1 {
		t.Fatalf("Invalid result, got: %d checks, instead of: 1.", len(checks))
	}
	if !checks[0].InStock || checks[0].Status != "in_stock" {
		t.Errorf("check got %+v", checks[0])
	}
}

func TestRunFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	st, productID := memstore(t)
	m := New(srv.Client(), st, zap.NewNop().Sugar())
	if _, err := m.Run(context.Background(), productID, srv.URL); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := st.MonitoredPage(context.Background(), productID); err == nil {
		t.Error("a failed fetch should not store a baseline")
	}
}
