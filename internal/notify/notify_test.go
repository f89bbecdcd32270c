package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/lukman83/matcha-stock/internal/models"
)

type fakeSubscribers struct {
	products map[string][]models.Subscriber
	brands   map[string][]models.Subscriber
	err      error
}

func (f *fakeSubscribers) ProductSubscribers(_ context.Context, id string) ([]models.Subscriber, error) {
	return f.products[id], f.err
}

func (f *fakeSubscribers) BrandSubscribers(_ context.Context, id string) ([]models.Subscriber, error) {
	return f.brands[id], f.err
}

type fakeEmail struct {
	sent   []EmailMessage
	failTo map[string]bool
}

func (f *fakeEmail) SendEmail(_ context.Context, msg EmailMessage) (string, error) {
	if f.failTo[msg.To] {
		return "", errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	return "re_123", nil
}

type fakeSMS struct {
	sent []SMSMessage
}

func (f *fakeSMS) SendSMS(_ context.Context, msg SMSMessage) (string, error) {
	f.sent = append(f.sent, msg)
	return "SM123", nil
}

type memoryDeduper map[string]bool

func (m memoryDeduper) Claim(_ context.Context, key string) (bool, error) {
	if m[key] {
		return false, nil
	}
	m[key] = true
	return true, nil
}

func (m memoryDeduper) Release(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func restock(id, brandID, brand, name, checkID string) models.Restock {
	return models.Restock{
		Product: models.Product{ID: id, BrandID: brandID, BrandName: brand, Name: name, URL: "https://example.com/" + id},
		Latest:  models.StockCheck{ID: checkID, ProductID: id, InStock: true},
	}
}

func TestProductEmails(t *testing.T) {
	subs := &fakeSubscribers{products: map[string][]models.Subscriber{
		"p1": {
			{SubscriptionID: "s1", Email: "a@example.com"},
			{SubscriptionID: "s2", Email: "broken@example.com"},
			{SubscriptionID: "s3", Phone: "+15550001111"},
			{SubscriptionID: "s4", Email: "c@example.com"},
		},
		"p2": {{SubscriptionID: "s5", Email: "a@example.com"}},
	}}
	email := &fakeEmail{failTo: map[string]bool{"broken@example.com": true}}
	d := NewDispatcher(subs, Options{
		Email:     email,
		Tokens:    NewTokens("secret", "http://localhost:4001"),
		FromEmail: "Matcha Stock <alerts@example.com>",
	})

	rep := d.ProductEmails(context.Background(), []models.Restock{
		restock("p1", "b1", "Ippodo Tea", "Sayaka", "c1"),
		restock("p2", "b1", "Ippodo Tea", "Ummon", "c2"),
	})

	if rep.Sent != 3 || rep.Failed != 1 || rep.Skipped != 1 {
		t.Fatalf("Invalid report, got: %+v.", rep)
	}
	if len(email.sent) != 3 {
		t.Fatalf("got %d emails, want 3", len(email.sent))
	}
	if email.sent[0].From != "Matcha Stock <alerts@example.com>" || email.sent[0].Subject != "🍵 Ippodo Tea Sayaka is back in stock!" {
		t.Errorf("first email got %+v", email.sent[0])
	}
	if email.sent[2].To != "a@example.com" || email.sent[2].Subject != "🍵 Ippodo Tea Ummon is back in stock!" {
		t.Errorf("one email per recipient and product expected, got %+v", email.sent[2])
	}
}

func TestProductSMS(t *testing.T) {
	subs := &fakeSubscribers{products: map[string][]models.Subscriber{
		"p1": {
			{SubscriptionID: "s1", Email: "a@example.com"},
			{SubscriptionID: "s2", Phone: " +15550001111 "},
		},
	}}
	sms := &fakeSMS{}
	d := NewDispatcher(subs, Options{SMS: sms, Tokens: NewTokens("s", ""), FromPhone: "+15559990000"})

	rep := d.ProductSMS(context.Background(), []models.Restock{restock("p1", "b1", "Ippodo Tea", "Sayaka", "c1")})
	if rep.Sent != 1 || rep.Skipped != 1 {
		t.Fatalf("Invalid report, got: %+v.", rep)
	}
	if sms.sent[0].To != "+15550001111" || sms.sent[0].From != "+15559990000" {
		t.Errorf("sms got %+v", sms.sent[0])
	}
}

func TestSubscriberLookupFailureContinues(t *testing.T) {
	subs := &fakeSubscribers{err: errors.New("connection reset")}
	email := &fakeEmail{}
	d := NewDispatcher(subs, Options{Email: email, Tokens: NewTokens("s", "")})

	rep := d.ProductEmails(context.Background(), []models.Restock{
		restock("p1", "b1", "Ippodo Tea", "Sayaka", "c1"),
		restock("p2", "b1", "Ippodo Tea", "Ummon", "c2"),
	})
	if rep.Sent != 0 || rep.Failed != 0 || len(email.sent) != 0 {
		t.Errorf("Invalid report, got: %+v.", rep)
	}
}

func TestBrandEmails(t *testing.T) {
	subs := &fakeSubscribers{brands: map[string][]models.Subscriber{
		"b1": {{SubscriptionID: "s1", Email: "a@example.com"}, {SubscriptionID: "s2", Email: ""}},
		"b2": {{SubscriptionID: "s3", Email: "b@example.com"}},
	}}
	email := &fakeEmail{}
	d := NewDispatcher(subs, Options{Email: email, Tokens: NewTokens("s", "")})

	rep := d.BrandEmails(context.Background(), []models.BrandRestock{
		{
			BrandID:   "b1",
			BrandName: "Ippodo Tea",
			Products: []models.Restock{
				restock("p1", "b1", "Ippodo Tea", "Sayaka", "c1"),
				restock("p2", "b1", "Ippodo Tea", "Ummon", "c2"),
			},
		},
		{BrandID: "b2", BrandName: "Sazen Tea"},
	})

	if rep.Sent != 1 || rep.Skipped != 1 {
		t.Fatalf("Invalid report, got: %+v.", rep)
	}
	if email.sent[0].Subject != "🍵 Ippodo Tea has 2 matcha products back in stock!" {
		t.Errorf("subject got %q", email.sent[0].Subject)
	}
}

func TestDedupeSkipsRepeatedRestock(t *testing.T) {
	subs := &fakeSubscribers{products: map[string][]models.Subscriber{
		"p1": {{SubscriptionID: "s1", Email: "A@example.com"}},
	}}
	email := &fakeEmail{}
	d := NewDispatcher(subs, Options{Email: email, Tokens: NewTokens("s", ""), Deduper: memoryDeduper{}})

	restocks := []models.Restock{restock("p1", "b1", "Ippodo Tea", "Sayaka", "c1")}
	first := d.ProductEmails(context.Background(), restocks)
	second := d.ProductEmails(context.Background(), restocks)

	if first.Sent != 1 || second.Sent != 0 || second.Skipped != 1 {
		t.Errorf("first %+v, second %+v", first, second)
	}

	// A newer restock of the same product is a new event.
	third := d.ProductEmails(context.Background(), []models.Restock{restock("p1", "b1", "Ippodo Tea", "Sayaka", "c9")})
	if third.Sent != 1 {
		t.Errorf("third %+v", third)
	}
}

func TestDedupeReleasesFailedSend(t *testing.T) {
	subs := &fakeSubscribers{products: map[string][]models.Subscriber{
		"p1": {{SubscriptionID: "s1", Email: "a@example.com"}},
	}}
	email := &fakeEmail{failTo: map[string]bool{"a@example.com": true}}
	dedupe := memoryDeduper{}
	d := NewDispatcher(subs, Options{Email: email, Tokens: NewTokens("s", ""), Deduper: dedupe})

	restocks := []models.Restock{restock("p1", "b1", "Ippodo Tea", "Sayaka", "c1")}
	first := d.ProductEmails(context.Background(), restocks)
	if first.Failed != 1 {
		t.Fatalf("first %+v", first)
	}
	if len(dedupe) != 0 {
		t.Errorf("failed send left claims behind: %v", dedupe)
	}

	email.failTo = nil
	second := d.ProductEmails(context.Background(), restocks)
	if second.Sent != 1 || second.Skipped != 0 {
		t.Errorf("Invalid result, got: %+v, instead of: one sent.", second)
	}
	if !dedupe[DedupeKey("email", "a@example.com", "p1", "c1")] {
		t.Error("delivered message should keep its claim")
	}
}

func TestWithoutDedupeRepeatsSend(t *testing.T) {
	subs := &fakeSubscribers{products: map[string][]models.Subscriber{
		"p1": {{SubscriptionID: "s1", Email: "a@example.com"}},
	}}
	email := &fakeEmail{}
	d := NewDispatcher(subs, Options{Email: email, Tokens: NewTokens("s", "")})

	restocks := []models.Restock{restock("p1", "b1", "Ippodo Tea", "Sayaka", "c1")}
	d.ProductEmails(context.Background(), restocks)
	d.ProductEmails(context.Background(), restocks)
	if len(email.sent) != 2 {
		t.Errorf("got %d emails, want 2", len(email.sent))
	}
}

func TestDedupeKey(t *testing.T) {
	if got := DedupeKey("email", "A@Example.com", "p1", "c1"); got != "email:a@example.com:p1:c1" {
		t.Errorf("got %q", got)
	}
}
