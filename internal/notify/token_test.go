package notify

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestTokenRoundTrip(t *testing.T) {
	issued := time.Unix(1717243200, 0)
	tokens := NewTokens("secret", "https://matcha.example.com/").WithClock(fixedClock(issued))

	token := tokens.Token("a@example.com")
	if !strings.HasPrefix(token, "1717243200.") {
		t.Fatalf("token %q does not start with the issue time", token)
	}
	if sig := strings.TrimPrefix(token, "1717243200."); len(sig) != 64 {
		t.Errorf("signature length got %d, want 64", len(sig))
	}

	later := tokens.WithClock(fixedClock(issued.Add(24 * time.Hour)))
	if err := later.Verify("a@example.com", token, TokenMaxAge); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if err := later.Verify("b@example.com", token, TokenMaxAge); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("other email got %v, want ErrTokenInvalid", err)
	}

	expired := tokens.WithClock(fixedClock(issued.Add(TokenMaxAge + time.Second)))
	if err := expired.Verify("a@example.com", token, TokenMaxAge); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("old token got %v, want ErrTokenExpired", err)
	}

	other := NewTokens("other-secret", "").WithClock(fixedClock(issued))
	if err := other.Verify("a@example.com", token, TokenMaxAge); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("wrong secret got %v, want ErrTokenInvalid", err)
	}

	for _, bad := range []string{"", "nodot", "abc.def", ".sig", "123."} {
		if err := tokens.Verify("a@example.com", bad, TokenMaxAge); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) got %v, want ErrTokenInvalid", bad, err)
		}
	}
}

func TestUnsubscribeURL(t *testing.T) {
	tokens := NewTokens("secret", "https://matcha.example.com/").WithClock(fixedClock(time.Unix(1700000000, 0)))

	raw := tokens.URL("a+b@example.com", "brand-1", KindBrand)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if u.Scheme+"://"+u.Host+u.Path != "https://matcha.example.com/api/unsubscribe" {
		t.Errorf("base got %s", raw)
	}
	q := u.Query()
	if q.Get("email") != "a+b@example.com" || q.Get("brand") != "brand-1" || q.Get("type") != "brand" {
		t.Errorf("query got %v", q)
	}
	if err := tokens.Verify(q.Get("email"), q.Get("token"), TokenMaxAge); err != nil {
		t.Errorf("token in URL does not verify: %v", err)
	}

	plain, _ := url.Parse(tokens.URL("a@example.com", "", KindBrand))
	if plain.Query().Has("brand") || plain.Query().Has("type") {
		t.Errorf("unscoped URL carries a target: %s", plain)
	}
}
