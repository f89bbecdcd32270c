package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenInvalid = errors.New("invalid unsubscribe token")
	ErrTokenExpired = errors.New("unsubscribe token expired")
)

// TokenMaxAge is how long an unsubscribe link stays valid.
const TokenMaxAge = 365 * 24 * time.Hour

// Kind is what an unsubscribe link applies to.
type Kind string

const (
	KindProduct Kind = "product"
	KindBrand   Kind = "brand"
)

// Tokens signs and verifies unsubscribe links.
type Tokens struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

func NewTokens(secret, baseURL string) *Tokens {
	return &Tokens{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// WithClock returns a copy of t that reads the time from now.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	c := *t
	c.now = now
	return &c
}

// Token returns "<unix seconds>.<hex hmac-sha256 of email:timestamp>".
func (t *Tokens) Token(email string) string {
	ts := strconv.FormatInt(t.now().Unix(), 10)
	return ts + "." + t.sign(email, ts)
}

// URL builds the unsubscribe link for email. id and kind are optional and
// scope the link to one brand or product.
func (t *Tokens) URL(email, id string, kind Kind) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", t.Token(email))
	if id != "" {
		q.Set("brand", id)
		q.Set("type", string(kind))
	}
	return t.baseURL + "/api/unsubscribe?" + q.Encode()
}

// Verify checks a token issued for email and rejects tokens older than maxAge.
func (t *Tokens) Verify(email, token string, maxAge time.Duration) error {
	ts, sig, ok := strings.Cut(token, ".")
	if !ok || ts == "" || sig == "" {
		return ErrTokenInvalid
	}
	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrTokenInvalid)
	}
	want := t.sign(email, ts)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return ErrTokenInvalid
	}
	if maxAge > 0 && t.now().Sub(time.Unix(issued, 0)) > maxAge {
		return ErrTokenExpired
	}
	return nil
}

func (t *Tokens) sign(email, ts string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(email + ":" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
