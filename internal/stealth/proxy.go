package stealth

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ProxyProvider abstracts a proxy backend.
type ProxyProvider interface {
	Transport() http.RoundTripper
	Name() string
}

// ProxyRotator cycles through proxy providers.
type ProxyRotator struct {
	providers []ProxyProvider
	mu        sync.Mutex
	idx       int
}

// NewProxyRotator creates a rotator. It returns nil if no providers are given.
func NewProxyRotator(providers []ProxyProvider) *ProxyRotator {
	if len(providers) == 0 {
		return nil
	}
	return &ProxyRotator{providers: providers}
}

// Next returns the next provider in round-robin order.
func (p *ProxyRotator) Next() ProxyProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	provider := p.providers[p.idx%len(p.providers)]
	p.idx++
	return provider
}

// HTTPProxyProvider routes through an HTTP or SOCKS5 proxy URL.
type HTTPProxyProvider struct {
	URL       *url.URL
	transport http.RoundTripper
	once      sync.Once
}

func NewHTTPProxyProvider(raw string) (*HTTPProxyProvider, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("proxy %q: unsupported scheme %q", raw, u.Scheme)
	}
	return &HTTPProxyProvider{URL: u}, nil
}

// Name is the proxy address without credentials.
func (h *HTTPProxyProvider) Name() string { return h.URL.Redacted() }

func (h *HTTPProxyProvider) Transport() http.RoundTripper {
	h.once.Do(func() {
		h.transport = &http.Transport{
			Proxy:             http.ProxyURL(h.URL),
			DisableKeepAlives: true,
		}
	})
	return h.transport
}

// LoadProxyFile reads one proxy URL per line. Blank lines and lines starting
// with # are ignored.
func LoadProxyFile(path string) ([]ProxyProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var providers []ProxyProvider
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p, err := NewHTTPProxyProvider(raw)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		providers = append(providers, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}
	return providers, nil
}
