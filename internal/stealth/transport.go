package stealth

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// ErrBlockedByRobots is returned when robots.txt disallows a request.
var ErrBlockedByRobots = errors.New("blocked by robots.txt")

// Transport is an http.RoundTripper that applies the politeness pipeline:
// Fingerprint → RobotsCheck → RateLimiter → HumanDelay → Proxy → Send
type Transport struct {
	Base        http.RoundTripper
	Robots      *RobotsChecker
	Fingerprint *FingerprintPool
	Proxy       *ProxyRotator
	Delay       *HumanDelay
	RateLimiter *rate.Limiter
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrip must not modify the caller's request.
	req = req.Clone(req.Context())

	userAgent := req.Header.Get("User-Agent")
	if t.Fingerprint != nil {
		fp := t.Fingerprint.Next()
		userAgent = fp.UserAgent
		req.Header.Set("User-Agent", fp.UserAgent)
		for key, vals := range fp.Headers {
			if req.Header.Get(key) == "" {
				for _, v := range vals {
					req.Header.Add(key, v)
				}
			}
		}
	}

	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Context(), userAgent, req.URL.String())
		if err == nil && !allowed {
			return nil, fmt.Errorf("%w: %s", ErrBlockedByRobots, req.URL.Path)
		}
	}

	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if t.Delay != nil {
		if err := t.Delay.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
	}

	transport := t.Base
	if t.Proxy != nil {
		transport = t.Proxy.Next().Transport()
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return transport.RoundTrip(req)
}
