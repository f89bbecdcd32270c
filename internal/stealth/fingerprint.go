package stealth

import (
	"math/rand/v2"
	"net/http"
	"sync"
)

// Fingerprint is a browser identity: a user agent and the headers that
// browser sends with it.
type Fingerprint struct {
	UserAgent string
	Headers   http.Header
}

// FingerprintPool hands out a random browser identity per request.
type FingerprintPool struct {
	fingerprints []Fingerprint
	languages    []string
	mu           sync.Mutex
	rng          *rand.Rand
}

// NewFingerprintPool creates a pool of desktop browser fingerprints.
func NewFingerprintPool() *FingerprintPool {
	return &FingerprintPool{
		fingerprints: defaultFingerprints(),
		languages:    defaultLanguages,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeededFingerprintPool returns a pool with a deterministic choice sequence.
func NewSeededFingerprintPool(seed uint64) *FingerprintPool {
	p := NewFingerprintPool()
	p.rng = rand.New(rand.NewPCG(seed, seed))
	return p
}

// Next picks a fingerprint and an Accept-Language at random. The returned
// headers are a copy that callers may modify.
func (fp *FingerprintPool) Next() Fingerprint {
	fp.mu.Lock()
	f := fp.fingerprints[fp.rng.IntN(len(fp.fingerprints))]
	lang := fp.languages[fp.rng.IntN(len(fp.languages))]
	fp.mu.Unlock()

	h := f.Headers.Clone()
	h.Set("Accept-Language", lang)
	return Fingerprint{UserAgent: f.UserAgent, Headers: h}
}

var defaultLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9,ja;q=0.8",
	"en-CA,en;q=0.9,fr;q=0.7",
	"en-AU,en;q=0.9",
}

func defaultFingerprints() []Fingerprint {
	return []Fingerprint{
		{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
			Headers:   chromeHeaders("133", "Windows"),
		},
		{
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
			Headers:   chromeHeaders("133", "macOS"),
		},
		{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
			Headers:   chromeHeaders("132", "Linux"),
		},
		{
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3 Safari/605.1.15",
			Headers:   safariHeaders(),
		},
		{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0",
			Headers:   firefoxHeaders(),
		},
		{
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:135.0) Gecko/20100101 Firefox/135.0",
			Headers:   firefoxHeaders(),
		},
	}
}

func chromeHeaders(version, platform string) http.Header {
	h := http.Header{}
	h.Set("Sec-Ch-Ua", `"Chromium";v="`+version+`", "Not(A:Brand";v="99", "Google Chrome";v="`+version+`"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"`+platform+`"`)
	return h
}

func safariHeaders() http.Header {
	return http.Header{}
}

func firefoxHeaders() http.Header {
	h := http.Header{}
	h.Set("DNT", "1")
	return h
}
