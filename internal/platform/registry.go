package platform

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

type checkerEntry struct {
	key     string
	hosts   []string
	checker Checker
}

var (
	checkers   = make(map[string]checkerEntry)
	catalogers = make(map[string]Cataloger)
	fallback   Checker
	mu         sync.RWMutex
)

// Register adds a checker for brands whose name contains key
// (case-insensitive) and for product URLs on any of hosts.
func Register(key string, checker Checker, hosts ...string) {
	mu.Lock()
	defer mu.Unlock()
	key = strings.ToLower(key)
	checkers[key] = checkerEntry{key: key, hosts: hosts, checker: checker}
}

// RegisterFallback sets the checker used for URLs no site checker claims.
func RegisterFallback(checker Checker) {
	mu.Lock()
	defer mu.Unlock()
	fallback = checker
}

// RegisterCataloger adds a collection scraper under name.
func RegisterCataloger(name string, c Cataloger) {
	mu.Lock()
	defer mu.Unlock()
	catalogers[strings.ToLower(name)] = c
}

// ForBrand returns the checker whose key occurs in the brand name. When
// several match, the longest key wins.
func ForBrand(brand string) (Checker, bool) {
	mu.RLock()
	defer mu.RUnlock()
	name := strings.ToLower(brand)
	var best checkerEntry
	for key, e := range checkers {
		if strings.Contains(name, key) && len(key) > len(best.key) {
			best = e
		}
	}
	return best.checker, best.checker != nil
}

// ForURL returns the checker registered for the URL's host, or the fallback.
func ForURL(rawURL string) (Checker, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid product url %q", rawURL)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	mu.RLock()
	defer mu.RUnlock()
	for _, e := range checkers {
		for _, h := range e.hosts {
			if host == strings.TrimPrefix(h, "www.") {
				return e.checker, nil
			}
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("no checker for %s", host)
	}
	return fallback, nil
}

func GetCataloger(name string) (Cataloger, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := catalogers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("catalog %q not registered", name)
	}
	return c, nil
}

// List returns the registered checker keys and catalog names, sorted.
func List() (checkerKeys, catalogNames []string) {
	mu.RLock()
	defer mu.RUnlock()
	for k := range checkers {
		checkerKeys = append(checkerKeys, k)
	}
	for k := range catalogers {
		catalogNames = append(catalogNames, k)
	}
	sort.Strings(checkerKeys)
	sort.Strings(catalogNames)
	return checkerKeys, catalogNames
}
