// Package app wires configuration, the polite HTTP client, the store and
// the site integrations together for the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lukman83/matcha-stock/config"
	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/headless"
	"github.com/lukman83/matcha-stock/internal/httputil"
	"github.com/lukman83/matcha-stock/internal/matchajp"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/lukman83/matcha-stock/internal/notify"
	"github.com/lukman83/matcha-stock/internal/pagecheck"
	"github.com/lukman83/matcha-stock/internal/pagemonitor"
	"github.com/lukman83/matcha-stock/internal/platform"
	"github.com/lukman83/matcha-stock/internal/restock"
	"github.com/lukman83/matcha-stock/internal/scrape"
	"github.com/lukman83/matcha-stock/internal/shopify"
	"github.com/lukman83/matcha-stock/internal/stealth"
	"github.com/lukman83/matcha-stock/internal/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Notification channels accepted by Notify.
const (
	ChannelEmail      = "email"
	ChannelSMS        = "sms"
	ChannelBrandEmail = "brand-email"
)

const (
	SazenBrand   = "Sazen Tea"
	SazenWebsite = "https://www.sazentea.com"
	SazenProduct = "Ceremonial Grade Matcha Collection"
	SazenURL     = "https://www.sazentea.com/en/products/c22-ceremonial-grade-matcha"

	matchaJPWebsite = "https://www.matchajp.net"
)

var ErrUnknownChannel = errors.New("unknown notification channel")

// App holds what one command run needs. The store is opened on first use
// and closed by Close.
type App struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	client *http.Client

	store *store.Store
}

func New(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	client, err := NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: logger, client: client}
	a.registerPlatforms()
	return a, nil
}

// NewHTTPClient builds the stealth-wrapped HTTP client from config.
func NewHTTPClient(cfg *config.Config) (*http.Client, error) {
	var proxies *stealth.ProxyRotator
	if cfg.ProxyFile != "" {
		providers, err := stealth.LoadProxyFile(cfg.ProxyFile)
		if err != nil {
			return nil, err
		}
		if len(providers) > 0 {
			proxies = stealth.NewProxyRotator(providers)
		}
	}

	robotsClient := httputil.NewHTTPClient(nil, 10*time.Second)
	transport := &stealth.Transport{
		Base:        &http.Transport{MaxIdleConns: 20, MaxIdleConnsPerHost: 4, IdleConnTimeout: 90 * time.Second},
		Robots:      stealth.NewRobotsChecker(robotsClient, cfg.RespectRobots),
		Fingerprint: stealth.NewFingerprintPool(),
		Proxy:       proxies,
		Delay:       stealth.NewHumanDelay(stealth.DelayProfile(cfg.DelayProfile)),
		RateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(cfg.RateBurst, 1)),
	}
	return httputil.NewHTTPClient(transport, cfg.RequestTimeout), nil
}

func (a *App) browserOptions() headless.Options {
	return headless.Options{
		BrowserBin:  a.cfg.BrowserBin,
		LauncherURL: a.cfg.BrowserRemote,
		Timeout:     a.cfg.BrowserTimeout,
		UserAgent:   stealth.NewFingerprintPool().Next().UserAgent,
	}
}

// registerPlatforms registers the site integrations this deployment knows.
func (a *App) registerPlatforms() {
	platform.Register("ippodo", shopify.NewChecker(a.client), "global.ippodo-tea.co.jp", "ippodotea.com")
	platform.Register("rocky", headless.NewSelectorChecker("rockys", headless.SelectorRockys, a.browserOptions()), "rockysmatcha.com")
	platform.RegisterFallback(pagecheck.NewChecker(a.client))
	platform.RegisterCataloger("matchajp", matchajp.NewScraper(a.client, a.cfg.MatchaJPURL, a.cfg.MatchaJPPages, a.logger))
}

func (a *App) Logger() *zap.SugaredLogger { return a.logger }

// Store opens the database on first use.
func (a *App) Store(ctx context.Context) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if err := a.cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.store = st
	return st, nil
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// Scrape checks every product of the named brands, or of all brands.
func (a *App) Scrape(ctx context.Context, brands []string) (scrape.Summary, error) {
	st, err := a.Store(ctx)
	if err != nil {
		return scrape.Summary{}, err
	}
	return scrape.NewRunner(st, platform.ForBrand, a.logger).CheckBrands(ctx, brands)
}

// SyncCatalog runs a registered collection scraper into its brand.
func (a *App) SyncCatalog(ctx context.Context, name string) (scrape.Summary, error) {
	cat, err := platform.GetCataloger(name)
	if err != nil {
		return scrape.Summary{}, err
	}
	brand, website := name, ""
	if strings.EqualFold(name, "matchajp") {
		brand, website = matchajp.BrandName, matchaJPWebsite
	}
	st, err := a.Store(ctx)
	if err != nil {
		return scrape.Summary{}, err
	}
	return scrape.NewRunner(st, platform.ForBrand, a.logger).SyncCatalog(ctx, brand, website, cat)
}

// MonitorSazen runs the page-change monitor for the Sazen Tea ceremonial
// collection, creating its brand and product on first use.
func (a *App) MonitorSazen(ctx context.Context) (pagemonitor.Outcome, error) {
	st, err := a.Store(ctx)
	if err != nil {
		return "", err
	}
	brand, err := st.BrandByName(ctx, SazenBrand)
	if errors.Is(err, store.ErrNotFound) {
		brand, err = st.CreateBrand(ctx, SazenBrand, SazenWebsite)
	}
	if err != nil {
		return "", err
	}
	product, err := st.ProductByName(ctx, brand.ID, SazenProduct)
	if errors.Is(err, store.ErrNotFound) {
		product, err = st.CreateProduct(ctx, brand.ID, SazenProduct, SazenURL)
	}
	if err != nil {
		return "", err
	}
	return pagemonitor.New(a.client, st, a.logger).Run(ctx, product.ID, product.URL)
}

// Check classifies a single product URL without touching the database.
// With render set the page is loaded in a browser and checked for the
// site's sold-out selector.
func (a *App) Check(ctx context.Context, rawURL string, render bool) (classifier.Result, error) {
	p := models.Product{URL: rawURL}
	if render {
		return a.renderedChecker(rawURL).Check(ctx, p)
	}
	checker, err := platform.ForURL(rawURL)
	if err != nil {
		return classifier.Result{}, err
	}
	return checker.Check(ctx, p)
}

func (a *App) renderedChecker(rawURL string) platform.Checker {
	selector := headless.SelectorRockys
	if u, err := url.Parse(rawURL); err == nil && strings.Contains(u.Hostname(), "ippodo") {
		selector = headless.SelectorIppodo
	}
	return headless.NewSelectorChecker("rendered", selector, a.browserOptions())
}

// Notify detects restocks and sends them over channel. Provider keys are
// validated before anything is read.
func (a *App) Notify(ctx context.Context, channel string) (notify.Report, error) {
	opts := notify.Options{
		Tokens:    a.Tokens(),
		FromEmail: a.cfg.FromEmail,
		FromPhone: a.cfg.TwilioPhoneNumber,
		Logger:    a.logger,
	}
	switch channel {
	case ChannelEmail, ChannelBrandEmail:
		if err := a.cfg.ValidateEmail(); err != nil {
			return notify.Report{}, err
		}
		opts.Email = notify.NewResendSender(a.cfg.ResendAPIKey)
	case ChannelSMS:
		if err := a.cfg.ValidateSMS(); err != nil {
			return notify.Report{}, err
		}
		opts.SMS = notify.NewTwilioSender(a.cfg.TwilioAccountSID, a.cfg.TwilioAuthToken)
	default:
		return notify.Report{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	if a.cfg.Dedupe {
		dedupe, err := notify.NewRedisDeduper(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, a.cfg.DedupeTTL)
		if err != nil {
			return notify.Report{}, err
		}
		defer dedupe.Close()
		opts.Deduper = dedupe
	}

	st, err := a.Store(ctx)
	if err != nil {
		return notify.Report{}, err
	}
	detector := restock.NewDetector(st, a.cfg.Lookback, a.logger)
	return Dispatch(ctx, detector, notify.NewDispatcher(st, opts), channel, time.Now())
}

// Dispatch runs detection at now and hands the result to the dispatcher.
func Dispatch(ctx context.Context, detector *restock.Detector, d *notify.Dispatcher, channel string, now time.Time) (notify.Report, error) {
	if channel == ChannelBrandEmail {
		brands, err := detector.RestockedByBrand(ctx, now)
		if err != nil {
			return notify.Report{}, err
		}
		return d.BrandEmails(ctx, brands), nil
	}

	restocks, err := detector.Restocked(ctx, now)
	if err != nil {
		return notify.Report{}, err
	}
	if channel == ChannelSMS {
		return d.ProductSMS(ctx, restocks), nil
	}
	return d.ProductEmails(ctx, restocks), nil
}

func (a *App) Tokens() *notify.Tokens {
	return notify.NewTokens(a.cfg.UnsubscribeSecret, a.cfg.AppURL)
}

// Unsubscribe verifies an unsubscribe token and deactivates the matching
// subscriptions. An empty targetID applies to every subscription of kind.
func (a *App) Unsubscribe(ctx context.Context, email, token string, kind store.SubscriptionKind, targetID string) (int64, error) {
	if err := a.Tokens().Verify(email, token, notify.TokenMaxAge); err != nil {
		return 0, err
	}
	st, err := a.Store(ctx)
	if err != nil {
		return 0, err
	}
	n, err := st.Unsubscribe(ctx, email, kind, targetID)
	if err != nil {
		return 0, err
	}
	a.logger.Infow("unsubscribed", "recipient", email, "kind", kind, "target", targetID, "changed", n)
	return n, nil
}

// Restocked runs detection over the given window, or the configured one.
func (a *App) Restocked(ctx context.Context, lookback time.Duration) ([]models.Restock, error) {
	st, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	if lookback <= 0 {
		lookback = a.cfg.Lookback
	}
	return restock.NewDetector(st, lookback, a.logger).Restocked(ctx, time.Now())
}

func (a *App) BrandSummaries(ctx context.Context) ([]models.BrandSummary, error) {
	st, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	return st.BrandSummaries(ctx)
}

// BrandStatus returns the latest check of every product of the named brand.
func (a *App) BrandStatus(ctx context.Context, name string) ([]models.ProductStatus, error) {
	st, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	brand, err := st.BrandByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return st.LatestStatuses(ctx, brand.ID)
}
