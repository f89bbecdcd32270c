// Package headless checks products whose stock marker only appears after the
// page's scripts run.
package headless

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/lukman83/matcha-stock/internal/platform"
)

const (
	SelectorIppodo = "span.product-form__inventory.product-form__inventory--out"
	SelectorRockys = "span.sold_out"
)

const confidenceSelector = 0.85

// Options configures the browser.
type Options struct {
	// BrowserBin overrides the browser binary rod downloads or finds.
	BrowserBin string
	// LauncherURL connects to a remote rod launcher instead of a local browser.
	LauncherURL string
	Timeout     time.Duration
	UserAgent   string
}

// SelectorChecker reports a product out of stock when a sold-out selector
// is present on its rendered page.
type SelectorChecker struct {
	name     string
	selector string
	opts     Options
}

func NewSelectorChecker(name, selector string, opts Options) *SelectorChecker {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &SelectorChecker{name: name, selector: selector, opts: opts}
}

func (c *SelectorChecker) Name() string { return c.name }

func (c *SelectorChecker) Check(ctx context.Context, p models.Product) (classifier.Result, error) {
	platform.ReportProgress(ctx, "Rendering %s", p.URL)
	page, cleanup, err := c.openPage(ctx, p.URL)
	if err != nil {
		return classifier.Failed(err), err
	}
	defer cleanup()

	timed := page.Timeout(c.opts.Timeout)
	if err := timed.WaitLoad(); err != nil {
		return classifier.Failed(err), fmt.Errorf("load %s: %w", p.URL, err)
	}
	if err := timed.WaitStable(time.Second); err == nil {
		_ = timed.WaitDOMStable(2*time.Second, 0.1)
	}

	found, _, err := page.Has(c.selector)
	if err != nil {
		return classifier.Failed(err), fmt.Errorf("query %q: %w", c.selector, err)
	}
	return Decide(c.selector, found), nil
}

// Decide maps the presence of the sold-out selector to a result.
func Decide(selector string, found bool) classifier.Result {
	if found {
		return classifier.Result{
			Status:     classifier.StatusOutOfStock,
			Confidence: confidenceSelector,
			Signals:    []string{fmt.Sprintf("sold out marker %q present", selector)},
		}
	}
	return classifier.Result{
		Status:     classifier.StatusInStock,
		Confidence: confidenceSelector,
		Signals:    []string{fmt.Sprintf("sold out marker %q absent", selector)},
	}
}

func (c *SelectorChecker) openPage(ctx context.Context, pageURL string) (*rod.Page, func(), error) {
	browser, release, err := c.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	fail := func(err error) (*rod.Page, func(), error) {
		release()
		return nil, nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fail(fmt.Errorf("open page: %w", err))
	}
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			return fail(fmt.Errorf("set user agent: %w", err))
		}
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1920, Height: 1080}); err != nil {
		return fail(fmt.Errorf("set viewport: %w", err))
	}
	if err := page.Navigate(pageURL); err != nil {
		return fail(fmt.Errorf("navigate %s: %w", pageURL, err))
	}

	cleanup := func() {
		page.Close()
		release()
	}
	return page, cleanup, nil
}

// connect opens a browser on the remote launcher when one is configured,
// otherwise it launches a local headless browser.
func (c *SelectorChecker) connect(ctx context.Context) (*rod.Browser, func(), error) {
	if c.opts.LauncherURL != "" {
		l, err := launcher.NewManaged(c.opts.LauncherURL)
		if err != nil {
			return nil, nil, fmt.Errorf("remote launcher %s: %w", c.opts.LauncherURL, err)
		}
		client, err := l.Context(ctx).Headless(true).Client()
		if err != nil {
			return nil, nil, fmt.Errorf("remote browser: %w", err)
		}
		browser := rod.New().Client(client).Context(ctx)
		if err := browser.Connect(); err != nil {
			return nil, nil, fmt.Errorf("connect remote browser: %w", err)
		}
		return browser, func() { browser.Close() }, nil
	}

	l := launcher.New().Headless(true).Logger(io.Discard)
	if c.opts.BrowserBin != "" {
		l = l.Bin(c.opts.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}
	return browser, func() {
		browser.Close()
		l.Cleanup()
	}, nil
}
