package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"PriceWatcher/internal/ports"
)

// PlaywrightEngine drives a real Chromium through playwright-go.
type PlaywrightEngine struct {
	install bool
	logger  *slog.Logger
}

var _ ports.BrowserEngine = (*PlaywrightEngine)(nil)

// NewPlaywrightEngine builds the engine. With install set, the driver and
// Chromium are downloaded on first launch.
func NewPlaywrightEngine(install bool, log *slog.Logger) *PlaywrightEngine {
	return &PlaywrightEngine{install: install, logger: log}
}

// Name identifies the engine inside the registry.
func (e *PlaywrightEngine) Name() string {
	return "playwright"
}

// Launch starts the driver and a Chromium process.
func (e *PlaywrightEngine) Launch(ctx context.Context, opts ports.LaunchOptions) (ports.Browser, error) {
	if e.install {
		if e.logger != nil {
			e.logger.Info("installing playwright driver and chromium")
		}
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Timeout:  timeoutMillis(ctx),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &pwBrowser{pw: pw, browser: browser, userAgent: opts.UserAgent}, nil
}

type pwBrowser struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	userAgent string
}

func (b *pwBrowser) NewContext(context.Context) (ports.BrowserContext, error) {
	var opts playwright.BrowserNewContextOptions
	if b.userAgent != "" {
		opts.UserAgent = playwright.String(b.userAgent)
	}
	bctx, err := b.browser.NewContext(opts)
	if err != nil {
		return nil, err
	}
	return &pwContext{ctx: bctx}, nil
}

func (b *pwBrowser) Close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

type pwContext struct {
	ctx playwright.BrowserContext
}

func (c *pwContext) NewPage(context.Context) (ports.Page, error) {
	page, err := c.ctx.NewPage()
	if err != nil {
		return nil, err
	}
	return &pwPage{page: page}, nil
}

func (c *pwContext) Close() error {
	return c.ctx.Close()
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(ctx context.Context, url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMillis(ctx),
	})
	return err
}

func (p *pwPage) Reload(ctx context.Context) error {
	_, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMillis(ctx),
	})
	return err
}

func (p *pwPage) WaitForLoad(ctx context.Context) error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: timeoutMillis(ctx),
	})
}

// TextContent counts matches first so a missing element does not block until the timeout.
func (p *pwPage) TextContent(ctx context.Context, selector string) (string, bool, error) {
	loc := p.page.Locator(selector).First()
	n, err := loc.Count()
	if err != nil {
		return "", false, fmt.Errorf("count %q: %w", selector, err)
	}
	if n == 0 {
		return "", false, nil
	}

	text, err := loc.TextContent(playwright.LocatorTextContentOptions{Timeout: timeoutMillis(ctx)})
	if err != nil {
		return "", false, fmt.Errorf("text of %q: %w", selector, err)
	}
	return text, true, nil
}

func (p *pwPage) Close() error {
	return p.page.Close()
}

// timeoutMillis maps a context deadline onto playwright's millisecond timeout.
// Without a deadline playwright keeps its own default.
func timeoutMillis(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}
