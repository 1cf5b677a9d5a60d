package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PriceWatcher/internal/ports"
)

const defaultUserAgent = "PriceWatcher/1.0"

var errPageNotLoaded = errors.New("page has no loaded document")

// StaticEngine renders pages by fetching their HTML and evaluating selectors
// with goquery. It runs no JavaScript, so it only suits server-rendered pages.
type StaticEngine struct {
	client *http.Client
}

var _ ports.BrowserEngine = (*StaticEngine)(nil)

// NewStaticEngine wires an HTTP client; a nil client gets a 20s timeout.
func NewStaticEngine(client *http.Client) *StaticEngine {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &StaticEngine{client: client}
}

// Name identifies the engine inside the registry.
func (e *StaticEngine) Name() string {
	return "static"
}

// Launch returns a lightweight browser handle; nothing is spawned.
func (e *StaticEngine) Launch(_ context.Context, opts ports.LaunchOptions) (ports.Browser, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &staticBrowser{client: e.client, userAgent: ua}, nil
}

type staticBrowser struct {
	client    *http.Client
	userAgent string
}

func (b *staticBrowser) NewContext(context.Context) (ports.BrowserContext, error) {
	return &staticContext{browser: b}, nil
}

func (b *staticBrowser) Close() error { return nil }

type staticContext struct {
	browser *staticBrowser
}

func (c *staticContext) NewPage(context.Context) (ports.Page, error) {
	return &staticPage{client: c.browser.client, userAgent: c.browser.userAgent}, nil
}

func (c *staticContext) Close() error { return nil }

type staticPage struct {
	client    *http.Client
	userAgent string

	mu  sync.Mutex
	url string
	doc *goquery.Document
}

func (p *staticPage) Goto(ctx context.Context, target string) error {
	doc, err := p.fetchDocument(ctx, target)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.url = target
	p.doc = doc
	p.mu.Unlock()
	return nil
}

func (p *staticPage) Reload(ctx context.Context) error {
	p.mu.Lock()
	target := p.url
	p.mu.Unlock()

	if target == "" {
		return errPageNotLoaded
	}
	return p.Goto(ctx, target)
}

// WaitForLoad succeeds as soon as a document is held; fetching is synchronous.
func (p *staticPage) WaitForLoad(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return errPageNotLoaded
	}
	return nil
}

func (p *staticPage) TextContent(_ context.Context, selector string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doc == nil {
		return "", false, errPageNotLoaded
	}

	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false, nil
	}
	return sel.Text(), true, nil
}

func (p *staticPage) Close() error {
	p.mu.Lock()
	p.doc = nil
	p.mu.Unlock()
	return nil
}

func (p *staticPage) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", hostOf(pageURL), resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return pageURL
	}
	return u.Host
}
