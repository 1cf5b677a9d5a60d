package ports

import (
	"context"
	"time"

	"PriceWatcher/internal/domain"
)

// LaunchOptions configures a browser process.
type LaunchOptions struct {
	Headless  bool
	UserAgent string
}

// BrowserEngine starts browser processes (Playwright, plain HTTP, etc.).
type BrowserEngine interface {
	Name() string
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is one running browser process.
type Browser interface {
	NewContext(ctx context.Context) (BrowserContext, error)
	Close() error
}

// BrowserContext is an isolated browsing session shared by several pages.
type BrowserContext interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab. TextContent reports found=false when nothing matches the selector.
type Page interface {
	Goto(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	WaitForLoad(ctx context.Context) error
	TextContent(ctx context.Context, selector string) (text string, found bool, err error)
	Close() error
}

// PageSession exposes the per-site pages to the scrape cycle.
type PageSession interface {
	EnsureInitialized(ctx context.Context) error
	Reload(ctx context.Context) error
	TextContent(ctx context.Context, index int, selector string) (string, bool, error)
}

// PriceRepository is the append-only price log.
type PriceRepository interface {
	Record(ctx context.Context, site string, price float64, currency string) error
	ListRecent(ctx context.Context, limit int) ([]domain.PriceRecord, error)
	ListBySite(ctx context.Context, site string, limit int) ([]domain.PriceRecord, error)
	ListBySitePaginated(ctx context.Context, site string, offset, limit int) (domain.PricePage, error)
}

// Notifier announces price changes to Telegram or other channels.
type Notifier interface {
	PublishPriceChange(ctx context.Context, change domain.PriceChange) error
}

// Scheduler controls when scrape cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
