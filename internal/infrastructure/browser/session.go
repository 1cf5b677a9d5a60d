package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"PriceWatcher/internal/ports"
	"PriceWatcher/internal/site"
)

var (
	ErrBrowserInit = errors.New("browser initialization failed")
	ErrNavigation  = errors.New("page navigation failed")
)

// SessionConfig tunes how the session launches and drives pages.
type SessionConfig struct {
	Headless    bool
	UserAgent   string
	PageTimeout time.Duration
}

// Session owns one browser, one shared context and one page per site.
type Session struct {
	engine ports.BrowserEngine
	sites  []site.Config
	cfg    SessionConfig
	logger *slog.Logger

	mu      sync.Mutex
	browser ports.Browser
	context ports.BrowserContext
	pages   []ports.Page
}

var _ ports.PageSession = (*Session)(nil)

// NewSession wires an engine with the sites whose pages it will hold.
func NewSession(engine ports.BrowserEngine, sites []site.Config, cfg SessionConfig, log *slog.Logger) *Session {
	return &Session{
		engine: engine,
		sites:  sites,
		cfg:    cfg,
		logger: log,
	}
}

// EnsureInitialized launches the browser and opens every site page once.
// Later calls return immediately. A failed launch tears down whatever was
// created so the next call starts from scratch.
func (s *Session) EnsureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return nil
	}
	if s.engine == nil {
		return fmt.Errorf("%w: engine is not configured", ErrBrowserInit)
	}

	s.info("initializing browser", "engine", s.engine.Name(), "pages", len(s.sites))
	if err := s.launch(ctx); err != nil {
		if closeErr := s.teardown(); closeErr != nil {
			s.warn("teardown after failed init", "error", closeErr)
		}
		return fmt.Errorf("%w: %w", ErrBrowserInit, err)
	}
	s.info("browser initialized")
	return nil
}

func (s *Session) launch(ctx context.Context) error {
	if err := s.startBrowser(ctx); err != nil {
		return err
	}
	bctx := s.context

	s.pages = make([]ports.Page, len(s.sites))
	err := s.fanOut(ctx, len(s.sites), func(ctx context.Context, i int) error {
		page, err := bctx.NewPage(ctx)
		if err != nil {
			return fmt.Errorf("new page for %s: %w", s.sites[i].Name, err)
		}
		s.pages[i] = page
		return nil
	})
	if err != nil {
		return err
	}

	err = s.fanOut(ctx, len(s.pages), func(ctx context.Context, i int) error {
		if err := s.pages[i].Goto(ctx, s.sites[i].URL); err != nil {
			return fmt.Errorf("goto %s: %w", s.sites[i].Name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.waitAll(ctx)
}

// Reload refreshes every page in parallel and waits until all of them are loaded.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return fmt.Errorf("%w: session is not initialized", ErrNavigation)
	}

	err := s.fanOut(ctx, len(s.pages), func(ctx context.Context, i int) error {
		if err := s.pages[i].Reload(ctx); err != nil {
			return fmt.Errorf("reload %s: %w", s.sites[i].Name, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}

	if err := s.waitAll(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	return nil
}

// TextContent reads the text at selector on the page of the index-th site.
func (s *Session) TextContent(ctx context.Context, index int, selector string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.pages) {
		return "", false, fmt.Errorf("page index %d out of range (%d pages)", index, len(s.pages))
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pages[index].TextContent(opCtx, selector)
}

// Initialized reports whether a browser is currently held.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser != nil
}

// Close releases pages, context and browser.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardown()
}

func (s *Session) waitAll(ctx context.Context) error {
	return s.fanOut(ctx, len(s.pages), func(ctx context.Context, i int) error {
		if err := s.pages[i].WaitForLoad(ctx); err != nil {
			return fmt.Errorf("wait for %s: %w", s.sites[i].Name, err)
		}
		return nil
	})
}

// fanOut runs op for every index concurrently, each bounded by the page
// timeout, and returns the first error once all of them have finished.
func (s *Session) fanOut(ctx context.Context, n int, op func(ctx context.Context, i int) error) error {
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			opCtx, cancel := s.withTimeout(ctx)
			defer cancel()
			return op(opCtx, i)
		})
	}
	return g.Wait()
}

// startBrowser launches the process and its context within one page timeout.
func (s *Session) startBrowser(ctx context.Context) error {
	launchCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	browser, err := s.engine.Launch(launchCtx, ports.LaunchOptions{
		Headless:  s.cfg.Headless,
		UserAgent: s.cfg.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	s.browser = browser

	bctx, err := browser.NewContext(launchCtx)
	if err != nil {
		return fmt.Errorf("new context: %w", err)
	}
	s.context = bctx
	return nil
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.PageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.PageTimeout)
}

func (s *Session) teardown() error {
	var errs []error
	for _, page := range s.pages {
		if page == nil {
			continue
		}
		if err := page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}

	s.pages = nil
	s.context = nil
	s.browser = nil
	return errors.Join(errs...)
}

func (s *Session) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Session) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
