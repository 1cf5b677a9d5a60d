package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceWatcher/internal/config"
)

const productPage = `<html><body>
<h1 class="product-name">  Wire Condiment Caddy </h1>
<span class="product-price-text">$54.99 each</span>
</body></html>`

func testConfig(t *testing.T, pageURL string) config.Config {
	t.Helper()
	runOnStart := true
	return config.Config{
		HTTP:      config.HTTPConfig{Addr: "127.0.0.1:0"},
		Database:  config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "prices.db")},
		Scheduler: config.SchedulerConfig{Interval: time.Hour, RunOnStart: &runOnStart},
		Browser:   config.BrowserConfig{Engine: "static", PageTimeout: 5 * time.Second},
		Logging:   config.LoggingConfig{Level: "error"},
		Sites: []config.SiteConfig{{
			Name:            "Katom",
			URL:             pageURL,
			PriceSelector:   ".product-price-text",
			ProductSelector: "h1.product-name",
			PriceClean:      config.CleanConfig{Kind: "split", Sep: " "},
		}},
	}
}

func TestApplicationScrapesOnStart(t *testing.T) {
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, productPage)
	}))
	defer shop.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := New(ctx, testConfig(t, shop.URL), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	require.Eventually(t, func() bool {
		rows, err := application.store.ListBySite(context.Background(), "Katom", 10)
		return err == nil && len(rows) == 1
	}, 5*time.Second, 20*time.Millisecond)

	rows, err := application.store.ListBySite(context.Background(), "Katom", 10)
	require.NoError(t, err)
	assert.InDelta(t, 54.99, rows[0].Price, 1e-9)
	assert.Equal(t, "$", rows[0].Currency)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	discard := slog.New(slog.DiscardHandler)

	cfg := testConfig(t, "http://127.0.0.1")
	cfg.Database.Driver = "mysql"
	_, err := New(ctx, cfg, discard)
	assert.ErrorContains(t, err, "unsupported database driver")

	cfg = testConfig(t, "http://127.0.0.1")
	cfg.Browser.Engine = "firefox"
	_, err = New(ctx, cfg, discard)
	assert.ErrorContains(t, err, "not registered")

	cfg = testConfig(t, "http://127.0.0.1")
	cfg.Sites = append(cfg.Sites, cfg.Sites[0])
	_, err = New(ctx, cfg, discard)
	assert.ErrorContains(t, err, "load sites")
}
