package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceWatcher/internal/ports"
	"PriceWatcher/internal/site"
)

func TestHostOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "www.katom.com", hostOf("https://www.katom.com/003-88711.html"))
	assert.Equal(t, "not a url", hostOf("not a url"))
}

func TestStaticEnginePageLifecycle(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if r.Header.Get("User-Agent") != "watcher-test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = fmt.Fprintf(w, `
		<html><body>
		  <h1 class="product-name">  Wire Condiment Caddy </h1>
		  <div class="price__current"><span class="price">$%d.99 /case</span></div>
		</body></html>`, n)
	}))
	defer server.Close()

	engine := NewStaticEngine(server.Client())
	ctx := context.Background()

	b, err := engine.Launch(ctx, ports.LaunchOptions{UserAgent: "watcher-test"})
	require.NoError(t, err)
	bctx, err := b.NewContext(ctx)
	require.NoError(t, err)
	page, err := bctx.NewPage(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, page.WaitForLoad(ctx), errPageNotLoaded)
	assert.ErrorIs(t, page.Reload(ctx), errPageNotLoaded)

	require.NoError(t, page.Goto(ctx, server.URL+"/item"))
	require.NoError(t, page.WaitForLoad(ctx))

	text, found, err := page.TextContent(ctx, ".price__current .price")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "$1.99 /case", text)

	text, found, err = page.TextContent(ctx, "h1.product-name")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "  Wire Condiment Caddy ", text)

	_, found, err = page.TextContent(ctx, ".does-not-exist")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, page.Reload(ctx))
	text, _, err = page.TextContent(ctx, ".price")
	require.NoError(t, err)
	assert.Equal(t, "$2.99 /case", text, "reload fetches a fresh document")

	require.NoError(t, page.Close())
	require.NoError(t, bctx.Close())
	require.NoError(t, b.Close())
}

func TestStaticEngineRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine := NewStaticEngine(server.Client())
	b, err := engine.Launch(context.Background(), ports.LaunchOptions{})
	require.NoError(t, err)
	bctx, err := b.NewContext(context.Background())
	require.NoError(t, err)
	page, err := bctx.NewPage(context.Background())
	require.NoError(t, err)

	err = page.Goto(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSessionOverStaticEngine(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `<span class="price">%s</span><h1>%s</h1>`, r.URL.Path, r.URL.Path)
	}))
	defer server.Close()

	sites := []site.Config{
		{Name: "one", URL: server.URL + "/one", PriceSelector: ".price", ProductSelector: "h1"},
		{Name: "two", URL: server.URL + "/two", PriceSelector: ".price", ProductSelector: "h1"},
	}

	reg := NewRegistry()
	reg.Register(NewStaticEngine(server.Client()))
	engine, err := reg.Resolve("static")
	require.NoError(t, err)
	_, err = reg.Resolve("chromedp")
	assert.Error(t, err)

	s := NewSession(engine, sites, SessionConfig{}, nil)
	ctx := context.Background()
	require.NoError(t, s.EnsureInitialized(ctx))
	require.NoError(t, s.Reload(ctx))

	text, found, err := s.TextContent(ctx, 1, "h1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "/two", text)
}
