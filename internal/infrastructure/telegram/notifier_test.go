package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceWatcher/internal/domain"
)

var change = domain.PriceChange{
	Site:        "Katom",
	URL:         "https://www.katom.com/003-88711.html",
	ProductName: "Condiment Caddy",
	Currency:    "$",
	OldPrice:    54.99,
	NewPrice:    49.5,
}

func TestPublishPriceChange(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("bot-token", "42").WithAPIBase(srv.URL + "/")
	require.NoError(t, n.PublishPriceChange(context.Background(), change))

	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "42", gotForm["chat_id"])
	assert.Equal(t, "Markdown", gotForm["parse_mode"])
	assert.Equal(t, "*Katom*: price down\nCondiment Caddy\n$54.99 -> $49.50\nhttps://www.katom.com/003-88711.html", gotForm["text"])
}

func TestPublishPriceChangeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewNotifier("bad", "42").WithAPIBase(srv.URL).PublishPriceChange(context.Background(), change)
	assert.ErrorContains(t, err, "401")

	err = NewNotifier("", "42").PublishPriceChange(context.Background(), change)
	assert.ErrorContains(t, err, "misconfigured")
}

func TestBuildMessageDirection(t *testing.T) {
	up := change
	up.OldPrice, up.NewPrice, up.Currency = 1, 2, ""
	assert.Contains(t, buildMessage(up), "price up")
	assert.Contains(t, buildMessage(up), "$1.00 -> $2.00")
}

func TestBuildMessageEscapesMarkdown(t *testing.T) {
	c := change
	c.Site = "Shop_One"
	c.ProductName = "Caddy *Pro* [3`tier]"
	c.URL = "https://shop.example/item_1"

	msg := buildMessage(c)

	assert.Equal(t, "*Shop\\_One*: price down\nCaddy \\*Pro\\* \\[3\\`tier]\n$54.99 -> $49.50\nhttps://shop.example/item\\_1", msg)
}
