package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// markdownEscaper escapes the entity markers of Telegram's legacy Markdown mode.
var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

// Notifier sends price change alerts to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// PublishPriceChange posts a Markdown message describing the change.
func (n *Notifier) PublishPriceChange(ctx context.Context, change domain.PriceChange) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", buildMessage(change))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func buildMessage(c domain.PriceChange) string {
	direction := "up"
	if c.NewPrice < c.OldPrice {
		direction = "down"
	}
	currency := c.Currency
	if currency == "" {
		currency = domain.FallbackCurrency
	}
	currency = escapeMarkdown(currency)
	return fmt.Sprintf("*%s*: price %s\n%s\n%s%.2f -> %s%.2f\n%s",
		escapeMarkdown(c.Site), direction,
		escapeMarkdown(c.ProductName),
		currency, c.OldPrice, currency, c.NewPrice,
		escapeMarkdown(c.URL))
}

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
