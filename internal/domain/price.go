package domain

import "time"

const (
	// DefaultCurrency is stored when a record arrives without a currency.
	DefaultCurrency = "USD"
	// FallbackCurrency is used by the scraper when no symbol was found in the price text.
	FallbackCurrency = "$"
	// ProductNotFound replaces the product name when its selector matched nothing.
	ProductNotFound = "Product not found"
)

// SiteState is the latest scraped view of one tracked site.
type SiteState struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	ProductName string    `json:"productName"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// PriceRecord is one immutable row of the price log.
type PriceRecord struct {
	ID        int64     `json:"id"`
	Site      string    `json:"site"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// PricePage is a window of a site's history together with its total size.
type PricePage struct {
	Site    string        `json:"site"`
	Data    []PriceRecord `json:"data"`
	Total   int           `json:"total"`
	Offset  int           `json:"offset"`
	Limit   int           `json:"limit"`
	HasMore bool          `json:"hasMore"`
}

// PriceChange describes a transition between two positive prices of a site.
type PriceChange struct {
	Site        string
	URL         string
	ProductName string
	Currency    string
	OldPrice    float64
	NewPrice    float64
}
