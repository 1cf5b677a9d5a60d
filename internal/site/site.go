package site

import (
	"fmt"
	"strings"
)

// CleanKind selects how raw element text is turned into a display string.
type CleanKind string

const (
	CleanTrim  CleanKind = "trim"
	CleanSplit CleanKind = "split"
)

// CleanRule is the per-site text transform. The zero value trims whitespace.
type CleanRule struct {
	Kind CleanKind
	Sep  string
}

// Apply runs the rule against raw element text.
// A split rule keeps the text before the first separator; when that part is
// empty the whole trimmed text is kept instead.
func (r CleanRule) Apply(text string) string {
	trimmed := strings.TrimSpace(text)
	if r.Kind != CleanSplit || r.Sep == "" {
		return trimmed
	}

	head, _, _ := strings.Cut(trimmed, r.Sep)
	if head = strings.TrimSpace(head); head != "" {
		return head
	}
	return trimmed
}

func (r CleanRule) validate() error {
	switch r.Kind {
	case "", CleanTrim:
		return nil
	case CleanSplit:
		if r.Sep == "" {
			return fmt.Errorf("split rule requires a separator")
		}
		return nil
	default:
		return fmt.Errorf("unknown clean rule %q", r.Kind)
	}
}

// Config describes one tracked product page.
type Config struct {
	Name            string
	URL             string
	PriceSelector   string
	ProductSelector string
	PriceClean      CleanRule
	ProductClean    CleanRule
}

// CleanPrice applies the site's price rule.
func (c Config) CleanPrice(text string) string {
	return c.PriceClean.Apply(text)
}

// CleanProduct applies the site's product-name rule.
func (c Config) CleanProduct(text string) string {
	return c.ProductClean.Apply(text)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("site name is empty")
	}
	if c.URL == "" {
		return fmt.Errorf("site %s: url is empty", c.Name)
	}
	if c.PriceSelector == "" {
		return fmt.Errorf("site %s: price selector is empty", c.Name)
	}
	if c.ProductSelector == "" {
		return fmt.Errorf("site %s: product selector is empty", c.Name)
	}
	if err := c.PriceClean.validate(); err != nil {
		return fmt.Errorf("site %s: price clean: %w", c.Name, err)
	}
	if err := c.ProductClean.validate(); err != nil {
		return fmt.Errorf("site %s: product clean: %w", c.Name, err)
	}
	return nil
}

// Defaults returns the built-in list of tracked pages.
func Defaults() []Config {
	return []Config{
		{
			Name:            "Katom",
			URL:             "https://www.katom.com/003-88711.html",
			PriceSelector:   ".product-price-text",
			ProductSelector: "h1.product-name",
			PriceClean:      CleanRule{Kind: CleanSplit, Sep: " "},
		},
		{
			Name:            "WebstaurantStore",
			URL:             "https://www.webstaurantstore.com/server-wirewise-3-compartment-tiered-condiment-bar-with-1-9-size-jars-hinged-lids-and-serving-spoons/71888711.html",
			PriceSelector:   `[data-testid="price-container"] .price`,
			ProductSelector: "h1.skip-to-main-target",
			PriceClean:      CleanRule{Kind: CleanSplit, Sep: "/"},
		},
		{
			Name:            "RestaurantSupply",
			URL:             "https://www.restaurantsupply.com/products/server-products-88711-4-81-inch-wire-3-tier-condiment-caddy-black-with-jars?variant=46300334326014",
			PriceSelector:   ".price__current .price",
			ProductSelector: "h1.product-title",
		},
	}
}
