package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"PriceWatcher/internal/site"
)

const (
	configPathEnv      = "PRICE_WATCHER_CONFIG"
	httpAddrEnv        = "HTTP_ADDR"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	scrapeIntervalEnv  = "SCRAPE_INTERVAL"
	browserEngineEnv   = "BROWSER_ENGINE"
	browserHeadlessEnv = "BROWSER_HEADLESS"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	logLevelEnv        = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	HTTP          HTTPConfig         `yaml:"http"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Browser       BrowserConfig      `yaml:"browser"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// HTTPConfig describes the API listener and the on-demand scrape limiter.
type HTTPConfig struct {
	Addr        string  `yaml:"addr"`
	ScrapeRate  float64 `yaml:"scrapeRate"`
	ScrapeBurst int     `yaml:"scrapeBurst"`
}

// DatabaseConfig selects the price store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines how often scrape cycles run.
type SchedulerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunOnStart *bool         `yaml:"runOnStart"`
}

// ShouldRunOnStart defaults to true when the flag is not set.
func (s SchedulerConfig) ShouldRunOnStart() bool {
	return s.RunOnStart == nil || *s.RunOnStart
}

// BrowserConfig tunes the rendering engine.
type BrowserConfig struct {
	Engine      string        `yaml:"engine"`
	Headless    *bool         `yaml:"headless"`
	Install     bool          `yaml:"install"`
	PageTimeout time.Duration `yaml:"pageTimeout"`
	UserAgent   string        `yaml:"userAgent"`
}

// IsHeadless defaults to true when the flag is not set.
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SiteConfig describes a single tracked product page.
type SiteConfig struct {
	Name            string      `yaml:"name"`
	URL             string      `yaml:"url"`
	PriceSelector   string      `yaml:"priceSelector"`
	ProductSelector string      `yaml:"productSelector"`
	PriceClean      CleanConfig `yaml:"priceClean"`
	ProductClean    CleanConfig `yaml:"productClean"`
}

// CleanConfig names a text clean rule: "trim" (default) or "split" with a separator.
type CleanConfig struct {
	Kind string `yaml:"kind"`
	Sep  string `yaml:"sep"`
}

// SiteConfigs converts the YAML site list into registry entries.
func (c Config) SiteConfigs() []site.Config {
	sites := make([]site.Config, 0, len(c.Sites))
	for _, s := range c.Sites {
		sites = append(sites, site.Config{
			Name:            s.Name,
			URL:             s.URL,
			PriceSelector:   s.PriceSelector,
			ProductSelector: s.ProductSelector,
			PriceClean:      site.CleanRule{Kind: site.CleanKind(s.PriceClean.Kind), Sep: s.PriceClean.Sep},
			ProductClean:    site.CleanRule{Kind: site.CleanKind(s.ProductClean.Kind), Sep: s.ProductClean.Sep},
		})
	}
	return sites
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if fileCfg, err := readFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(scrapeIntervalEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Scheduler.Interval = d
		} else {
			log.Printf("config: invalid %s=%q, keeping %s", scrapeIntervalEnv, v, c.Scheduler.Interval)
		}
	}

	if v := os.Getenv(browserEngineEnv); v != "" {
		c.Browser.Engine = v
	}

	if v := os.Getenv(browserHeadlessEnv); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = &b
		}
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if override.HTTP.ScrapeRate > 0 {
		base.HTTP.ScrapeRate = override.HTTP.ScrapeRate
	}
	if override.HTTP.ScrapeBurst > 0 {
		base.HTTP.ScrapeBurst = override.HTTP.ScrapeBurst
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.RunOnStart != nil {
		base.Scheduler.RunOnStart = override.Scheduler.RunOnStart
	}

	if override.Browser.Engine != "" {
		base.Browser.Engine = override.Browser.Engine
	}
	if override.Browser.Headless != nil {
		base.Browser.Headless = override.Browser.Headless
	}
	if override.Browser.Install {
		base.Browser.Install = true
	}
	if override.Browser.PageTimeout > 0 {
		base.Browser.PageTimeout = override.Browser.PageTimeout
	}
	if override.Browser.UserAgent != "" {
		base.Browser.UserAgent = override.Browser.UserAgent
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Addr: ":8000", ScrapeRate: 0.1, ScrapeBurst: 1},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "prices.db"},
		Scheduler: SchedulerConfig{Interval: time.Hour},
		Browser: BrowserConfig{
			Engine:      "playwright",
			PageTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Sites:   fromSites(site.Defaults()),
	}
}

func fromSites(sites []site.Config) []SiteConfig {
	out := make([]SiteConfig, 0, len(sites))
	for _, s := range sites {
		out = append(out, SiteConfig{
			Name:            s.Name,
			URL:             s.URL,
			PriceSelector:   s.PriceSelector,
			ProductSelector: s.ProductSelector,
			PriceClean:      CleanConfig{Kind: string(s.PriceClean.Kind), Sep: s.PriceClean.Sep},
			ProductClean:    CleanConfig{Kind: string(s.ProductClean.Kind), Sep: s.ProductClean.Sep},
		})
	}
	return out
}
