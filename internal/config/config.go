package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything needed to run a capture pipeline. Every field has
// a default matching the CLI's documented behaviour, so a config file is only
// needed to deviate from it.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Browser BrowserConfig `yaml:"browser"`
	Links   LinksConfig   `yaml:"links"`
	Store   StoreConfig   `yaml:"store"`
	Robots  RobotsConfig  `yaml:"robots"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// CaptureConfig controls retry behaviour and politeness delays.
type CaptureConfig struct {
	MaxAttempts     int             `yaml:"max_attempts"`
	TimeoutBackoff  Duration        `yaml:"timeout_backoff"`
	SuccessCooldown Duration        `yaml:"success_cooldown"`
	PerDomainDelay  Duration        `yaml:"per_domain_delay"`
	RateLimit       RateLimitConfig `yaml:"rate_limit_per_domain"`
}

// RateLimitConfig applies an optional token bucket per domain.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether per-domain rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// BrowserConfig controls the headless Chrome sessions.
type BrowserConfig struct {
	NavTimeout      Duration `yaml:"nav_timeout"`
	IdleWindow      Duration `yaml:"idle_window"`
	UserAgent       string   `yaml:"user_agent"`
	PageFormat      string   `yaml:"page_format"`
	WidenCSS        string   `yaml:"widen_css"`
	DisableHeadless bool     `yaml:"disable_headless"`
}

// LinksConfig tunes anchor extraction scopes for the two discovery modes.
type LinksConfig struct {
	NavScope    string `yaml:"nav_scope"`
	ExpandScope string `yaml:"expand_scope"`
}

// StoreConfig locates the scratch directory for per-page artifacts.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// RobotsConfig configures robots.txt handling. Off by default: the operator
// names the target pages explicitly.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// HistoryConfig describes the optional capture-outcome journal.
type HistoryConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// Enabled reports whether the journal should be opened.
func (h HistoryConfig) Enabled() bool {
	return h.Driver != "" && h.DSN != ""
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// DefaultWidenCSS removes fixed max-width constraints from common content
// containers so the print capture is not squeezed into a screen column.
const DefaultWidenCSS = `body, main, article, .container, .content,
[class*="container"], [class*="wrapper"], [class*="content"] {
  max-width: none !important;
}`

// Default returns a Config populated with the documented defaults.
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			MaxAttempts:     3,
			TimeoutBackoff:  DurationFrom(30 * time.Second),
			SuccessCooldown: DurationFrom(10 * time.Second),
		},
		Browser: BrowserConfig{
			NavTimeout: DurationFrom(60 * time.Second),
			IdleWindow: DurationFrom(500 * time.Millisecond),
			PageFormat: "A4",
			WidenCSS:   DefaultWidenCSS,
		},
		Links: LinksConfig{
			NavScope:    "nav a[href]",
			ExpandScope: "a[href]",
		},
		Store: StoreConfig{
			Dir: "./temp_pdfs",
		},
		Robots: RobotsConfig{
			Respect:   false,
			Overrides: []string{},
			UserAgent: "site-to-pdf/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		History: HistoryConfig{
			Driver:      "postgres",
			AutoMigrate: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	// An empty file carries no overrides; yaml reports it as io.EOF.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants for the capture pipeline.
func (c Config) Validate() error {
	if c.Capture.MaxAttempts <= 0 {
		return fmt.Errorf("capture.max_attempts must be > 0 (got %d)", c.Capture.MaxAttempts)
	}
	if c.Capture.TimeoutBackoff.Duration < 0 {
		return fmt.Errorf("capture.timeout_backoff must be >= 0 (got %s)", c.Capture.TimeoutBackoff)
	}
	if c.Capture.SuccessCooldown.Duration < 0 {
		return fmt.Errorf("capture.success_cooldown must be >= 0 (got %s)", c.Capture.SuccessCooldown)
	}
	if c.Capture.RateLimit.Requests < 0 {
		return fmt.Errorf("capture.rate_limit_per_domain.requests must be >= 0 (got %d)", c.Capture.RateLimit.Requests)
	}
	if c.Browser.NavTimeout.Duration <= 0 {
		return fmt.Errorf("browser.nav_timeout must be > 0 (got %s)", c.Browser.NavTimeout)
	}
	if c.Browser.IdleWindow.Duration <= 0 {
		return fmt.Errorf("browser.idle_window must be > 0 (got %s)", c.Browser.IdleWindow)
	}
	switch strings.ToUpper(c.Browser.PageFormat) {
	case "A4", "LETTER":
	default:
		return fmt.Errorf("browser.page_format must be A4 or Letter (got %q)", c.Browser.PageFormat)
	}
	if strings.TrimSpace(c.Links.NavScope) == "" {
		return errors.New("links.nav_scope must be set")
	}
	if strings.TrimSpace(c.Links.ExpandScope) == "" {
		return errors.New("links.expand_scope must be set")
	}
	if strings.TrimSpace(c.Store.Dir) == "" {
		return errors.New("store.dir must be set")
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	if c.History.DSN != "" && c.History.Driver == "" {
		return errors.New("history.driver must be set when history.dsn is set")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) normalise() {
	c.Browser.UserAgent = strings.TrimSpace(c.Browser.UserAgent)
	c.Browser.PageFormat = strings.TrimSpace(c.Browser.PageFormat)
	c.Links.NavScope = strings.TrimSpace(c.Links.NavScope)
	c.Links.ExpandScope = strings.TrimSpace(c.Links.ExpandScope)
	c.Store.Dir = strings.TrimSpace(c.Store.Dir)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.History.Driver = strings.TrimSpace(c.History.Driver)
	c.History.DSN = strings.TrimSpace(c.History.DSN)

	if len(c.Robots.Overrides) > 0 {
		unique := make(map[string]struct{}, len(c.Robots.Overrides))
		cleaned := make([]string, 0, len(c.Robots.Overrides))
		for _, raw := range c.Robots.Overrides {
			host := strings.ToLower(strings.TrimSpace(raw))
			if host == "" {
				continue
			}
			if _, exists := unique[host]; exists {
				continue
			}
			unique[host] = struct{}{}
			cleaned = append(cleaned, host)
		}
		sort.Strings(cleaned)
		c.Robots.Overrides = cleaned
	}
}
