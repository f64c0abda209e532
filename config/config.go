package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/placescout/models"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Search    SearchConfig
	Extract   ExtractConfig
	Output    OutputConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// Proxy is the proxy URL handed to Chromium.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects the go-rod/stealth evasions before navigation.
	Stealth bool // default: false

	UserAgent      string
	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 900
}

// ScraperConfig controls navigation, retries and request filtering.
type ScraperConfig struct {
	// MaxAttempts is the total number of navigation attempts. Must be >= 1.
	MaxAttempts int // default: 3

	// AttemptTimeout bounds a single navigation attempt, readiness wait included.
	AttemptTimeout time.Duration // default: 70s

	// Backoff is the delay before a retry. With the exponential strategy it
	// doubles per retry up to MaxBackoff.
	Backoff    time.Duration // default: 2s
	MaxBackoff time.Duration // default: 30s

	// BackoffStrategy is "constant" or "exponential"; default: "constant".
	BackoffStrategy string

	// ReadySelector must be attached to the DOM before a navigation counts as loaded.
	ReadySelector string // default: "#searchresults"

	// BlockedResourceTypes lists resource types the browser never loads.
	// default: ["image", "font", "media"]
	BlockedResourceTypes []string

	// BlockedHosts lists hosts (and their subdomains) the browser never contacts.
	BlockedHosts []string

	// NavigationsPerSecond paces navigations; Nominatim allows one per second.
	NavigationsPerSecond float64 // default: 1

	// DebugDir receives a screenshot of every failed attempt when non-empty.
	DebugDir string

	// RespectRobots checks robots.txt before the first navigation.
	RespectRobots bool // default: false
}

// SearchConfig describes the query sent to the map-search UI.
type SearchConfig struct {
	BaseURL string // default: "https://nominatim.openstreetmap.org/ui/search.html"
	Term    string // default: "Workshop"
	Country string // default: "Canada"
	Limit   int    // default: 50
}

// ExtractConfig holds the result-list selectors and the bounded wait.
type ExtractConfig struct {
	ItemSelector   string // default: `div[role="listitem"]`
	NameSelector   string // default: "span.name"
	TypeSelector   string // default: "span.type"
	CoordsSelector string // default: "p.coords"

	// WaitTimeout bounds the wait for the first result item.
	WaitTimeout time.Duration // default: 5s

	// SettleDelay lets trickling results land after the first item appears.
	SettleDelay time.Duration // default: 500ms
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Path   string // default: "output/places.csv"
	Format string // "csv" or "json"; default: "csv"

	// DBPath additionally stores each run in a SQLite database when set.
	DBPath string
}

// AuthConfig controls API key authentication for the HTTP API.
type AuthConfig struct {
	Enabled bool // default: false
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting of the HTTP API.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 0.2
	Burst             int     // default: 2
}

// CacheConfig controls the search response cache.
type CacheConfig struct {
	MaxEntries int           // default: 256
	TTL        time.Duration // default: 1h; entries older than this are swept
}

// WebhookConfig enables run notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PLACESCOUT_HOST", "127.0.0.1"),
			Port: envIntOr("PLACESCOUT_PORT", 8080),
			Mode: envOr("PLACESCOUT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("PLACESCOUT_HEADLESS", true),
			Proxy:          os.Getenv("PLACESCOUT_PROXY"),
			NoSandbox:      envBoolOr("PLACESCOUT_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("PLACESCOUT_BROWSER_BIN"),
			Stealth:        envBoolOr("PLACESCOUT_STEALTH", false),
			UserAgent:      envOr("PLACESCOUT_USER_AGENT", defaultUserAgent),
			ViewportWidth:  envIntOr("PLACESCOUT_VIEWPORT_WIDTH", 1280),
			ViewportHeight: envIntOr("PLACESCOUT_VIEWPORT_HEIGHT", 900),
		},
		Scraper: ScraperConfig{
			MaxAttempts:     envIntOr("PLACESCOUT_MAX_ATTEMPTS", 3),
			AttemptTimeout:  envDurationOr("PLACESCOUT_ATTEMPT_TIMEOUT", 70*time.Second),
			Backoff:         envDurationOr("PLACESCOUT_BACKOFF", 2*time.Second),
			MaxBackoff:      envDurationOr("PLACESCOUT_MAX_BACKOFF", 30*time.Second),
			BackoffStrategy: envOr("PLACESCOUT_BACKOFF_STRATEGY", "constant"),
			ReadySelector:   envOr("PLACESCOUT_READY_SELECTOR", "#searchresults"),
			BlockedResourceTypes: envSliceOr("PLACESCOUT_BLOCKED_RESOURCES", []string{
				"image", "font", "media",
			}),
			BlockedHosts: envSliceOr("PLACESCOUT_BLOCKED_HOSTS", []string{
				"tile.openstreetmap.org",
				"tiles.openstreetmap.org",
				"basemaps.cartocdn.com",
				"cartocdn.com",
				"fastly.net",
				"gstatic.com",
				"googleapis.com",
			}),
			NavigationsPerSecond: envFloatOr("PLACESCOUT_NAV_RPS", 1.0),
			DebugDir:             os.Getenv("PLACESCOUT_DEBUG_DIR"),
			RespectRobots:        envBoolOr("PLACESCOUT_RESPECT_ROBOTS", false),
		},
		Search: SearchConfig{
			BaseURL: envOr("PLACESCOUT_BASE_URL", "https://nominatim.openstreetmap.org/ui/search.html"),
			Term:    envOr("PLACESCOUT_TERM", "Workshop"),
			Country: envOr("PLACESCOUT_COUNTRY", "Canada"),
			Limit:   envIntOr("PLACESCOUT_LIMIT", models.DefaultLimit),
		},
		Extract: ExtractConfig{
			ItemSelector:   envOr("PLACESCOUT_ITEM_SELECTOR", `div[role="listitem"]`),
			NameSelector:   envOr("PLACESCOUT_NAME_SELECTOR", "span.name"),
			TypeSelector:   envOr("PLACESCOUT_TYPE_SELECTOR", "span.type"),
			CoordsSelector: envOr("PLACESCOUT_COORDS_SELECTOR", "p.coords"),
			WaitTimeout:    envDurationOr("PLACESCOUT_RESULTS_WAIT", 5*time.Second),
			SettleDelay:    envDurationOr("PLACESCOUT_SETTLE_DELAY", 500*time.Millisecond),
		},
		Output: OutputConfig{
			Path:   envOr("PLACESCOUT_OUTPUT", "output/places.csv"),
			Format: envOr("PLACESCOUT_FORMAT", "csv"),
			DBPath: os.Getenv("PLACESCOUT_DB"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PLACESCOUT_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PLACESCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PLACESCOUT_RATE_RPS", 0.2),
			Burst:             envIntOr("PLACESCOUT_RATE_BURST", 2),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PLACESCOUT_CACHE_MAX_ENTRIES", 256),
			TTL:        envDurationOr("PLACESCOUT_CACHE_TTL", time.Hour),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("PLACESCOUT_WEBHOOK_URL"),
			Secret: os.Getenv("PLACESCOUT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("PLACESCOUT_LOG_LEVEL", "info"),
			Format: envOr("PLACESCOUT_LOG_FORMAT", "text"),
		},
	}
}

// Validate rejects settings that would make a run fail in a confusing way
// later on. It returns an INVALID_INPUT ScrapeError.
func (c *Config) Validate() error {
	if c.Scraper.MaxAttempts <= 0 {
		return models.ConfigError("max attempts must be at least 1, got %d", c.Scraper.MaxAttempts)
	}
	if c.Scraper.AttemptTimeout <= 0 {
		return models.ConfigError("attempt timeout must be positive, got %s", c.Scraper.AttemptTimeout)
	}
	if c.Scraper.Backoff < 0 || c.Scraper.MaxBackoff < 0 {
		return models.ConfigError("backoff must not be negative")
	}
	switch c.Scraper.BackoffStrategy {
	case "constant", "exponential":
	default:
		return models.ConfigError("unknown backoff strategy %q (want constant or exponential)", c.Scraper.BackoffStrategy)
	}
	if c.Scraper.NavigationsPerSecond < 0 {
		return models.ConfigError("navigations per second must not be negative")
	}

	u, err := url.Parse(c.Search.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.ConfigError("base URL %q must be an absolute http(s) URL", c.Search.BaseURL)
	}

	selectors := map[string]string{
		"ready":  c.Scraper.ReadySelector,
		"item":   c.Extract.ItemSelector,
		"name":   c.Extract.NameSelector,
		"type":   c.Extract.TypeSelector,
		"coords": c.Extract.CoordsSelector,
	}
	for name, sel := range selectors {
		if sel == "" {
			return models.ConfigError("%s selector must not be empty", name)
		}
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return models.ConfigError("%s selector %q: %v", name, sel, err)
		}
	}

	switch c.Output.Format {
	case "csv", "json":
	default:
		return models.ConfigError("unknown output format %q (want csv or json)", c.Output.Format)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
