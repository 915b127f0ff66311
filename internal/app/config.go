package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr            string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL     string `usage:"PostgreSQL connection URL (SFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	OrderServiceURL string `usage:"Base URL of the external order service" flag:"order-service-url"`
	SessionSecret   string `usage:"HMAC secret shared with the auth service for bearer tokens" flag:"session-secret"`
	ImageBaseURL    string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	SecureCookies   bool   `default:"false" usage:"Mark session cookies Secure (enable behind HTTPS)" flag:"secure-cookies"`
	Cart            CartConfig
	Catalog         CatalogConfig
	RateLimit       RateLimitConfig
	CORS            CORSConfig
	Graceful        GracefulConfig
}

// CartConfig controls the in-memory cart store lifecycle.
type CartConfig struct {
	TTL             time.Duration `default:"2h" usage:"Idle time before a session's cart is evicted"`
	JanitorInterval time.Duration `default:"5m" usage:"How often expired carts are swept" flag:"janitor-interval"`
}

// CatalogConfig controls the catalog read path.
type CatalogConfig struct {
	RefreshInterval time.Duration `default:"1m" usage:"How often the known-product filter is rebuilt" flag:"refresh-interval"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SFRONT",
		Files:     []string{"config.yaml", "/etc/sfront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SFRONT_DATABASE_URL or DATABASE_URL")
	}
	if cfg.OrderServiceURL == "" {
		return nil, errors.New("order service URL is required: set SFRONT_ORDER_SERVICE_URL")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required: set SFRONT_SESSION_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
