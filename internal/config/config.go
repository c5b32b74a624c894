package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures every setting required to boot the metrics gateway.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Logging   LoggingConfig   `yaml:"logging"`
	Autotask  AutotaskConfig  `yaml:"autotask"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Reports   ReportsConfig   `yaml:"reports"`
	DateRange DateRangeConfig `yaml:"dateRange"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// GatewayConfig controls the HTTP/JSON gateway used by the portal.
type GatewayConfig struct {
	Address         string        `yaml:"address"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AutotaskConfig configures the provider client.
type AutotaskConfig struct {
	Username        string        `yaml:"username"`
	Secret          string        `yaml:"secret"`
	IntegrationCode string        `yaml:"integrationCode"`
	SecretSource    string        `yaml:"secretSource"`
	KeyringService  string        `yaml:"keyringService"`
	ZoneInfoURL     string        `yaml:"zoneInfoURL"`
	Timeout         time.Duration `yaml:"timeout"`
	Dedupe          bool          `yaml:"dedupe"`
	RateLimit       float64       `yaml:"rateLimit"`
	RateBurst       int           `yaml:"rateBurst"`
	// TicketQueueID limits ticket reports to one queue; zero means every queue.
	TicketQueueID int64 `yaml:"ticketQueueID"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	TTL          time.Duration `yaml:"ttl"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	KeyPrefix    string        `yaml:"keyPrefix"`
}

// AuthConfig configures bearer-token validation against the Microsoft identity platform.
type AuthConfig struct {
	Disabled bool     `yaml:"disabled"`
	TenantID string   `yaml:"tenantID"`
	ClientID string   `yaml:"clientID"`
	Audience []string `yaml:"audience"`
	Issuer   string   `yaml:"issuer"`
	JWKSURL  string   `yaml:"jwksURL"`
	Scope    string   `yaml:"scope"`
}

// ReportsConfig locates the quarterly review fixtures.
type ReportsConfig struct {
	Dir   string   `yaml:"dir"`
	Types []string `yaml:"types"`
}

// DateRangeConfig controls how unknown period names are treated.
type DateRangeConfig struct {
	UnknownPeriod string `yaml:"unknownPeriod"`
	Location      string `yaml:"location"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Load initialises Config from a YAML file and optional environment overrides. A .env
// file in the working directory, when present, is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("PARTNER_METRICS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.Auth.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache.addr is required for the redis backend")
		}
		if c.Cache.KeyPrefix == "" {
			return fmt.Errorf("cache.keyPrefix is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if !c.Auth.Disabled && c.Auth.TenantID == "" && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.tenantID or auth.jwksURL is required unless auth.disabled is set")
	}
	if c.Gateway.RefreshInterval <= 0 {
		return fmt.Errorf("gateway.refreshInterval must be positive")
	}
	return nil
}

func (a *AuthConfig) fillDefaults() {
	if a.TenantID == "" {
		return
	}
	if a.JWKSURL == "" {
		a.JWKSURL = fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", a.TenantID)
	}
	if a.Issuer == "" {
		a.Issuer = fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", a.TenantID)
	}
	if len(a.Audience) == 0 && a.ClientID != "" {
		a.Audience = []string{a.ClientID, "api://" + a.ClientID}
	}
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Gateway: GatewayConfig{
			Address:         ":8080",
			AllowedOrigins:  []string{"http://localhost:3000"},
			RefreshInterval: 5 * time.Minute,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Autotask: AutotaskConfig{
			SecretSource: "config",
			Timeout:      30 * time.Second,
			RateBurst:    5,
		},
		Cache: CacheConfig{
			Backend:      CacheMemory,
			TTL:          5 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			KeyPrefix:    "partner-metrics:autotask:",
		},
		Auth:      AuthConfig{Scope: "User.Read"},
		Reports:   ReportsConfig{Dir: "data/reports"},
		DateRange: DateRangeConfig{UnknownPeriod: "strict"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARTNER_METRICS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("PARTNER_METRICS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("PARTNER_METRICS_GATEWAY_ADDRESS"); v != "" {
		cfg.Gateway.Address = v
	}
	if v := os.Getenv("PARTNER_METRICS_ALLOWED_ORIGINS"); v != "" {
		cfg.Gateway.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("PARTNER_METRICS_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gateway.RefreshInterval = d
		}
	}
	if v := os.Getenv("PARTNER_METRICS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PARTNER_METRICS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}

	if v := os.Getenv("AUTOTASK_USERNAME"); v != "" {
		cfg.Autotask.Username = v
	}
	if v := os.Getenv("AUTOTASK_SECRET"); v != "" {
		cfg.Autotask.Secret = v
	}
	if v := os.Getenv("AUTOTASK_INTEGRATION_CODE"); v != "" {
		cfg.Autotask.IntegrationCode = v
	}
	if v := os.Getenv("AUTOTASK_SECRET_SOURCE"); v != "" {
		cfg.Autotask.SecretSource = v
	}
	if v := os.Getenv("AUTOTASK_ZONE_INFO_URL"); v != "" {
		cfg.Autotask.ZoneInfoURL = v
	}
	if v := os.Getenv("AUTOTASK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Autotask.Timeout = d
		}
	}
	if v := os.Getenv("AUTOTASK_DEDUPE"); v != "" {
		cfg.Autotask.Dedupe = parseBool(v)
	}
	if v := os.Getenv("AUTOTASK_RATE_LIMIT"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Autotask.RateLimit = rate
		}
	}
	if v := os.Getenv("AUTOTASK_TICKET_QUEUE_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Autotask.TicketQueueID = id
		}
	}

	if v := os.Getenv("PARTNER_METRICS_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PARTNER_METRICS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("PARTNER_METRICS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("PARTNER_METRICS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("PARTNER_METRICS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("PARTNER_METRICS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("PARTNER_METRICS_CACHE_TLS"); parseBool(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("PARTNER_METRICS_CACHE_KEY_PREFIX"); v != "" {
		cfg.Cache.KeyPrefix = v
	}

	if v := os.Getenv("PARTNER_METRICS_AUTH_DISABLED"); v != "" {
		cfg.Auth.Disabled = parseBool(v)
	}
	if v := os.Getenv("PARTNER_METRICS_AUTH_TENANT_ID"); v != "" {
		cfg.Auth.TenantID = v
	}
	if v := os.Getenv("PARTNER_METRICS_AUTH_CLIENT_ID"); v != "" {
		cfg.Auth.ClientID = v
	}
	if v := os.Getenv("PARTNER_METRICS_AUTH_JWKS_URL"); v != "" {
		cfg.Auth.JWKSURL = v
	}

	if v := os.Getenv("PARTNER_METRICS_REPORTS_DIR"); v != "" {
		cfg.Reports.Dir = v
	}
	if v := os.Getenv("PARTNER_METRICS_UNKNOWN_PERIOD"); v != "" {
		cfg.DateRange.UnknownPeriod = v
	}
	if v := os.Getenv("PARTNER_METRICS_TIMEZONE"); v != "" {
		cfg.DateRange.Location = v
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
