package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Browser
	BrowserPath       string
	ProfileRoot       string
	Headless          bool
	StealthEvasions   bool // prepend go-rod/stealth evasions to the identity script
	NavigationTimeout time.Duration
	SettleTimeout     time.Duration
	MaxSessions       int
	MaxAuthAttempts   int
	ExtensionRoots    []string

	// Targets
	IPEchoURL     string
	ProxyCheckURL string // empty disables the proxy preflight
	RespectRobots bool
	GeoIPDatabase string

	// Bulk
	BulkPolicy    string // "abort", "collect"
	BulkRate      float64
	BulkBurst     int
	DelayProfile  string // "none", "cautious", "normal", "aggressive"
	PreflightRate float64

	// Logging
	LogLevel  string
	LogFormat string // "console", "json"
	LogFile   string

	// HTTP server
	HTTPPort string
	APIKey   string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ProfileRoot:       "profiles",
		Headless:          true,
		StealthEvasions:   true,
		NavigationTimeout: 30 * time.Second,
		SettleTimeout:     5 * time.Second,
		MaxSessions:       4,
		MaxAuthAttempts:   3,
		IPEchoURL:         "https://api.ipify.org?format=json",
		ProxyCheckURL:     "https://api.ipify.org?format=json",
		BulkPolicy:        "abort",
		BulkRate:          1.0,
		BulkBurst:         1,
		DelayProfile:      "normal",
		PreflightRate:     2.0,
		LogLevel:          "info",
		LogFormat:         "console",
		HTTPPort:          "3001",
	}
}

// LoadFromEnv loads .env file (if present) then overrides config from environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	if v := os.Getenv("BEAST_BROWSER_PATH"); v != "" {
		c.BrowserPath = v
	}
	if v := os.Getenv("BEAST_PROFILE_ROOT"); v != "" {
		c.ProfileRoot = v
	}
	if v := os.Getenv("BEAST_HEADLESS"); v != "" {
		c.Headless = v != "false"
	}
	if v := os.Getenv("BEAST_STEALTH_EVASIONS"); v == "false" {
		c.StealthEvasions = false
	}
	if v := os.Getenv("BEAST_NAV_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.NavigationTimeout = d
		}
	}
	if v := os.Getenv("BEAST_SETTLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SettleTimeout = d
		}
	}
	if v := os.Getenv("BEAST_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxSessions = n
		}
	}
	if v := os.Getenv("BEAST_EXTENSION_ROOTS"); v != "" {
		c.ExtensionRoots = filepath.SplitList(v)
	}
	if v := os.Getenv("BEAST_IP_ECHO_URL"); v != "" {
		c.IPEchoURL = v
	}
	if v, ok := os.LookupEnv("BEAST_PROXY_CHECK_URL"); ok {
		c.ProxyCheckURL = v
	}
	if v := os.Getenv("BEAST_RESPECT_ROBOTS"); v == "true" {
		c.RespectRobots = true
	}
	if v := os.Getenv("BEAST_GEOIP_DB"); v != "" {
		c.GeoIPDatabase = v
	}
	if v := os.Getenv("BEAST_BULK_POLICY"); v != "" {
		c.BulkPolicy = strings.ToLower(v)
	}
	if v := os.Getenv("BEAST_BULK_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.BulkRate = f
		}
	}
	if v := os.Getenv("BEAST_DELAY_PROFILE"); v != "" {
		c.DelayProfile = v
	}
	if v := os.Getenv("BEAST_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("BEAST_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("BEAST_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("BEAST_API_KEY"); v != "" {
		c.APIKey = v
	}
}
