package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "profiles", cfg.ProfileRoot)
	assert.Equal(t, "3001", cfg.HTTPPort)
	assert.Equal(t, "abort", cfg.BulkPolicy)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BEAST_BROWSER_PATH", "/usr/bin/chromium")
	t.Setenv("BEAST_PROFILE_ROOT", "/var/lib/beast")
	t.Setenv("BEAST_HEADLESS", "false")
	t.Setenv("BEAST_NAV_TIMEOUT", "45s")
	t.Setenv("BEAST_MAX_SESSIONS", "9")
	t.Setenv("BEAST_PROXY_CHECK_URL", "")
	t.Setenv("BEAST_BULK_POLICY", "COLLECT")
	t.Setenv("BEAST_RESPECT_ROBOTS", "true")
	t.Setenv("PORT", "8088")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "/usr/bin/chromium", cfg.BrowserPath)
	assert.Equal(t, "/var/lib/beast", cfg.ProfileRoot)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 45*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 9, cfg.MaxSessions)
	assert.Empty(t, cfg.ProxyCheckURL, "an explicitly empty check URL disables the preflight")
	assert.Equal(t, "collect", cfg.BulkPolicy)
	assert.True(t, cfg.RespectRobots)
	assert.Equal(t, "8088", cfg.HTTPPort)
}

func TestLoadFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("BEAST_MAX_SESSIONS", "lots")
	t.Setenv("BEAST_NAV_TIMEOUT", "soon")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, 4, cfg.MaxSessions)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
}
