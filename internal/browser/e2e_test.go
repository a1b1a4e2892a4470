package browser_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/lukman83/beast-antidetect/config"
	"github.com/lukman83/beast-antidetect/internal/browser"
	"github.com/lukman83/beast-antidetect/internal/identity"
	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/lukman83/beast-antidetect/internal/stealth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestQueryIPEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no local browser found")
	}

	echo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ip":"127.0.0.1"}`)
	}))
	defer echo.Close()

	cfg := config.DefaultConfig()
	cfg.ProfileRoot = t.TempDir()
	cfg.IPEchoURL = echo.URL
	cfg.ProxyCheckURL = ""
	logger := zaptest.NewLogger(t)

	svc := identity.NewService(cfg,
		identity.BrowserLauncher{Launcher: browser.NewLauncher(cfg, logger)},
		stealth.NewRandomGenerator(), logger)

	pools := stealth.Pools()
	var prints []models.Fingerprint
	for _, id := range []string{"e2e-a", "e2e-b"} {
		res, err := svc.QueryIP(context.Background(), models.LaunchSpec{ProfileID: id})
		require.NoError(t, err)

		addr, err := netip.ParseAddr(res.IP)
		require.NoError(t, err)
		assert.True(t, addr.IsLoopback())
		assert.Contains(t, pools.UserAgents, res.Fingerprint.UserAgent)
		assert.Contains(t, pools.Languages, res.Fingerprint.Language)
		assert.DirExists(t, cfg.ProfileRoot+"/"+id)
		prints = append(prints, res.Fingerprint)
	}
	assert.NotEqual(t, prints[0], prints[1])
}

const proxiedEchoHost = "echo.beast.test"

// exitProxy is a forward proxy requiring Basic credentials. It answers
// requests for proxiedEchoHost itself, as if from exitIP.
func exitProxy(t *testing.T, user, pass, exitIP string) (*models.Proxy, *atomic.Int32) {
	t.Helper()
	var served atomic.Int32
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Proxy-Authorization") != want {
			w.Header().Set("Proxy-Authenticate", `Basic realm="beast"`)
			w.WriteHeader(http.StatusProxyAuthRequired)
			return
		}
		if !r.URL.IsAbs() || r.URL.Hostname() != proxiedEchoHost {
			http.NotFound(w, r)
			return
		}
		served.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ip":"`+exitIP+`"}`)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return &models.Proxy{Host: u.Hostname(), Port: port, Username: user, Password: pass}, &served
}

func TestQueryIPThroughAuthenticatedProxy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no local browser found")
	}

	proxy, served := exitProxy(t, "alice", "s3cret", "198.51.100.77")

	cfg := config.DefaultConfig()
	cfg.ProfileRoot = t.TempDir()
	cfg.IPEchoURL = "http://" + proxiedEchoHost + "/"
	cfg.ProxyCheckURL = cfg.IPEchoURL
	logger := zaptest.NewLogger(t)

	svc := identity.NewService(cfg,
		identity.BrowserLauncher{Launcher: browser.NewLauncher(cfg, logger)},
		stealth.NewRandomGenerator(), logger)

	for _, id := range []string{"proxied-a", "proxied-b"} {
		res, err := svc.QueryIP(context.Background(), models.LaunchSpec{ProfileID: id, Proxy: proxy})
		require.NoError(t, err, id)
		assert.Equal(t, "198.51.100.77", res.IP)
		assert.DirExists(t, cfg.ProfileRoot+"/"+id)
	}
	// One preflight and one navigation per launch.
	assert.GreaterOrEqual(t, served.Load(), int32(4))

	wrong := *proxy
	wrong.Password = "nope"
	_, err := svc.QueryIP(context.Background(), models.LaunchSpec{ProfileID: "proxied-c", Proxy: &wrong})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrLaunch)
}
