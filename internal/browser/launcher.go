package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/lukman83/beast-antidetect/config"
	"github.com/lukman83/beast-antidetect/internal/httputil"
	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/lukman83/beast-antidetect/internal/stealth"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var profileIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// disabledFeatures turns off real-time communication, telemetry and site isolation.
var disabledFeatures = []string{
	"WebRtcHideLocalIpsWithMdns",
	"WebRTC",
	"Telemetry",
	"IsolateOrigins",
	"site-per-process",
}

// ValidateProfileID rejects ids that could escape the profile root.
func ValidateProfileID(id string) error {
	if id == "." || id == ".." || !profileIDPattern.MatchString(id) {
		return fmt.Errorf("invalid profile id %q", id)
	}
	return nil
}

// Launcher starts isolated browser sessions bound to persistent profile directories.
type Launcher struct {
	cfg       *config.Config
	logger    *zap.Logger
	locks     *profileLocks
	slots     *semaphore.Weighted
	preflight *rate.Limiter
}

// NewLauncher creates a launcher. At most cfg.MaxSessions sessions run at once.
func NewLauncher(cfg *config.Config, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := cfg.MaxSessions
	if n < 1 {
		n = 1
	}
	limit := rate.Inf
	if cfg.PreflightRate > 0 {
		limit = rate.Limit(cfg.PreflightRate)
	}
	return &Launcher{
		cfg:       cfg,
		logger:    logger.Named("launcher"),
		locks:     newProfileLocks(),
		slots:     semaphore.NewWeighted(int64(n)),
		preflight: rate.NewLimiter(limit, 1),
	}
}

// ProfileDir resolves the on-disk directory for a profile id.
func (l *Launcher) ProfileDir(id string) (string, error) {
	if err := ValidateProfileID(id); err != nil {
		return "", err
	}
	return filepath.Join(l.cfg.ProfileRoot, id), nil
}

// EnsureProfileDir creates the profile directory if it is missing.
// Existing directories are reused as they are.
func (l *Launcher) EnsureProfileDir(id string) (string, error) {
	dir, err := l.ProfileDir(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// Launch starts a browser presenting spec's fingerprint. The fingerprint must
// already be resolved. The identity script and CDP overrides are installed
// before the session is returned; no navigation happens here.
func (l *Launcher) Launch(ctx context.Context, spec models.LaunchSpec) (*Session, error) {
	if spec.Fingerprint == nil {
		return nil, fmt.Errorf("%w: no fingerprint resolved", models.ErrLaunch)
	}
	fp := *spec.Fingerprint

	id := spec.ProfileID
	if id == "" {
		id = models.DefaultProfileID
	}
	if err := stealth.ValidateProxy(spec.Proxy); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrLaunch, err)
	}
	exts, err := l.validateExtensions(spec.ExtensionPaths)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrLaunch, err)
	}
	dir, err := l.EnsureProfileDir(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrLaunch, err)
	}

	unlock, err := l.locks.acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: profile %s busy: %w", models.ErrLaunch, id, err)
	}
	if err := l.slots.Acquire(ctx, 1); err != nil {
		unlock()
		return nil, fmt.Errorf("%w: no free session slot: %w", models.ErrLaunch, err)
	}
	release := func() {
		l.slots.Release(1)
		unlock()
	}
	launched := false
	defer func() {
		if !launched {
			release()
		}
	}()

	log := l.logger.With(zap.String("profile", id), zap.String("proxy", stealth.Redacted(spec.Proxy)))

	if err := l.checkProxy(ctx, spec.Proxy, fp); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrLaunch, err)
	}

	proc := l.newProcess(fp, dir, spec.Proxy, exts)
	log.Debug("starting browser", zap.Strings("args", proc.FormatArgs()))

	controlURL, err := proc.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: start browser: %w", models.ErrLaunch, err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		proc.Kill()
		return nil, fmt.Errorf("%w: connect browser: %w", models.ErrLaunch, err)
	}

	s := &Session{
		fp:         fp,
		profileID:  id,
		profileDir: dir,
		browser:    b,
		proc:       proc,
		navTimeout: l.cfg.NavigationTimeout,
		logger:     log,
		release:    release,
	}

	if spec.Proxy.HasAuth() {
		s.auth, err = startProxyAuth(b, spec.Proxy, l.cfg.MaxAuthAttempts, log)
		if err != nil {
			s.teardown()
			return nil, fmt.Errorf("%w: enable proxy auth: %w", models.ErrLaunch, err)
		}
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.teardown()
		return nil, fmt.Errorf("%w: open page: %w", models.ErrLaunch, err)
	}
	s.page = page

	if err := l.applyIdentity(page, fp, log); err != nil {
		s.teardown()
		return nil, fmt.Errorf("%w: install identity: %w", models.ErrLaunch, err)
	}

	launched = true
	log.Info("session started", zap.String("dir", dir))
	return s, nil
}

// applyIdentity installs the fingerprint on page: CDP overrides first, then
// the composed document script in a single registration.
func (l *Launcher) applyIdentity(page *rod.Page, fp models.Fingerprint, log *zap.Logger) error {
	if fp.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      fp.UserAgent,
			AcceptLanguage: httputil.AcceptLanguage(fp.Language),
		})
		if err != nil {
			return fmt.Errorf("user agent: %w", err)
		}
	}
	if fp.Screen.Width > 0 && fp.Screen.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  fp.Screen.Width,
			Height: fp.Screen.Height,
		})
		if err != nil {
			return fmt.Errorf("viewport: %w", err)
		}
	}
	if fp.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: fp.Timezone}).Call(page); err != nil {
			// The script override still reports fp.Timezone.
			log.Warn("timezone override rejected", zap.String("timezone", fp.Timezone), zap.Error(err))
		}
	}
	if _, err := page.EvalOnNewDocument(stealth.ComposeScript(fp, l.cfg.StealthEvasions)); err != nil {
		return fmt.Errorf("document script: %w", err)
	}
	return nil
}

// newProcess builds the browser command line for one session.
func (l *Launcher) newProcess(fp models.Fingerprint, dir string, p *models.Proxy, exts []string) *launcher.Launcher {
	proc := launcher.New().
		Logger(io.Discard).
		UserDataDir(dir).
		Headless(l.cfg.Headless).
		Delete("enable-automation").
		Set(flags.NoSandbox).
		Set("disable-web-security").
		Set("disable-site-isolation-trials").
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-features", disabledFeatures...).
		Set("force-webrtc-ip-handling-policy", "disable_non_proxied_udp")

	if bin := l.browserBin(); bin != "" {
		proc = proc.Bin(bin)
	}
	if fp.UserAgent != "" {
		proc = proc.Set("user-agent", fp.UserAgent)
	}
	if fp.Language != "" {
		proc = proc.Set("lang", fp.Language)
	}
	if fp.Screen.Width > 0 && fp.Screen.Height > 0 {
		proc = proc.Set("window-size", strconv.Itoa(fp.Screen.Width), strconv.Itoa(fp.Screen.Height))
	}
	if p != nil {
		proc = proc.Proxy(stealth.ProxyServer(p))
	}
	if len(exts) > 0 {
		proc = proc.
			Set("load-extension", exts...).
			Set("disable-extensions-except", exts...)
		// Old headless mode cannot load extensions.
		if l.cfg.Headless {
			proc = proc.Set(flags.Headless, "new")
		}
	}
	return proc
}

func (l *Launcher) browserBin() string {
	if l.cfg.BrowserPath != "" {
		return l.cfg.BrowserPath
	}
	if path, ok := launcher.LookPath(); ok {
		return path
	}
	return ""
}

// validateExtensions returns the cleaned extension paths. Paths must be
// absolute, comma free, existing directories and, when roots are
// configured, inside one of them.
func (l *Launcher) validateExtensions(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		if !filepath.IsAbs(clean) {
			return nil, fmt.Errorf("extension path %q is not absolute", p)
		}
		if strings.ContainsRune(clean, ',') {
			return nil, fmt.Errorf("extension path %q contains a comma", p)
		}
		if len(l.cfg.ExtensionRoots) > 0 && !withinAny(l.cfg.ExtensionRoots, clean) {
			return nil, fmt.Errorf("extension path %q is outside the allowed roots", p)
		}
		info, err := os.Stat(clean)
		if err != nil {
			return nil, fmt.Errorf("extension path: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("extension path %q is not a directory", p)
		}
		out = append(out, clean)
	}
	return out, nil
}

func withinAny(roots []string, path string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(filepath.Clean(root), path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// checkProxy sends one request through the proxy wearing the session's
// identity. A 407 or an unreachable proxy fails the launch before a
// browser is started.
func (l *Launcher) checkProxy(ctx context.Context, p *models.Proxy, fp models.Fingerprint) error {
	if p == nil || l.cfg.ProxyCheckURL == "" {
		return nil
	}
	client := httputil.NewHTTPClient(&stealth.IdentityTransport{
		Identity:    fp,
		Proxy:       stealth.ProviderFor(p),
		RateLimiter: l.preflight,
	}, 15*time.Second)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.ProxyCheckURL, nil)
	if err != nil {
		return fmt.Errorf("proxy check: %w", err)
	}
	resp, err := httputil.DoWithRetry(client, req, 1)
	if err != nil {
		return fmt.Errorf("proxy %s unreachable: %w", stealth.Redacted(p), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusProxyAuthRequired {
		return fmt.Errorf("proxy %s rejected credentials", stealth.Redacted(p))
	}
	return nil
}
