// Package identity runs the per-request browser operations: resolve a
// fingerprint, launch a session wearing it, navigate, extract, and tear the
// session down on every path.
package identity

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/netip"
	"net/url"
	"time"

	"github.com/lukman83/beast-antidetect/config"
	"github.com/lukman83/beast-antidetect/internal/browser"
	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/lukman83/beast-antidetect/internal/progress"
	"github.com/lukman83/beast-antidetect/internal/stealth"
	"go.uber.org/zap"
)

// Session is the slice of a running browser session the operations use.
type Session interface {
	Fingerprint() models.Fingerprint
	ProfileID() string
	Navigate(ctx context.Context, url string) error
	Settle(ctx context.Context, d time.Duration)
	HTML(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]models.Cookie, error)
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Close() error
}

// Launcher starts a session for a spec whose fingerprint is resolved.
type Launcher interface {
	Launch(ctx context.Context, spec models.LaunchSpec) (Session, error)
}

// BrowserLauncher adapts *browser.Launcher to Launcher.
type BrowserLauncher struct {
	*browser.Launcher
}

func (b BrowserLauncher) Launch(ctx context.Context, spec models.LaunchSpec) (Session, error) {
	s, err := b.Launcher.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Locator resolves an IP to a location.
type Locator interface {
	Lookup(addr netip.Addr) (*models.GeoInfo, error)
}

// Service exposes the identity operations.
type Service struct {
	cfg      *config.Config
	launcher Launcher
	gen      *stealth.Generator
	logger   *zap.Logger
	geo      Locator
	robots   *stealth.RobotsChecker
}

type Option func(*Service)

// WithGeo enriches IP results with a location.
func WithGeo(l Locator) Option {
	return func(s *Service) { s.geo = l }
}

// WithRobots sets the checker used when cfg.RespectRobots is on.
func WithRobots(r *stealth.RobotsChecker) Option {
	return func(s *Service) { s.robots = r }
}

func NewService(cfg *config.Config, launcher Launcher, gen *stealth.Generator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gen == nil {
		gen = stealth.NewRandomGenerator()
	}
	s := &Service{
		cfg:      cfg,
		launcher: launcher,
		gen:      gen,
		logger:   logger.Named("identity"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RespectRobots && s.robots == nil {
		s.robots = stealth.NewRobotsChecker(nil)
	}
	return s
}

// GenerateFingerprint returns candidate unchanged, or a fresh fingerprint when it is nil.
func (s *Service) GenerateFingerprint(candidate *models.Fingerprint) models.Fingerprint {
	return s.gen.Resolve(candidate)
}

// resolve fills in the fingerprint and profile id of spec.
func (s *Service) resolve(spec models.LaunchSpec) models.LaunchSpec {
	fp := s.gen.Resolve(spec.Fingerprint)
	spec.Fingerprint = &fp
	if spec.ProfileID == "" {
		spec.ProfileID = models.DefaultProfileID
	}
	return spec
}

func (s *Service) launch(ctx context.Context, spec models.LaunchSpec) (Session, error) {
	progress.Reportf(ctx, "Launching profile %s...", spec.ProfileID)
	return s.launcher.Launch(ctx, spec)
}

func (s *Service) release(sess Session) {
	if err := sess.Close(); err != nil {
		s.logger.Debug("session close", zap.String("profile", sess.ProfileID()), zap.Error(err))
	}
}

// QueryIP launches a session and reports the IP the echo service sees.
func (s *Service) QueryIP(ctx context.Context, spec models.LaunchSpec) (*models.IPResult, error) {
	spec = s.resolve(spec)

	sess, err := s.launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	progress.Report(ctx, "Querying exit IP...")
	if err := sess.Navigate(ctx, s.cfg.IPEchoURL); err != nil {
		return nil, err
	}
	doc, err := sess.HTML(ctx)
	if err != nil {
		return nil, err
	}
	addr, err := ExtractIP(doc)
	if err != nil {
		return nil, err
	}

	res := &models.IPResult{Fingerprint: sess.Fingerprint(), IP: addr.String()}
	if s.geo != nil {
		if g, err := s.geo.Lookup(addr); err == nil {
			res.Geo = g
		} else {
			s.logger.Debug("geo lookup failed", zap.String("ip", res.IP), zap.Error(err))
		}
	}
	s.logger.Info("ip queried", zap.String("profile", spec.ProfileID), zap.String("ip", res.IP))
	return res, nil
}

// Snapshot navigates to target and captures a full-page PNG, optionally
// with the cookie jar.
func (s *Service) Snapshot(ctx context.Context, spec models.LaunchSpec, target string, includeCookies bool) (*models.SnapshotResult, error) {
	spec = s.resolve(spec)
	if err := s.checkTarget(ctx, spec.Fingerprint.UserAgent, target); err != nil {
		return nil, err
	}

	sess, err := s.launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	progress.Reportf(ctx, "Loading %s...", target)
	if err := sess.Navigate(ctx, target); err != nil {
		return nil, err
	}
	sess.Settle(ctx, s.cfg.SettleTimeout)

	img, err := sess.Screenshot(ctx, true)
	if err != nil {
		return nil, err
	}
	res := &models.SnapshotResult{
		Fingerprint: sess.Fingerprint(),
		Screenshot:  base64.StdEncoding.EncodeToString(img),
	}
	if includeCookies {
		if res.Cookies, err = sess.Cookies(ctx); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Cookies navigates to target and returns the cookie jar.
func (s *Service) Cookies(ctx context.Context, spec models.LaunchSpec, target string) (*models.CookiesResult, error) {
	spec = s.resolve(spec)
	if err := s.checkTarget(ctx, spec.Fingerprint.UserAgent, target); err != nil {
		return nil, err
	}

	sess, err := s.launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	progress.Reportf(ctx, "Loading %s...", target)
	if err := sess.Navigate(ctx, target); err != nil {
		return nil, err
	}
	sess.Settle(ctx, s.cfg.SettleTimeout)

	cookies, err := sess.Cookies(ctx)
	if err != nil {
		return nil, err
	}
	return &models.CookiesResult{Fingerprint: sess.Fingerprint(), Cookies: cookies}, nil
}

// checkTarget rejects non-http(s) URLs and, when robots are respected,
// paths the site disallows for the identity's user agent. Allowed targets
// wait out the site's Crawl-delay before the browser starts.
func (s *Service) checkTarget(ctx context.Context, userAgent, target string) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid url %q", models.ErrNavigation, target)
	}
	if s.robots == nil {
		return nil
	}
	allowed, err := s.robots.IsAllowed(ctx, userAgent, target)
	if err != nil {
		return fmt.Errorf("%w: robots check: %w", models.ErrNavigation, err)
	}
	if !allowed {
		return fmt.Errorf("%w: %s is disallowed by robots.txt", models.ErrNavigation, target)
	}
	if err := s.robots.Wait(ctx, userAgent, target); err != nil {
		return fmt.Errorf("%w: crawl delay: %w", models.ErrNavigation, err)
	}
	return nil
}
