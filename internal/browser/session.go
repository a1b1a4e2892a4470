package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/lukman83/beast-antidetect/internal/models"
	"go.uber.org/zap"
)

// Session is a running browser and its primary page. It is owned by the
// operation that launched it until Close.
type Session struct {
	fp         models.Fingerprint
	profileID  string
	profileDir string

	browser *rod.Browser
	page    *rod.Page
	proc    *launcher.Launcher
	auth    *proxyAuth

	navTimeout time.Duration
	logger     *zap.Logger
	release    func()
	closeOnce  sync.Once
}

func (s *Session) Fingerprint() models.Fingerprint { return s.fp }
func (s *Session) ProfileID() string               { return s.profileID }
func (s *Session) ProfileDir() string              { return s.profileDir }

// Navigate loads url and waits for the load event, bounded by the
// navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if s.navTimeout > 0 {
		p = p.Timeout(s.navTimeout)
		defer p.CancelTimeout()
	}
	if err := p.Navigate(url); err != nil {
		return s.navigationError(url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return s.navigationError(url, err)
	}
	return nil
}

func (s *Session) navigationError(url string, err error) error {
	if s.auth.wasRejected() {
		return fmt.Errorf("%w: proxy authentication rejected: %w", models.ErrLaunch, err)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrNavigation, url, err)
}

// Settle waits up to d for the page to stop changing. Pages that never
// settle are not an error.
func (s *Session) Settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	p := s.page.Context(ctx).Timeout(d)
	defer p.CancelTimeout()
	if err := p.WaitStable(time.Second); err == nil {
		_ = p.WaitDOMStable(time.Second, 0.1)
	}
}

// HTML returns the rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("%w: read page: %w", models.ErrExtraction, err)
	}
	return html, nil
}

// Cookies returns the cookie jar visible to the current page.
func (s *Session) Cookies(ctx context.Context) ([]models.Cookie, error) {
	raw, err := s.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read cookies: %w", models.ErrExtraction, err)
	}
	return convertCookies(raw), nil
}

// Screenshot captures the page as PNG.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	img, err := s.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %w", models.ErrExtraction, err)
	}
	return img, nil
}

// Close stops the browser and releases the profile. It is safe to call
// more than once. The profile directory is kept.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.shutdown()
		s.release()
		s.logger.Info("session closed")
	})
	return err
}

// teardown is Close for a session that failed part way through launch.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		_ = s.shutdown()
	})
}

func (s *Session) shutdown() error {
	s.auth.stop()
	err := s.browser.Close()
	s.proc.Kill()
	return err
}

func convertCookies(raw []*proto.NetworkCookie) []models.Cookie {
	out := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}
