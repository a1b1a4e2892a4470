package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lukman83/beast-antidetect/internal/models"
)

var errBoom = errors.New("boom")

// fakeLauncher hands out fakeSessions and records every launch.
type fakeLauncher struct {
	mu       sync.Mutex
	launched []models.LaunchSpec
	sessions []*fakeSession
	open     int

	// failLaunch fails the launch of these profile ids.
	failLaunch map[string]bool
	// failNavigate makes Navigate fail for these profile ids.
	failNavigate map[string]bool
	// html is served by every session; defaults to an echo page.
	html    string
	cookies []models.Cookie
}

func (f *fakeLauncher) Launch(_ context.Context, spec models.LaunchSpec) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launched = append(f.launched, spec)
	if f.failLaunch[spec.ProfileID] {
		return nil, fmt.Errorf("%w: %w", models.ErrLaunch, errBoom)
	}
	f.open++
	html := f.html
	if html == "" {
		html = echoPage(fmt.Sprintf("203.0.113.%d", len(f.launched)))
	}
	s := &fakeSession{
		parent:  f,
		fp:      *spec.Fingerprint,
		profile: spec.ProfileID,
		html:    html,
		cookies: f.cookies,
		failNav: f.failNavigate[spec.ProfileID],
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeLauncher) openSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

type fakeSession struct {
	parent  *fakeLauncher
	fp      models.Fingerprint
	profile string
	html    string
	cookies []models.Cookie
	failNav bool

	visited []string
	settled bool
	closed  int
}

func (s *fakeSession) Fingerprint() models.Fingerprint { return s.fp }
func (s *fakeSession) ProfileID() string               { return s.profile }

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.visited = append(s.visited, url)
	if s.failNav {
		return fmt.Errorf("%w: %s: %w", models.ErrNavigation, url, errBoom)
	}
	return nil
}

func (s *fakeSession) Settle(context.Context, time.Duration) { s.settled = true }

func (s *fakeSession) HTML(context.Context) (string, error) { return s.html, nil }

func (s *fakeSession) Cookies(context.Context) ([]models.Cookie, error) { return s.cookies, nil }

func (s *fakeSession) Screenshot(context.Context, bool) ([]byte, error) {
	return []byte("\x89PNG fake"), nil
}

func (s *fakeSession) Close() error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	if s.closed == 0 {
		s.parent.open--
	}
	s.closed++
	return nil
}

func echoPage(ip string) string {
	return `<html><head><meta name="color-scheme" content="light dark"></head><body>` +
		`<pre style="word-wrap: break-word; white-space: pre-wrap;">{"ip":"` + ip + `"}</pre></body></html>`
}
