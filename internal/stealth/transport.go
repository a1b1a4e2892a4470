package stealth

import (
	"fmt"
	"net/http"

	"github.com/lukman83/beast-antidetect/internal/httputil"
	"github.com/lukman83/beast-antidetect/internal/models"
	"golang.org/x/time/rate"
)

// IdentityTransport is an http.RoundTripper that makes out-of-browser
// requests look like they come from the same identity as the browser:
// Identity headers → RobotsCheck → RateLimiter → Proxy → Send
type IdentityTransport struct {
	Identity    models.Fingerprint
	Robots      *RobotsChecker
	Proxy       ProxyProvider
	RateLimiter *rate.Limiter
}

func (t *IdentityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	// 1. Identity headers; explicit request headers win
	for key, vals := range httputil.BrowserHeaders(t.Identity.UserAgent, t.Identity.Language) {
		if req.Header.Get(key) == "" {
			req.Header[key] = vals
		}
	}

	// 2. Check robots.txt
	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Context(), t.Identity.UserAgent, req.URL.String())
		if err == nil && !allowed {
			return nil, fmt.Errorf("blocked by robots.txt: %s", req.URL.Path)
		}
	}

	// 3. Wait for rate limiter token
	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	// 4. Route through the identity's proxy
	provider := t.Proxy
	if provider == nil {
		provider = &DirectProvider{}
	}
	return provider.Transport().RoundTrip(req)
}
