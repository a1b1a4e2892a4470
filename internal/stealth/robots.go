package stealth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lukman83/beast-antidetect/internal/httputil"
	"github.com/temoto/robotstxt"
)

type robotsEntry struct {
	data    *robotstxt.RobotsData
	expires time.Time
}

// RobotsChecker caches and checks robots.txt rules per origin.
type RobotsChecker struct {
	mu       sync.Mutex
	entries  map[string]robotsEntry
	next     map[string]time.Time // earliest next visit per origin
	client   *http.Client
	cacheTTL time.Duration
}

// NewRobotsChecker creates a new robots.txt checker. A nil client uses a
// default one with a short timeout.
func NewRobotsChecker(client *http.Client) *RobotsChecker {
	if client == nil {
		client = httputil.NewHTTPClient(nil, 10*time.Second)
	}
	return &RobotsChecker{
		entries:  make(map[string]robotsEntry),
		next:     make(map[string]time.Time),
		client:   client,
		cacheTTL: time.Hour,
	}
}

// IsAllowed reports whether userAgent may fetch rawURL. Origins whose
// robots.txt cannot be fetched are treated as allowing everything.
func (r *RobotsChecker) IsAllowed(ctx context.Context, userAgent, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return true, nil
	}

	data, err := r.rules(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.FindGroup(userAgent).Test(path), nil
}

// CrawlDelay returns the crawl delay the origin asks of userAgent.
func (r *RobotsChecker) CrawlDelay(ctx context.Context, userAgent, origin string) time.Duration {
	data, err := r.rules(ctx, origin)
	if err != nil {
		return 0
	}
	return data.FindGroup(userAgent).CrawlDelay
}

// Wait blocks until the origin of rawURL may be visited again under its
// Crawl-delay. Each call books the following slot, so concurrent callers
// are spaced out too. Origins without a delay never wait.
func (r *RobotsChecker) Wait(ctx context.Context, userAgent, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	origin := u.Scheme + "://" + u.Host
	delay := r.CrawlDelay(ctx, userAgent, origin)
	if delay <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	at := r.next[origin]
	if at.Before(now) {
		at = now
	}
	r.next[origin] = at.Add(delay)
	r.mu.Unlock()

	t := time.NewTimer(at.Sub(now))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RobotsChecker) rules(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[origin]; ok && time.Now().Before(e.expires) {
		return e.data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.entries[origin] = robotsEntry{data: data, expires: time.Now().Add(r.cacheTTL)}
	return data, nil
}
