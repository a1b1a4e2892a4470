package stealth

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/lukman83/beast-antidetect/internal/models"
)

// ProxyProvider abstracts a proxy backend.
type ProxyProvider interface {
	Transport() http.RoundTripper
	Name() string
}

// DirectProvider routes traffic directly (no proxy).
type DirectProvider struct {
	transport http.RoundTripper
}

func (d *DirectProvider) Transport() http.RoundTripper {
	if d.transport == nil {
		return http.DefaultTransport
	}
	return d.transport
}

func (d *DirectProvider) Name() string { return "direct" }

// SpecProvider routes through the proxy named in a launch spec, presenting
// its credentials.
type SpecProvider struct {
	Proxy     *models.Proxy
	transport http.RoundTripper
	once      sync.Once
}

func (s *SpecProvider) Name() string { return "spec:" + ProxyServer(s.Proxy) }

func (s *SpecProvider) Transport() http.RoundTripper {
	s.once.Do(func() {
		s.transport = &http.Transport{
			Proxy:             http.ProxyURL(ProxyURL(s.Proxy)),
			DisableKeepAlives: true,
		}
	})
	return s.transport
}

// ProviderFor returns the provider matching p, or a direct provider when p is nil.
func ProviderFor(p *models.Proxy) ProxyProvider {
	if p == nil {
		return &DirectProvider{}
	}
	return &SpecProvider{Proxy: p}
}

// ValidateProxy checks that host and port are safe to place in a
// --proxy-server argument.
func ValidateProxy(p *models.Proxy) error {
	if p == nil {
		return nil
	}
	if p.Host == "" {
		return fmt.Errorf("proxy host is empty")
	}
	if strings.ContainsAny(p.Host, " \t\r\n,;=@/\\\"'") {
		return fmt.Errorf("proxy host %q contains invalid characters", p.Host)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("proxy port %d out of range", p.Port)
	}
	return nil
}

// ProxyServer formats p as host:port for the browser's proxy flag.
func ProxyServer(p *models.Proxy) string {
	if p == nil {
		return ""
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// ProxyURL builds an http proxy URL for p including its credentials.
func ProxyURL(p *models.Proxy) *url.URL {
	u := &url.URL{Scheme: "http", Host: ProxyServer(p)}
	if p.HasAuth() {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// Redacted returns host:port with the username but never the password.
func Redacted(p *models.Proxy) string {
	if p == nil {
		return "direct"
	}
	if p.Username != "" {
		return p.Username + "@" + ProxyServer(p)
	}
	return ProxyServer(p)
}
