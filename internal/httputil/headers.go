package httputil

import (
	"net/http"
	"strings"
)

// BrowserHeaders returns navigation headers consistent with the given
// user agent and primary language.
func BrowserHeaders(userAgent, language string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", AcceptLanguage(language))
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	if strings.Contains(userAgent, "Chrome/") && !strings.Contains(userAgent, "Firefox/") {
		h.Set("Sec-Ch-Ua-Mobile", "?0")
		h.Set("Sec-Ch-Ua-Platform", `"`+uaPlatform(userAgent)+`"`)
	}
	return h
}

// AcceptLanguage expands a BCP-47 tag into an Accept-Language value,
// e.g. "de-DE" -> "de-DE,de;q=0.9".
func AcceptLanguage(language string) string {
	if language == "" {
		return "en-US,en;q=0.9"
	}
	base, _, found := strings.Cut(language, "-")
	if !found || base == "" {
		return language
	}
	return language + "," + base + ";q=0.9"
}

func uaPlatform(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Windows"):
		return "Windows"
	case strings.Contains(userAgent, "Macintosh"):
		return "macOS"
	default:
		return "Linux"
	}
}
