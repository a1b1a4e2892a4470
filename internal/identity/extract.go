package identity

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"

	"github.com/lukman83/beast-antidetect/internal/models"
	"golang.org/x/net/html"
)

// ExtractIP reads the {"ip": "..."} payload an echo service returns. The
// browser wraps raw JSON responses in a document, so the payload is the
// text content of <body>.
func ExtractIP(doc string) (netip.Addr, error) {
	text, err := bodyText(doc)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: parse echo page: %w", models.ErrExtraction, err)
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return netip.Addr{}, fmt.Errorf("%w: echo body is not JSON: %w", models.ErrExtraction, err)
	}
	if payload.IP == "" {
		return netip.Addr{}, fmt.Errorf("%w: echo body has no ip field", models.ErrExtraction)
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(payload.IP))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %w", models.ErrExtraction, err)
	}
	return addr, nil
}

// bodyText returns the concatenated text of <body>, skipping script and
// style elements. Documents without a body yield all their text.
func bodyText(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}

	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)
	if body == nil {
		body = root
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return strings.TrimSpace(b.String()), nil
}
