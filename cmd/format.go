package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lukman83/beast-antidetect/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFingerprint prints a fingerprint as aligned key/value lines.
func printFingerprint(w io.Writer, fp models.Fingerprint) {
	fmt.Fprintf(w, "    User-Agent: %s\n", truncate(fp.UserAgent, 100))
	fmt.Fprintf(w, "    Screen:     %dx%d\n", fp.Screen.Width, fp.Screen.Height)
	fmt.Fprintf(w, "    Timezone:   %s  |  Language: %s  |  Cores: %d\n", fp.Timezone, fp.Language, fp.HardwareConcurrency)
	fmt.Fprintf(w, "    WebGL:      %s / %s\n", fp.WebGL.Vendor, truncate(fp.WebGL.Renderer, 60))
	fmt.Fprintf(w, "    Noise:      canvas %.4f  |  audio %.4f\n", fp.Canvas.Noise, fp.AudioContext.Noise)
	webrtc := "disabled"
	if fp.WebRTC.Enabled {
		webrtc = "enabled"
	}
	fmt.Fprintf(w, "    WebRTC:     %s\n", webrtc)
	if len(fp.Fonts) > 0 {
		var tags []string
		for _, f := range fp.Fonts {
			tags = append(tags, "["+f+"]")
		}
		fmt.Fprintf(w, "    Fonts:      %s\n", strings.Join(tags, " "))
	}
}

func printIPResult(w io.Writer, res *models.IPResult) {
	line := " IP: " + res.IP
	if g := res.Geo; g != nil {
		var parts []string
		for _, p := range []string{g.City, g.Country} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(parts, ", "))
		}
		if g.TimeZone != "" && g.TimeZone != res.Fingerprint.Timezone {
			line += fmt.Sprintf("  [tz mismatch: exit %s, fingerprint %s]", g.TimeZone, res.Fingerprint.Timezone)
		}
	}
	fmt.Fprintln(w, line)
	printFingerprint(w, res.Fingerprint)
}

func printCookies(w io.Writer, cookies []models.Cookie) {
	if len(cookies) == 0 {
		fmt.Fprintln(w, " (no cookies)")
		return
	}
	for i, c := range cookies {
		flags := ""
		if c.HTTPOnly {
			flags += " [HttpOnly]"
		}
		if c.Secure {
			flags += " [Secure]"
		}
		fmt.Fprintf(w, " %d. %s=%s%s\n", i+1, c.Name, truncate(c.Value, 40), flags)
		fmt.Fprintf(w, "    %s%s  |  expires %s\n", c.Domain, c.Path, formatExpiry(c.Expires))
	}
}

func printBulkReport(w io.Writer, report *models.BulkReport) {
	for i, e := range report.Results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, " %d. %s  ->  %s\n", i+1, e.ProfileID, e.IP)
		printFingerprint(w, e.Fingerprint)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, " [FAILED] #%d %s: %s\n", f.Index+1, f.ProfileID, f.Error)
	}
	fmt.Fprintf(w, "\n %d completed, %d failed\n", len(report.Results), len(report.Failures))
}

// formatExpiry renders a CDP expiry (seconds since epoch, -1 for session cookies).
func formatExpiry(sec float64) string {
	if sec <= 0 {
		return "session"
	}
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
