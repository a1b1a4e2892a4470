package models

// DefaultProfileID is used when a launch spec names no profile.
const DefaultProfileID = "default"

type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type WebGL struct {
	Vendor   string `json:"vendor"`
	Renderer string `json:"renderer"`
}

// Noise is a small positive perturbation added to canvas or audio reads.
type Noise struct {
	Noise float64 `json:"noise"`
}

type WebRTC struct {
	Enabled bool `json:"enabled"`
}

// Fingerprint is the set of browser-observable identity signals a session presents.
type Fingerprint struct {
	UserAgent           string   `json:"userAgent"`
	Screen              Screen   `json:"screen"`
	Timezone            string   `json:"timezone"`
	Language            string   `json:"language"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	Fonts               []string `json:"fonts"`
	WebGL               WebGL    `json:"webGL"`
	Canvas              Noise    `json:"canvas"`
	WebRTC              WebRTC   `json:"webRTC"`
	AudioContext        Noise    `json:"audioContext"`
}

type Proxy struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// HasAuth reports whether the proxy carries credentials.
func (p *Proxy) HasAuth() bool {
	return p != nil && (p.Username != "" || p.Password != "")
}

// LaunchSpec describes one isolated browser session.
// A nil Fingerprint means "generate one".
type LaunchSpec struct {
	Fingerprint    *Fingerprint `json:"fingerprint,omitempty"`
	ProfileID      string       `json:"profileId,omitempty"`
	ExtensionPaths []string     `json:"extensionPaths,omitempty"`
	Proxy          *Proxy       `json:"proxy,omitempty"`
}

type GeoInfo struct {
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	TimeZone string `json:"timezone,omitempty"`
}

type IPResult struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	IP          string      `json:"ip"`
	Geo         *GeoInfo    `json:"geo,omitempty"`
}

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

type SnapshotResult struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Screenshot  string      `json:"screenshot"` // base64 PNG
	Cookies     []Cookie    `json:"cookies,omitempty"`
}

type CookiesResult struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Cookies     []Cookie    `json:"cookies"`
}

// BulkEntry is one completed item of a bulk run.
type BulkEntry struct {
	ProfileID   string      `json:"profileId"`
	Fingerprint Fingerprint `json:"fingerprint"`
	IP          string      `json:"ip"`
}

type BulkFailure struct {
	Index     int    `json:"index"`
	ProfileID string `json:"profileId"`
	Error     string `json:"error"`
}

type BulkReport struct {
	Results  []BulkEntry   `json:"results"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

// BulkPolicy selects how a bulk run reacts to a failing item.
type BulkPolicy string

const (
	// BulkAbort stops at the first failure and returns no entries.
	BulkAbort BulkPolicy = "abort"
	// BulkCollect keeps going and reports failures next to the successes.
	BulkCollect BulkPolicy = "collect"
)
