package stealth

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/lukman83/beast-antidetect/internal/models"
)

// Noise bounds for canvas and audio perturbation.
const (
	minNoise = 1e-6
	maxNoise = 1e-4
)

// Fixed GPU strings reported by every generated identity.
const (
	WebGLVendor   = "Intel Inc."
	WebGLRenderer = "Intel Iris OpenGL Engine"
)

// Pool lists the candidate values a generated fingerprint may take.
type Pool struct {
	UserAgents          []string
	Screens             []models.Screen
	Timezones           []string
	Languages           []string
	HardwareConcurrency []int
	FontBundles         [][]string
}

var defaultPool = Pool{
	UserAgents: []string{
		// Chrome 133, Windows
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
		// Chrome 133, macOS
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
		// Chrome 133, Linux
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
		// Chrome 132, Windows
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
		// Edge 133, Windows
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36 Edg/133.0.0.0",
	},
	Screens: []models.Screen{
		{Width: 1920, Height: 1080},
		{Width: 1366, Height: 768},
		{Width: 1536, Height: 864},
		{Width: 1440, Height: 900},
		{Width: 1280, Height: 720},
		{Width: 2560, Height: 1440},
	},
	Timezones: []string{
		"America/New_York",
		"America/Chicago",
		"America/Los_Angeles",
		"Europe/London",
		"Europe/Berlin",
		"Asia/Tokyo",
		"Asia/Jakarta",
	},
	Languages: []string{"en-US", "en-GB", "de-DE", "fr-FR", "ja-JP", "id-ID"},

	HardwareConcurrency: []int{2, 4, 6, 8, 12, 16},
	FontBundles: [][]string{
		{"Arial", "Verdana", "Times New Roman", "Courier New", "Georgia"},
		{"Helvetica", "Helvetica Neue", "Menlo", "Monaco", "Times"},
		{"DejaVu Sans", "DejaVu Serif", "Liberation Sans", "Liberation Mono", "Noto Sans"},
		{"Segoe UI", "Tahoma", "Calibri", "Cambria", "Consolas"},
	},
}

// Pools returns a copy of the candidate sets used by the generator.
func Pools() Pool {
	p := defaultPool
	p.UserAgents = slices.Clone(p.UserAgents)
	p.Screens = slices.Clone(p.Screens)
	p.Timezones = slices.Clone(p.Timezones)
	p.Languages = slices.Clone(p.Languages)
	p.HardwareConcurrency = slices.Clone(p.HardwareConcurrency)
	p.FontBundles = make([][]string, len(defaultPool.FontBundles))
	for i, b := range defaultPool.FontBundles {
		p.FontBundles[i] = slices.Clone(b)
	}
	return p
}

// Generator samples fingerprints from the pools. Each field is drawn
// independently and every pool entry is equally likely.
type Generator struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	pool Pool
}

// NewGenerator creates a generator drawing from src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src), pool: Pools()}
}

// NewSeededGenerator creates a deterministic generator for reproducible identities.
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandomGenerator creates a generator seeded from the clock.
func NewRandomGenerator() *Generator {
	now := uint64(time.Now().UnixNano())
	return NewGenerator(rand.NewPCG(now, rand.Uint64()))
}

// Generate returns a freshly sampled fingerprint.
func (g *Generator) Generate() models.Fingerprint {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.pool
	return models.Fingerprint{
		UserAgent:           pick(g.rnd, p.UserAgents),
		Screen:              pick(g.rnd, p.Screens),
		Timezone:            pick(g.rnd, p.Timezones),
		Language:            pick(g.rnd, p.Languages),
		HardwareConcurrency: pick(g.rnd, p.HardwareConcurrency),
		Fonts:               slices.Clone(pick(g.rnd, p.FontBundles)),
		WebGL:               models.WebGL{Vendor: WebGLVendor, Renderer: WebGLRenderer},
		Canvas:              models.Noise{Noise: g.noise()},
		WebRTC:              models.WebRTC{Enabled: false},
		AudioContext:        models.Noise{Noise: g.noise()},
	}
}

// Resolve returns candidate verbatim when present, otherwise a generated
// fingerprint. Caller-supplied fingerprints are not validated or merged.
func (g *Generator) Resolve(candidate *models.Fingerprint) models.Fingerprint {
	if candidate != nil {
		return *candidate
	}
	return g.Generate()
}

func (g *Generator) noise() float64 {
	return minNoise + g.rnd.Float64()*(maxNoise-minNoise)
}

func pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}
