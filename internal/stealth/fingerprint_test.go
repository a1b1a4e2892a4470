package stealth

import (
	"slices"
	"sync"
	"testing"

	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDrawsFromPools(t *testing.T) {
	g := NewSeededGenerator(42)
	pool := Pools()

	for i := 0; i < 500; i++ {
		fp := g.Generate()

		assert.Contains(t, pool.UserAgents, fp.UserAgent)
		assert.Contains(t, pool.Screens, fp.Screen)
		assert.Contains(t, pool.Timezones, fp.Timezone)
		assert.Contains(t, pool.Languages, fp.Language)
		assert.Contains(t, pool.HardwareConcurrency, fp.HardwareConcurrency)
		assert.True(t, slices.ContainsFunc(pool.FontBundles, func(b []string) bool {
			return slices.Equal(b, fp.Fonts)
		}), "fonts %v not a known bundle", fp.Fonts)

		assert.Equal(t, models.WebGL{Vendor: WebGLVendor, Renderer: WebGLRenderer}, fp.WebGL)
		assert.False(t, fp.WebRTC.Enabled)
		assert.Greater(t, fp.Canvas.Noise, 0.0)
		assert.Less(t, fp.Canvas.Noise, 1e-4)
		assert.Greater(t, fp.AudioContext.Noise, 0.0)
		assert.Less(t, fp.AudioContext.Noise, 1e-4)
	}
}

func TestGenerateCoversEveryPoolEntry(t *testing.T) {
	g := NewSeededGenerator(7)
	seen := map[string]bool{}
	for i := 0; i < 2000; i++ {
		seen[g.Generate().Timezone] = true
	}
	assert.Len(t, seen, len(Pools().Timezones))
}

func TestSeededGeneratorIsDeterministic(t *testing.T) {
	a := NewSeededGenerator(1234)
	b := NewSeededGenerator(1234)
	for i := 0; i < 20; i++ {
		require.Equal(t, a.Generate(), b.Generate())
	}

	c := NewSeededGenerator(4321)
	assert.NotEqual(t, NewSeededGenerator(1234).Generate(), c.Generate())
}

func TestResolveReturnsCandidateVerbatim(t *testing.T) {
	g := NewSeededGenerator(1)

	partial := &models.Fingerprint{UserAgent: "custom-agent/1.0"}
	got := g.Resolve(partial)
	assert.Equal(t, *partial, got, "partial fingerprints are not topped up")
	assert.Empty(t, got.Timezone)
	assert.Nil(t, got.Fonts)

	full := g.Generate()
	full.Timezone = "Not/AZone"
	assert.Equal(t, full, g.Resolve(&full))
}

func TestResolveGeneratesWhenNil(t *testing.T) {
	got := NewSeededGenerator(99).Resolve(nil)
	assert.Equal(t, NewSeededGenerator(99).Generate(), got)
}

func TestGeneratedFontsDoNotAliasPool(t *testing.T) {
	g := NewSeededGenerator(3)
	fp := g.Generate()
	fp.Fonts[0] = "Mutated"
	for _, b := range g.pool.FontBundles {
		assert.NotContains(t, b, "Mutated")
	}
}

func TestGenerateConcurrentUse(t *testing.T) {
	g := NewRandomGenerator()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = g.Generate()
			}
		}()
	}
	wg.Wait()
}
