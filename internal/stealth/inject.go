package stealth

import (
	"encoding/json"
	"strings"

	rodstealth "github.com/go-rod/stealth"
	"github.com/lukman83/beast-antidetect/internal/models"
)

// WebGL debug-renderer-info parameter ids.
const (
	unmaskedVendorWebGL   = 37445
	unmaskedRendererWebGL = 37446
)

// override rewrites one browser surface. build returns the body of a
// function; it may use the helpers G (global object) and define(obj, prop, value).
type override struct {
	surface string
	build   func(fp models.Fingerprint) string
}

var overrides = []override{
	{surface: "Intl.DateTimeFormat.resolvedOptions", build: timezoneOverride},
	{surface: "navigator.language", build: languageOverride},
	{surface: "navigator.hardwareConcurrency", build: concurrencyOverride},
	{surface: "WebGLRenderingContext.getParameter", build: webGLOverride},
	{surface: "CanvasRenderingContext2D.getImageData", build: canvasOverride},
	{surface: "AudioBuffer.getChannelData", build: audioOverride},
	{surface: "document.fonts.check", build: fontsOverride},
	{surface: "navigator.mediaDevices", build: mediaDevicesOverride},
	{surface: "screen", build: screenOverride},
}

// Surfaces lists the browser surfaces the override script rewrites, in install order.
func Surfaces() []string {
	out := make([]string, len(overrides))
	for i, o := range overrides {
		out[i] = o.surface
	}
	return out
}

const scriptPrelude = `(function () {
  var G = typeof globalThis !== 'undefined' ? globalThis : (typeof window !== 'undefined' ? window : this);
  var define = function (obj, prop, value) {
    Object.defineProperty(obj, prop, {
      get: function () { return value; },
      enumerable: true,
      configurable: false
    });
  };
`

// BuildOverrideScript returns the script that makes the page observe fp.
// Every surface is patched inside its own guard so a surface missing from the
// current document cannot prevent the others from being installed.
func BuildOverrideScript(fp models.Fingerprint) string {
	var b strings.Builder
	b.WriteString(scriptPrelude)
	for _, o := range overrides {
		b.WriteString("  // ")
		b.WriteString(o.surface)
		b.WriteString("\n  try { (function () {\n")
		b.WriteString(o.build(fp))
		b.WriteString("\n  })(); } catch (e) {}\n")
	}
	b.WriteString("})();\n")
	return b.String()
}

// ComposeScript joins the optional base evasions and the identity overrides
// into a single document script so both are registered in one call.
func ComposeScript(fp models.Fingerprint, withEvasions bool) string {
	if !withEvasions {
		return BuildOverrideScript(fp)
	}
	return rodstealth.JS + "\n;\n" + BuildOverrideScript(fp)
}

// js renders v as a JavaScript literal. JSON is a subset of JS expressions,
// so caller-supplied strings cannot break out of the literal.
func js(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func timezoneOverride(fp models.Fingerprint) string {
	return `    var zone = ` + js(fp.Timezone) + `;
    if (typeof Intl === 'undefined' || !Intl.DateTimeFormat) return;
    var proto = Intl.DateTimeFormat.prototype;
    var resolvedOptions = proto.resolvedOptions;
    proto.resolvedOptions = function () {
      var opts = resolvedOptions.apply(this, arguments);
      opts.timeZone = zone;
      return opts;
    };`
}

func languageOverride(fp models.Fingerprint) string {
	return `    var lang = ` + js(fp.Language) + `;
    var langs = Object.freeze([lang]);
    define(navigator, 'language', lang);
    define(navigator, 'languages', langs);`
}

func concurrencyOverride(fp models.Fingerprint) string {
	return `    define(navigator, 'hardwareConcurrency', ` + js(fp.HardwareConcurrency) + `);`
}

func webGLOverride(fp models.Fingerprint) string {
	return `    var vendor = ` + js(fp.WebGL.Vendor) + `;
    var renderer = ` + js(fp.WebGL.Renderer) + `;
    ['WebGLRenderingContext', 'WebGL2RenderingContext'].forEach(function (name) {
      var ctor = G[name];
      if (!ctor || !ctor.prototype || typeof ctor.prototype.getParameter !== 'function') return;
      var getParameter = ctor.prototype.getParameter;
      ctor.prototype.getParameter = function (param) {
        if (param === ` + js(unmaskedVendorWebGL) + `) return vendor;
        if (param === ` + js(unmaskedRendererWebGL) + `) return renderer;
        return getParameter.apply(this, arguments);
      };
    });`
}

func canvasOverride(fp models.Fingerprint) string {
	return `    var noise = ` + js(fp.Canvas.Noise) + `;
    var ctor = G.CanvasRenderingContext2D;
    if (!ctor || typeof ctor.prototype.getImageData !== 'function') return;
    var getImageData = ctor.prototype.getImageData;
    ctor.prototype.getImageData = function () {
      var image = getImageData.apply(this, arguments);
      if (image && image.data && image.data.length > 0) {
        var data = image.data, orig = data[0];
        data[0] = orig + noise;
        // Uint8ClampedArray rounds the noise away; step one level instead.
        if (noise !== 0 && data[0] === orig) {
          var step = noise > 0 ? 1 : -1;
          if (orig + step < 0 || orig + step > 255) step = -step;
          data[0] = orig + step;
        }
      }
      return image;
    };`
}

func audioOverride(fp models.Fingerprint) string {
	return `    var noise = ` + js(fp.AudioContext.Noise) + `;
    var ctor = G.AudioBuffer;
    if (!ctor || typeof ctor.prototype.getChannelData !== 'function') return;
    var getChannelData = ctor.prototype.getChannelData;
    // Channel arrays are the buffer's own storage; perturb each one once.
    var perturbed = new WeakSet();
    ctor.prototype.getChannelData = function () {
      var samples = getChannelData.apply(this, arguments);
      if (!samples || perturbed.has(samples)) return samples;
      for (var i = 0; i < samples.length; i++) {
        samples[i] = samples[i] + noise;
      }
      perturbed.add(samples);
      return samples;
    };`
}

func fontsOverride(fp models.Fingerprint) string {
	fonts := fp.Fonts
	if fonts == nil {
		fonts = []string{}
	}
	return `    var installed = {};
    ` + js(fonts) + `.forEach(function (f) { installed[String(f).toLowerCase()] = true; });
    var generic = { 'serif': true, 'sans-serif': true, 'monospace': true, 'cursive': true, 'fantasy': true, 'system-ui': true };
    var families = function (font) {
      var m = /(?:^|\s)\d+(?:\.\d+)?(?:px|pt|em|rem|%|vh|vw)(?:\s*\/\s*\S+)?\s+(.+)$/.exec(String(font));
      var list = m ? m[1] : String(font);
      return list.split(',').map(function (s) {
        return s.trim().replace(/^["']|["']$/g, '').toLowerCase();
      }).filter(function (s) { return s.length > 0; });
    };
    if (typeof document === 'undefined' || !document.fonts) return;
    Object.defineProperty(document.fonts, 'check', {
      value: function (font) {
        var names = families(font);
        for (var i = 0; i < names.length; i++) {
          if (!generic[names[i]] && !installed[names[i]]) return false;
        }
        return true;
      },
      writable: false,
      configurable: false
    });`
}

func mediaDevicesOverride(models.Fingerprint) string {
	return `    define(navigator, 'mediaDevices', undefined);`
}

func screenOverride(fp models.Fingerprint) string {
	return `    if (typeof screen === 'undefined') return;
    var width = ` + js(fp.Screen.Width) + `;
    var height = ` + js(fp.Screen.Height) + `;
    define(screen, 'width', width);
    define(screen, 'height', height);
    define(screen, 'availWidth', width);
    define(screen, 'availHeight', height);`
}
