package css

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CompatOptions selects the legacy fallbacks Compat inserts.
type CompatOptions struct {
	// RootFontSize converts rem to px; pixel fallbacks are skipped when 0.
	RootFontSize float64
	RGBAFallback bool
	Vmin         bool
	WillChange   bool
}

// DefaultCompatOptions enables every fallback with a 16px root.
func DefaultCompatOptions() CompatOptions {
	return CompatOptions{RootFontSize: 16, RGBAFallback: true, Vmin: true, WillChange: true}
}

var (
	remRe  = regexp.MustCompile(`(-?(?:\d+\.?\d*|\.\d+))rem\b`)
	rgbaRe = regexp.MustCompile(`rgba\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*[\d.]+%?\s*\)`)
	vminRe = regexp.MustCompile(`(\d)vmin\b`)
)

// rgbaProperties are the properties the hex fallback applies to.
var rgbaProperties = map[string]bool{
	"background":       true,
	"background-color": true,
	"color":            true,
	"border":           true,
	"border-color":     true,
	"outline":          true,
	"outline-color":    true,
}

// Compat inserts fallback declarations for old browsers ahead of the modern
// declaration: px for rem, hex for rgba(), vm for vmin, and a 3D-layer hint
// before will-change.
func Compat(sheet *Stylesheet, opts CompatOptions) {
	walkRules(sheet.Nodes, nil, func(r *Rule, _ []string) {
		r.Decls = compatDecls(r.Decls, opts)
	})
}

func compatDecls(decls []Decl, opts CompatOptions) []Decl {
	hasBackface := false
	for _, d := range decls {
		if strings.EqualFold(d.Property, "backface-visibility") {
			hasBackface = true
		}
	}

	out := make([]Decl, 0, len(decls))
	for _, d := range decls {
		prop := strings.ToLower(d.Property)
		if strings.HasPrefix(prop, "--") {
			out = append(out, d)
			continue
		}

		if opts.WillChange && prop == "will-change" && !hasBackface {
			out = append(out, Decl{Property: "backface-visibility", Value: "hidden"})
			hasBackface = true
		}

		if legacy := legacyValue(prop, d.Value, opts); legacy != d.Value {
			prev := len(out) - 1
			if prev < 0 || !strings.EqualFold(out[prev].Property, d.Property) || out[prev].Value != legacy {
				out = append(out, Decl{Property: d.Property, Value: legacy})
			}
		}
		out = append(out, d)
	}
	return out
}

func legacyValue(prop, value string, opts CompatOptions) string {
	// Declarations using var() cannot be resolved statically.
	if strings.Contains(value, "var(") {
		return value
	}
	legacy := value
	if opts.RootFontSize > 0 {
		legacy = remRe.ReplaceAllStringFunc(legacy, func(m string) string {
			n, err := strconv.ParseFloat(strings.TrimSuffix(m, "rem"), 64)
			if err != nil {
				return m
			}
			return strconv.FormatFloat(roundTo(n*opts.RootFontSize, 3), 'f', -1, 64) + "px"
		})
	}
	if opts.RGBAFallback && rgbaProperties[prop] {
		legacy = rgbaRe.ReplaceAllStringFunc(legacy, func(m string) string {
			parts := rgbaRe.FindStringSubmatch(m)
			var rgb [3]int
			for i := 0; i < 3; i++ {
				v, _ := strconv.Atoi(parts[i+1])
				if v > 255 {
					v = 255
				}
				rgb[i] = v
			}
			return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
		})
	}
	if opts.Vmin {
		legacy = vminRe.ReplaceAllString(legacy, "${1}vm")
	}
	return legacy
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	if v < 0 {
		return -float64(int64(-v*p+0.5)) / p
	}
	return float64(int64(v*p+0.5)) / p
}
