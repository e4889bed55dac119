// Package css holds the stylesheet transformations that run after Sass:
// prefixing and syntax lowering for the target browsers, legacy fallbacks,
// unused-rule removal and minification with source maps.
package css

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// Target is one parsed entry of a browser list such as "ios >= 7".
type Target struct {
	Browser string
	Version string
}

// ParseBrowsers parses "name >= version" and "name version" entries.
func ParseBrowsers(list []string) ([]Target, error) {
	targets := make([]Target, 0, len(list))
	for _, entry := range list {
		fields := strings.Fields(strings.ToLower(entry))
		var name, version string
		switch {
		case len(fields) == 3 && fields[1] == ">=":
			name, version = fields[0], fields[2]
		case len(fields) == 2:
			name, version = fields[0], fields[1]
		default:
			return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported browser query %q, expected \"name >= version\"", entry))
		}
		if _, err := strconv.ParseFloat(version, 64); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("invalid version in browser query %q", entry))
		}
		targets = append(targets, Target{Browser: name, Version: version})
	}
	return targets, nil
}

// Engines converts browser targets into esbuild engines. Browsers esbuild has
// no engine for are mapped onto the engine they are built on; the names of
// targets that could not be mapped at all are returned as skipped.
func Engines(targets []Target) (engines []api.Engine, skipped []string) {
	lowest := make(map[api.EngineName]string)
	var order []api.EngineName

	add := func(name api.EngineName, version string) {
		current, ok := lowest[name]
		if !ok {
			order = append(order, name)
			lowest[name] = version
			return
		}
		if versionLess(version, current) {
			lowest[name] = version
		}
	}

	for _, t := range targets {
		switch t.Browser {
		case "ie", "ie_mob", "iemobile":
			add(api.EngineIE, t.Version)
		case "edge":
			add(api.EngineEdge, t.Version)
		case "ff", "firefox", "and_ff":
			add(api.EngineFirefox, t.Version)
		case "chrome", "and_chr":
			add(api.EngineChrome, t.Version)
		case "safari":
			add(api.EngineSafari, t.Version)
		case "ios", "ios_saf":
			add(api.EngineIOS, t.Version)
		case "opera", "op_mob":
			add(api.EngineOpera, t.Version)
		case "android":
			// The 4.4 WebView is Chromium 30; newer Android versions track Chrome.
			if versionLess(t.Version, "5") {
				add(api.EngineChrome, "30")
			} else {
				add(api.EngineChrome, t.Version)
			}
		case "bb", "blackberry":
			// BlackBerry 10 ships a WebKit comparable to Safari 6.
			add(api.EngineSafari, "6")
		default:
			skipped = append(skipped, t.Browser)
		}
	}

	for _, name := range order {
		engines = append(engines, api.Engine{Name: name, Version: lowest[name]})
	}
	return engines, skipped
}

func versionLess(a, b string) bool {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			y, _ = strconv.Atoi(pb[i])
		}
		if x != y {
			return x < y
		}
	}
	return false
}

func messagesError(file string, msgs []api.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	m := msgs[0]
	ce := &apperrors.CompileError{File: file, Message: m.Text}
	if m.Location != nil {
		ce.Line = m.Location.Line
		ce.Column = m.Location.Column + 1
	}
	return ce
}
