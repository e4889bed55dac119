package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// modernizrName matches a detect or option as it appears in a build query.
var modernizrName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate re-runs validation, e.g. after flags changed the config.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validatePathsConfig(&config.Paths); err != nil {
		return fmt.Errorf("paths config: %w", err)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateScriptsConfig(&config.Scripts); err != nil {
		return fmt.Errorf("scripts config: %w", err)
	}

	switch config.Styles.Compiler {
	case "dart-sass", "passthrough":
	default:
		return apperrors.NewConfigError(fmt.Sprintf("styles compiler %q must be dart-sass or passthrough", config.Styles.Compiler))
	}
	if config.Styles.Precision < 0 {
		return apperrors.NewConfigError(fmt.Sprintf("styles precision %d must not be negative", config.Styles.Precision))
	}
	if config.Styles.RootFontSize <= 0 {
		return apperrors.NewConfigError("styles root_font_size must be positive")
	}

	if config.Images.CacheEntries <= 0 {
		return apperrors.NewConfigError("images cache_entries must be positive")
	}

	if !strings.Contains(config.Sprite.ID, "%f") {
		return apperrors.NewConfigError(fmt.Sprintf("sprite id template %q must contain %%f", config.Sprite.ID))
	}

	for _, name := range append(append([]string{}, config.Update.Modernizr.Features...), config.Update.Modernizr.Options...) {
		if !modernizrName.MatchString(name) {
			return apperrors.NewConfigError(fmt.Sprintf("modernizr feature or option %q must be a bare detect name", name))
		}
	}

	switch config.PageSpeed.Strategy {
	case "mobile", "desktop":
	default:
		return apperrors.NewConfigError(fmt.Sprintf("pagespeed strategy %q must be mobile or desktop", config.PageSpeed.Strategy))
	}

	return nil
}

// validatePathsConfig checks that the three roots are set and do not overlap in
// a way that would make clean destroy sources.
func validatePathsConfig(config *PathsConfig) error {
	roots := map[string]string{"dev": config.Dev, "dist": config.Dist, "temp": config.Temp}
	for name, path := range roots {
		if strings.TrimSpace(path) == "" {
			return apperrors.NewConfigError(name + " path must not be empty")
		}
	}

	dev := filepath.Clean(config.Dev)
	for _, name := range []string{"dist", "temp"} {
		out := filepath.Clean(roots[name])
		if out == dev {
			return apperrors.NewConfigError(fmt.Sprintf("%s path %q must differ from the dev path", name, roots[name]))
		}
		if isWithin(dev, out) {
			return apperrors.NewConfigError(fmt.Sprintf("dev path %q must not live inside %s path %q", config.Dev, name, roots[name]))
		}
		if out == "." || out == "/" {
			return apperrors.NewConfigError(fmt.Sprintf("%s path %q would clean the whole project", name, roots[name]))
		}
	}

	if filepath.Clean(config.Dist) == filepath.Clean(config.Temp) {
		return apperrors.NewConfigError("dist and temp paths must differ")
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return apperrors.NewConfigError(fmt.Sprintf("port %d is not in valid range 0-65535", config.Port))
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", "/"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return apperrors.NewConfigError("host contains invalid character: " + char)
			}
		}
	}

	if config.Debounce < 0 {
		return apperrors.NewConfigError("debounce must not be negative")
	}

	return nil
}

func validateScriptsConfig(config *ScriptsConfig) error {
	if len(config.Sources) == 0 {
		return apperrors.NewConfigError("at least one script source is required")
	}
	for _, src := range config.Sources {
		if filepath.IsAbs(src) || strings.HasPrefix(filepath.Clean(src), "..") {
			return apperrors.NewConfigError(fmt.Sprintf("script source %q must be relative to the dev path", src))
		}
	}
	if config.Output == "" || strings.ContainsAny(config.Output, `/\`) {
		return apperrors.NewConfigError(fmt.Sprintf("script output %q must be a plain file name", config.Output))
	}
	return nil
}

// isWithin reports whether path is inside (or equal to) dir.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
