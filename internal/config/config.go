// Package config provides configuration management for assetsmith using Viper
// for loading from files, environment variables and command-line flags.
//
// Every option literal a task needs (browser list, image flags, HTML
// minification switches, sprite templates, server port) lives here with the
// default the task historically used, so a project without a config file
// builds exactly like the stock pipeline.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "ASSETSMITH"

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths" yaml:"paths"`
	Styles    StylesConfig    `mapstructure:"styles" yaml:"styles"`
	Scripts   ScriptsConfig   `mapstructure:"scripts" yaml:"scripts"`
	Images    ImagesConfig    `mapstructure:"images" yaml:"images"`
	Sprite    SpriteConfig    `mapstructure:"sprite" yaml:"sprite"`
	HTML      HTMLConfig      `mapstructure:"html" yaml:"html"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Update    UpdateConfig    `mapstructure:"update" yaml:"update"`
	PageSpeed PageSpeedConfig `mapstructure:"pagespeed" yaml:"pagespeed"`
}

// PathsConfig holds the three directory roots.
type PathsConfig struct {
	Dev  string `mapstructure:"dev" yaml:"dev"`
	Dist string `mapstructure:"dist" yaml:"dist"`
	Temp string `mapstructure:"temp" yaml:"temp"`
}

type StylesConfig struct {
	// Compiler selects the Sass backend: "dart-sass" or "passthrough" for
	// projects that ship plain CSS under .scss names.
	Compiler     string   `mapstructure:"compiler" yaml:"compiler"`
	Browsers     []string `mapstructure:"browsers" yaml:"browsers"`
	Precision    int      `mapstructure:"precision" yaml:"precision"`
	Purge        bool     `mapstructure:"purge" yaml:"purge"`
	RootFontSize float64  `mapstructure:"root_font_size" yaml:"root_font_size"`
	IncludePaths []string `mapstructure:"include_paths" yaml:"include_paths"`
}

type ScriptsConfig struct {
	// Sources are relative to the development root and concatenated in order.
	Sources []string `mapstructure:"sources" yaml:"sources"`
	Output  string   `mapstructure:"output" yaml:"output"`
	Target  string   `mapstructure:"target" yaml:"target"`
}

type ImagesConfig struct {
	Progressive  bool   `mapstructure:"progressive" yaml:"progressive"`
	Interlaced   bool   `mapstructure:"interlaced" yaml:"interlaced"`
	CacheDir     string `mapstructure:"cache_dir" yaml:"cache_dir"`
	CacheEntries int    `mapstructure:"cache_entries" yaml:"cache_entries"`
}

type SpriteConfig struct {
	ID        string            `mapstructure:"id" yaml:"id"`
	Class     string            `mapstructure:"class" yaml:"class"`
	Templates []string          `mapstructure:"templates" yaml:"templates"`
	SVGAttrs  map[string]string `mapstructure:"svg_attrs" yaml:"svg_attrs"`
}

// HTMLConfig mirrors the html-minifier switches.
type HTMLConfig struct {
	RemoveComments                bool `mapstructure:"remove_comments" yaml:"remove_comments"`
	CollapseWhitespace            bool `mapstructure:"collapse_whitespace" yaml:"collapse_whitespace"`
	CollapseBooleanAttributes     bool `mapstructure:"collapse_boolean_attributes" yaml:"collapse_boolean_attributes"`
	RemoveAttributeQuotes         bool `mapstructure:"remove_attribute_quotes" yaml:"remove_attribute_quotes"`
	RemoveRedundantAttributes     bool `mapstructure:"remove_redundant_attributes" yaml:"remove_redundant_attributes"`
	RemoveEmptyAttributes         bool `mapstructure:"remove_empty_attributes" yaml:"remove_empty_attributes"`
	RemoveScriptTypeAttributes    bool `mapstructure:"remove_script_type_attributes" yaml:"remove_script_type_attributes"`
	RemoveStyleLinkTypeAttributes bool `mapstructure:"remove_style_link_type_attributes" yaml:"remove_style_link_type_attributes"`
	RemoveOptionalTags            bool `mapstructure:"remove_optional_tags" yaml:"remove_optional_tags"`
}

type ServerConfig struct {
	Host      string        `mapstructure:"host" yaml:"host"`
	Port      int           `mapstructure:"port" yaml:"port"`
	LogPrefix string        `mapstructure:"log_prefix" yaml:"log_prefix"`
	Open      bool          `mapstructure:"open" yaml:"open"`
	Debounce  time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type UpdateConfig struct {
	// ModernizrURL serves a ready Modernizr script. When Modernizr lists
	// features or options they are appended as a "-a-b-c" build query for
	// custom-build services.
	ModernizrURL string          `mapstructure:"modernizr_url" yaml:"modernizr_url"`
	Modernizr    ModernizrConfig `mapstructure:"modernizr" yaml:"modernizr"`
	JQueryURL    string          `mapstructure:"jquery_url" yaml:"jquery_url"`
	JQuerySource string          `mapstructure:"jquery_source" yaml:"jquery_source"`
}

// ModernizrConfig names the detects and build options of the custom build.
type ModernizrConfig struct {
	Features []string `mapstructure:"features" yaml:"features"`
	Options  []string `mapstructure:"options" yaml:"options"`
}

type PageSpeedConfig struct {
	URL      string        `mapstructure:"url" yaml:"url"`
	Strategy string        `mapstructure:"strategy" yaml:"strategy"`
	Key      string        `mapstructure:"key" yaml:"key"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultBrowsers is the compatibility target of the stock pipeline.
var DefaultBrowsers = []string{
	"ie >= 9",
	"ie_mob >= 10",
	"ff >= 30",
	"chrome >= 34",
	"safari >= 7",
	"opera >= 23",
	"ios >= 7",
	"android >= 4.4",
	"bb >= 10",
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.dev", "src")
	v.SetDefault("paths.dist", "dist")
	v.SetDefault("paths.temp", ".tmp")

	v.SetDefault("styles.compiler", "dart-sass")
	v.SetDefault("styles.browsers", DefaultBrowsers)
	v.SetDefault("styles.precision", 10)
	v.SetDefault("styles.purge", true)
	v.SetDefault("styles.root_font_size", 16)
	v.SetDefault("styles.include_paths", []string{})

	v.SetDefault("scripts.sources", []string{"js/plugins.js", "js/main.js"})
	v.SetDefault("scripts.output", "main.min.js")
	v.SetDefault("scripts.target", "es2015")

	v.SetDefault("images.progressive", true)
	v.SetDefault("images.interlaced", true)
	v.SetDefault("images.cache_dir", "")
	v.SetDefault("images.cache_entries", 512)

	v.SetDefault("sprite.id", "icon-%f")
	v.SetDefault("sprite.class", ".icon-%f")
	v.SetDefault("sprite.templates", []string{"default-svg", "default-css", "default-demo"})
	v.SetDefault("sprite.svg_attrs", map[string]string{
		"class":        "svg-icon-lib",
		"aria-hidden":  "true",
		"style":        "position: absolute;",
		"data-enabled": "true",
	})

	for _, key := range []string{
		"remove_comments", "collapse_whitespace", "collapse_boolean_attributes",
		"remove_attribute_quotes", "remove_redundant_attributes", "remove_empty_attributes",
		"remove_script_type_attributes", "remove_style_link_type_attributes", "remove_optional_tags",
	} {
		v.SetDefault("html."+key, true)
	}

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_prefix", "GB")
	v.SetDefault("server.open", false)
	v.SetDefault("server.debounce", 100*time.Millisecond)

	v.SetDefault("update.modernizr_url", "https://cdnjs.cloudflare.com/ajax/libs/modernizr/2.8.3/modernizr.min.js")
	v.SetDefault("update.modernizr.features", []string{})
	v.SetDefault("update.modernizr.options", []string{})
	v.SetDefault("update.jquery_url", "https://code.jquery.com/jquery-3.7.1.min.js")
	v.SetDefault("update.jquery_source", "node_modules/jquery/dist/jquery.min.js")

	v.SetDefault("pagespeed.url", "example.com")
	v.SetDefault("pagespeed.strategy", "mobile")
	v.SetDefault("pagespeed.key", "")
	v.SetDefault("pagespeed.endpoint", "https://www.googleapis.com/pagespeedonline/v5/runPagespeed")
	v.SetDefault("pagespeed.timeout", 60*time.Second)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, apperrors.NewConfigError("failed to decode configuration").WithCause(err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration a project without any config file gets.
func Default() *Config {
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		// The defaults are static and always valid.
		panic(err)
	}
	return cfg
}

// DevPath joins parts under the development root.
func (p PathsConfig) DevPath(parts ...string) string {
	return filepath.Join(append([]string{p.Dev}, parts...)...)
}

// DistPath joins parts under the distribution root.
func (p PathsConfig) DistPath(parts ...string) string {
	return filepath.Join(append([]string{p.Dist}, parts...)...)
}

// TempPath joins parts under the temporary root.
func (p PathsConfig) TempPath(parts ...string) string {
	return filepath.Join(append([]string{p.Temp}, parts...)...)
}

// Addr returns the host:port pair the dev server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Rebase resolves the three roots against dir, used by --cwd.
func (c *Config) Rebase(dir string) {
	if dir == "" {
		return
	}
	for _, p := range []*string{&c.Paths.Dev, &c.Paths.Dist, &c.Paths.Temp} {
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	if c.Update.JQuerySource != "" && !filepath.IsAbs(c.Update.JQuerySource) {
		c.Update.JQuerySource = filepath.Join(dir, c.Update.JQuerySource)
	}
}
