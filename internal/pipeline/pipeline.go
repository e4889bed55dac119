// Package pipeline defines the concrete build tasks (styles, scripts,
// images, sprite, html, copy, clean, serve, update and pagespeed) over the
// transformation packages, and registers them with a task registry.
package pipeline

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/conneroisu/assetsmith/internal/cache"
	"github.com/conneroisu/assetsmith/internal/config"
	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/logging"
	"github.com/conneroisu/assetsmith/internal/pagespeed"
	"github.com/conneroisu/assetsmith/internal/sass"
	"github.com/conneroisu/assetsmith/internal/server"
	"github.com/conneroisu/assetsmith/internal/task"
	"github.com/conneroisu/assetsmith/internal/vendor"
)

// DefaultTask runs when no task is named.
const DefaultTask = "build"

// Pipeline holds what the tasks share: configuration and the long-lived
// collaborators that are expensive to create.
type Pipeline struct {
	cfg      *config.Config
	logger   logging.Logger
	compiler sass.Compiler
	fetcher  *vendor.Fetcher
	speed    *pagespeed.Client
	out      io.Writer
	errors   *apperrors.Collector

	cacheOnce sync.Once
	cache     *cache.Cache
	cacheErr  error

	serverMutex sync.RWMutex
	server      *server.DevServer
	onServe     func(*server.DevServer)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCompiler replaces the Dart Sass compiler.
func WithCompiler(c sass.Compiler) Option {
	return func(p *Pipeline) { p.compiler = c }
}

// WithCache sets the image optimisation cache.
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) { p.cacheOnce.Do(func() { p.cache = c }) }
}

// WithOutput sets where reports are printed.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithFetcher replaces the vendor downloader.
func WithFetcher(f *vendor.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// OnServe is called once the dev server is listening.
func OnServe(fn func(*server.DevServer)) Option {
	return func(p *Pipeline) { p.onServe = fn }
}

// New creates a pipeline for cfg.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
		errors: apperrors.NewCollector(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.compiler == nil {
		p.compiler = newCompiler(cfg.Styles.Compiler)
	}
	if p.fetcher == nil {
		p.fetcher = vendor.NewFetcher(time.Minute)
	}
	if p.speed == nil {
		p.speed = pagespeed.NewClient(cfg.PageSpeed.Endpoint, cfg.PageSpeed.Timeout)
	}
	return p
}

func newCompiler(name string) sass.Compiler {
	if name == "passthrough" {
		return sass.Passthrough{}
	}
	return sass.NewDartSass("")
}

// Close releases the Sass compiler.
func (p *Pipeline) Close() error {
	return p.compiler.Close()
}

// CompileErrors returns the Sass errors logged so far.
func (p *Pipeline) CompileErrors() []*apperrors.CompileError {
	return p.errors.Errors()
}

// Tasks describes every task. The returned bodies are not runnable; use it
// for names, descriptions and dependencies only.
func Tasks() []task.Task {
	return (&Pipeline{}).tasks()
}

func (p *Pipeline) tasks() []task.Task {
	return []task.Task{
		{Name: "clean", Description: "Clean output directories", Run: p.clean},
		{Name: "images", Description: "Optimize images", Run: p.images},
		{Name: "sprite", Description: "Build the SVG symbol sprite", Run: p.sprite},
		{Name: "copy", Description: "Copy root, vendor script and sprite files", Deps: []string{"copy:root", "copy:js", "copy:svg"}},
		{Name: "copy:root", Description: "Copy root-level files except HTML", Run: p.copyRoot},
		{Name: "copy:js", Description: "Copy vendor scripts", Run: p.copyJS},
		{Name: "copy:svg", Description: "Copy the generated sprite", Run: p.copySVG},
		{Name: "styles", Description: "Compile, prefix and minify stylesheets", Run: p.styles},
		{Name: "scripts", Description: "Transpile, concatenate and minify scripts", Run: p.scripts},
		{Name: "html", Description: "Resolve build blocks and minify HTML", Run: p.html},
		{Name: "serve", Description: "Serve the development tree with live reload", Deps: []string{"sprite", "scripts", "styles"}, Run: p.serve},
		{
			Name:        "build",
			Description: "Build production files",
			Deps:        []string{"clean"},
			Run:         task.Sequence(task.Seq("styles"), task.Seq("html", "scripts", "images"), task.Seq("sprite"), task.Seq("copy")),
		},
		{Name: "modernizr", Description: "Download the feature detection build", Run: p.modernizr},
		{Name: "jquery", Description: "Install jQuery", Run: p.jquery},
		{Name: "update", Description: "Update vendor scripts", Deps: []string{"modernizr", "jquery"}},
		{Name: "pagespeed", Description: "Run PageSpeed Insights", Run: p.pagespeed},
	}
}

// Register adds every task to reg.
func (p *Pipeline) Register(reg *task.Registry) error {
	for _, t := range p.tasks() {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return reg.Validate()
}

// NewRegistry creates a registry holding every task of p.
func NewRegistry(p *Pipeline) (*task.Registry, error) {
	reg := task.NewRegistry()
	if err := p.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (p *Pipeline) imageCache() (*cache.Cache, error) {
	p.cacheOnce.Do(func() {
		p.cache, p.cacheErr = cache.New(p.cfg.Images.CacheDir, p.cfg.Images.CacheEntries)
	})
	return p.cache, p.cacheErr
}

func (p *Pipeline) liveServer() *server.DevServer {
	p.serverMutex.RLock()
	defer p.serverMutex.RUnlock()
	return p.server
}

func (p *Pipeline) setServer(s *server.DevServer) {
	p.serverMutex.Lock()
	defer p.serverMutex.Unlock()
	p.server = s
}
