package pipeline

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/assetsmith/internal/css"
	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/fileset"
	"github.com/conneroisu/assetsmith/internal/logging"
	"github.com/conneroisu/assetsmith/internal/sass"
)

// styleJob carries what every stylesheet of one run shares.
type styleJob struct {
	engines []api.Engine
	compat  css.CompatOptions
	docs    []*html.Node
	size    *fileset.Size

	mu      sync.Mutex
	changed []string
}

// styles compiles every non-partial stylesheet that is newer than its temp
// output. A changed partial rebuilds all of them. Sass errors are logged and
// the remaining files still build.
func (p *Pipeline) styles(ctx context.Context) error {
	log := logging.FromContext(ctx)
	cssDev := filepath.ToSlash(p.cfg.Paths.DevPath("css"))
	files, err := fileset.Glob([]string{cssDev + "/**/*.scss", cssDev + "/**/*.sass"}, fileset.Options{Base: p.cfg.Paths.DevPath("css")})
	if err != nil {
		return err
	}

	var entries []fileset.File
	var partials []string
	for _, f := range files {
		if sass.IsPartial(f.Path) {
			partials = append(partials, f.Path)
			continue
		}
		entries = append(entries, f)
	}

	var stale []fileset.File
	for _, f := range entries {
		out := p.cfg.Paths.TempPath("css", cssName(f.Rel))
		if fileset.Newer(f.Path, out) || fileset.AnyNewer(partials, out) {
			stale = append(stale, f)
		}
	}
	if len(stale) == 0 {
		log.Debug(ctx, "Stylesheets are up to date", "files", len(entries))
		return nil
	}

	job, err := p.newStyleJob(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, f := range stale {
		g.Go(func() error {
			return p.buildStylesheet(gctx, job, f)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	job.size.Log(ctx, log)
	if srv := p.liveServer(); srv != nil && len(job.changed) > 0 {
		sort.Strings(job.changed)
		srv.InjectCSS(job.changed)
	}
	return nil
}

func (p *Pipeline) newStyleJob(ctx context.Context) (*styleJob, error) {
	log := logging.FromContext(ctx)

	targets, err := css.ParseBrowsers(p.cfg.Styles.Browsers)
	if err != nil {
		return nil, err
	}
	engines, skipped := css.Engines(targets)
	if len(skipped) > 0 {
		log.Debug(ctx, "Browsers without an engine mapping", "browsers", skipped)
	}

	compat := css.DefaultCompatOptions()
	compat.RootFontSize = p.cfg.Styles.RootFontSize

	job := &styleJob{engines: engines, compat: compat, size: fileset.NewSize("styles", false)}
	if p.cfg.Styles.Purge {
		pages, err := fileset.Glob([]string{filepath.ToSlash(p.cfg.Paths.Dev) + "/*.html"}, fileset.Options{})
		if err != nil {
			return nil, err
		}
		job.docs, err = css.LoadDocuments(fileset.Paths(pages))
		if err != nil {
			return nil, err
		}
	}
	return job, nil
}

func (p *Pipeline) buildStylesheet(ctx context.Context, job *styleJob, f fileset.File) error {
	log := logging.FromContext(ctx)
	name := cssName(f.Rel)

	src, err := os.ReadFile(f.Path)
	if err != nil {
		return apperrors.NewIOError(apperrors.CodeReadFailed, "read stylesheet", err).WithFile(f.Path)
	}

	compiled, err := p.compiler.Compile(ctx, sass.Input{
		Path:         f.Path,
		Source:       string(src),
		IncludePaths: p.cfg.Styles.IncludePaths,
	})
	if err != nil {
		var ce *apperrors.CompileError
		if apperrors.As(err, &ce) {
			p.errors.Add(ce)
			log.Error(ctx, ce, "Sass compilation failed", "file", f.Rel)
			return nil
		}
		return apperrors.NewBuildError(apperrors.CodeTransformFail, "compile stylesheet", err).WithFile(f.Path)
	}

	prefixed, warnings, err := css.Prefix(compiled.CSS, f.Path, job.engines)
	if err != nil {
		return apperrors.NewBuildError(apperrors.CodeTransformFail, "prefix stylesheet", err).WithFile(f.Path)
	}
	for _, w := range warnings {
		log.Warn(ctx, nil, w, "file", f.Rel)
	}

	sheet, err := css.Parse(prefixed)
	if err != nil {
		return apperrors.NewBuildError(apperrors.CodeTransformFail, "parse stylesheet", err).WithFile(f.Path)
	}
	css.Compat(sheet, job.compat)
	if err := p.writeOutput(p.cfg.Paths.TempPath("css", name), []byte(sheet.String())); err != nil {
		return err
	}

	if len(job.docs) > 0 {
		stats := css.Purge(sheet, job.docs)
		log.Debug(ctx, "Removed unused selectors", "file", f.Rel, "selectors", stats.Removed, "rules", stats.Rules)
	}

	code, sourceMap, err := css.Minify(sheet.String(), path.Base(name), job.engines)
	if err != nil {
		return apperrors.NewBuildError(apperrors.CodeTransformFail, "minify stylesheet", err).WithFile(f.Path)
	}
	for _, root := range []string{p.cfg.Paths.Dist, p.cfg.Paths.Temp} {
		if err := p.writeOutput(filepath.Join(root, "css", name), code); err != nil {
			return err
		}
		if err := p.writeOutput(filepath.Join(root, "css", name+".map"), sourceMap); err != nil {
			return err
		}
	}

	job.size.Add(name, len(code))
	job.mu.Lock()
	job.changed = append(job.changed, "css/"+name)
	job.mu.Unlock()
	return nil
}

// cssName maps a stylesheet path relative to the css root to its output name.
func cssName(rel string) string {
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".css"
}

func (p *Pipeline) writeOutput(dest string, data []byte) error {
	if err := fileset.WriteFile(dest, data); err != nil {
		return apperrors.NewIOError(apperrors.CodeWriteFailed, "write output", err).WithFile(dest)
	}
	return nil
}
