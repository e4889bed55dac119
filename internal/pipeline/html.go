package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/fileset"
	"github.com/conneroisu/assetsmith/internal/htmlproc"
	"github.com/conneroisu/assetsmith/internal/logging"
)

// html resolves build blocks and minifies every page of the dev tree into dist.
func (p *Pipeline) html(ctx context.Context) error {
	files, err := fileset.Glob([]string{filepath.ToSlash(p.cfg.Paths.Dev) + "/**/*.html"}, fileset.Options{})
	if err != nil {
		return err
	}

	h := p.cfg.HTML
	proc := htmlproc.New(htmlproc.Options{
		RemoveComments:                h.RemoveComments,
		CollapseWhitespace:            h.CollapseWhitespace,
		CollapseBooleanAttributes:     h.CollapseBooleanAttributes,
		RemoveAttributeQuotes:         h.RemoveAttributeQuotes,
		RemoveRedundantAttributes:     h.RemoveRedundantAttributes,
		RemoveEmptyAttributes:         h.RemoveEmptyAttributes,
		RemoveScriptTypeAttributes:    h.RemoveScriptTypeAttributes,
		RemoveStyleLinkTypeAttributes: h.RemoveStyleLinkTypeAttributes,
		RemoveOptionalTags:            h.RemoveOptionalTags,
	})

	size := fileset.NewSize("html", true)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(f.Path)
			if err != nil {
				return apperrors.NewIOError(apperrors.CodeReadFailed, "read page", err).WithFile(f.Path)
			}
			out, err := proc.Process(f.Path, src)
			if err != nil {
				return err
			}
			if err := p.writeOutput(p.cfg.Paths.DistPath(f.Rel), out); err != nil {
				return err
			}
			size.Add(filepath.ToSlash(f.Rel), len(out))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	size.Log(ctx, logging.FromContext(ctx))
	return nil
}
