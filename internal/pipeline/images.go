package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/fileset"
	"github.com/conneroisu/assetsmith/internal/imagemin"
	"github.com/conneroisu/assetsmith/internal/logging"
)

// images optimises every image of dev/img into dist/img through the cache.
func (p *Pipeline) images(ctx context.Context) error {
	log := logging.FromContext(ctx)
	files, err := fileset.Glob([]string{filepath.ToSlash(p.cfg.Paths.DevPath("img")) + "/**/*"}, fileset.Options{})
	if err != nil {
		return err
	}

	c, err := p.imageCache()
	if err != nil {
		log.Warn(ctx, err, "Image cache unavailable, optimising without it")
		c = nil
	}
	opt := imagemin.New(imagemin.Options{
		Progressive: p.cfg.Images.Progressive,
		Interlaced:  p.cfg.Images.Interlaced,
	}, c)

	size := fileset.NewSize("images", false)
	var cached atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(f.Path)
			if err != nil {
				return apperrors.NewIOError(apperrors.CodeReadFailed, "read image", err).WithFile(f.Path)
			}
			res, err := opt.Optimize(f.Path, data)
			if err != nil {
				return err
			}
			if res.Cached {
				cached.Add(1)
			}
			if err := fileset.WriteFile(p.cfg.Paths.DistPath("img", f.Rel), res.Data); err != nil {
				return apperrors.NewIOError(apperrors.CodeWriteFailed, "write image", err).WithFile(f.Path)
			}
			size.Add(f.Rel, len(res.Data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Debug(ctx, "Image cache", "files", len(files), "cached", cached.Load())
	size.Log(ctx, log)
	return nil
}
