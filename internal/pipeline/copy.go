package pipeline

import (
	"context"
	"os"
	"path/filepath"

	cp "github.com/otiai10/copy"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/fileset"
	"github.com/conneroisu/assetsmith/internal/logging"
)

// copyRoot copies root-level files of the dev tree, dotfiles included and
// HTML excluded, into dist.
func (p *Pipeline) copyRoot(ctx context.Context) error {
	dev := filepath.ToSlash(p.cfg.Paths.Dev)
	files, err := fileset.Glob([]string{dev + "/*", "!" + dev + "/*.html"}, fileset.Options{Dot: true})
	if err != nil {
		return err
	}

	size := fileset.NewSize("copy", false)
	for _, f := range files {
		dest := p.cfg.Paths.DistPath(f.Rel)
		if err := fileset.CopyFile(f.Path, dest); err != nil {
			return apperrors.NewIOError(apperrors.CodeWriteFailed, "copy file", err).WithFile(f.Path)
		}
		size.Add(f.Rel, int(f.Info.Size()))
	}
	size.Log(ctx, logging.FromContext(ctx))
	return nil
}

// copyJS copies the top level of dev/js/vendor into dist/js/vendor.
func (p *Pipeline) copyJS(ctx context.Context) error {
	log := logging.FromContext(ctx)
	src := p.cfg.Paths.DevPath("js", "vendor")
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		log.Debug(ctx, "No vendor scripts", "dir", src)
		return nil
	}

	copied := 0
	err := cp.Copy(src, p.cfg.Paths.DistPath("js", "vendor"), cp.Options{
		Skip: func(info os.FileInfo, path, _ string) (bool, error) {
			if path == src {
				return false, nil
			}
			if info.IsDir() {
				return true, nil
			}
			copied++
			return false, nil
		},
		PermissionControl: cp.AddPermission(0o644),
	})
	if err != nil {
		return apperrors.NewIOError(apperrors.CodeWriteFailed, "copy vendor scripts", err).WithFile(src)
	}
	log.Debug(ctx, "Copied vendor scripts", "files", copied)
	return nil
}

// copySVG copies the generated sprite files into dist.
func (p *Pipeline) copySVG(ctx context.Context) error {
	tempSVG := filepath.ToSlash(p.cfg.Paths.TempPath("img", "svg"))
	files, err := fileset.Glob([]string{tempSVG + "/*.svg"}, fileset.Options{})
	if err != nil {
		return err
	}
	for _, f := range files {
		dest := p.cfg.Paths.DistPath("img", "svg", f.Rel)
		if err := fileset.CopyFile(f.Path, dest); err != nil {
			return apperrors.NewIOError(apperrors.CodeWriteFailed, "copy sprite", err).WithFile(f.Path)
		}
	}
	logging.FromContext(ctx).Debug(ctx, "Copied sprite files", "files", len(files))
	return nil
}
