package pipeline

import (
	"context"
	"os"
	"path/filepath"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/fileset"
	"github.com/conneroisu/assetsmith/internal/logging"
	"github.com/conneroisu/assetsmith/internal/sprite"
)

// spriteFile is the output the staleness check compares against.
const spriteFile = "svg-symbols.svg"

// sprite rebuilds the symbol sprite into temp/img/svg when any icon is newer
// than it.
func (p *Pipeline) sprite(ctx context.Context) error {
	log := logging.FromContext(ctx)
	files, err := fileset.Glob([]string{filepath.ToSlash(p.cfg.Paths.DevPath("img", "svg")) + "/**/*.svg"}, fileset.Options{})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Debug(ctx, "No icons to combine")
		return nil
	}

	outDir := p.cfg.Paths.TempPath("img", "svg")
	if !fileset.AnyNewer(fileset.Paths(files), filepath.Join(outDir, spriteFile)) {
		log.Debug(ctx, "Sprite is up to date")
		return nil
	}

	sources := make([]sprite.Source, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return apperrors.NewIOError(apperrors.CodeReadFailed, "read icon", err).WithFile(f.Path)
		}
		sources = append(sources, sprite.Source{Path: f.Path, Data: data})
	}

	outputs, err := sprite.Build(sources, sprite.Options{
		ID:        p.cfg.Sprite.ID,
		Class:     p.cfg.Sprite.Class,
		Templates: p.cfg.Sprite.Templates,
		SVGAttrs:  p.cfg.Sprite.SVGAttrs,
	})
	if err != nil {
		return err
	}
	for _, out := range outputs {
		dest := filepath.Join(outDir, out.Name)
		if err := fileset.WriteFile(dest, out.Data); err != nil {
			return apperrors.NewIOError(apperrors.CodeWriteFailed, "write sprite", err).WithFile(dest)
		}
	}
	log.Info(ctx, "Sprite built", "symbols", len(sources), "files", len(outputs))
	return nil
}
