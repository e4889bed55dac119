package pipeline

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/fileset"
	"github.com/conneroisu/assetsmith/internal/logging"
	"github.com/conneroisu/assetsmith/internal/scripts"
)

// scripts transpiles each configured source into temp/js when it changed, then
// concatenates every transpiled file in source order and minifies the result
// into dist/js.
func (p *Pipeline) scripts(ctx context.Context) error {
	log := logging.FromContext(ctx)
	target, err := scripts.ParseTarget(p.cfg.Scripts.Target)
	if err != nil {
		return err
	}

	var parts []string
	for _, src := range p.cfg.Scripts.Sources {
		full := p.cfg.Paths.DevPath(src)
		if _, err := os.Stat(full); err != nil {
			log.Warn(ctx, nil, "Script source not found, skipping", "file", src)
			continue
		}

		rel := scriptName(src)
		tmp := p.cfg.Paths.TempPath("js", filepath.FromSlash(rel))
		if fileset.Newer(full, tmp) {
			source, err := os.ReadFile(full)
			if err != nil {
				return apperrors.NewIOError(apperrors.CodeReadFailed, "read script", err).WithFile(full)
			}
			code, err := scripts.Transpile(string(source), rel, target)
			if err != nil {
				return wrapFile(err, full)
			}
			if err := p.writeOutput(tmp, []byte(code)); err != nil {
				return err
			}
		}

		code, err := os.ReadFile(tmp)
		if err != nil {
			return apperrors.NewIOError(apperrors.CodeReadFailed, "read transpiled script", err).WithFile(tmp)
		}
		parts = append(parts, string(code))
	}
	if len(parts) == 0 {
		log.Warn(ctx, nil, "No script sources found")
		return nil
	}

	name := p.cfg.Scripts.Output
	code, sourceMap, err := scripts.Minify(scripts.Concat(parts), name, target)
	if err != nil {
		return err
	}
	for _, root := range []string{p.cfg.Paths.Dist, p.cfg.Paths.Temp} {
		if err := p.writeOutput(filepath.Join(root, "js", name), code); err != nil {
			return err
		}
		if err := p.writeOutput(filepath.Join(root, "js", name+".map"), sourceMap); err != nil {
			return err
		}
	}

	size := fileset.NewSize("scripts", false)
	size.Add(name, len(code))
	size.Log(ctx, log)
	return nil
}

// scriptName maps a source to its transpiled path below temp/js: relative to
// the js directory, or under "_" for sources that live elsewhere.
func scriptName(src string) string {
	src = path.Clean(filepath.ToSlash(src))
	if rel, ok := strings.CutPrefix(src, "js/"); ok {
		return rel
	}
	return path.Join("_", src)
}

func wrapFile(err error, path string) error {
	var te *apperrors.TaskError
	if apperrors.As(err, &te) {
		return te.WithFile(path)
	}
	return err
}
