package pipeline

import (
	"context"
	"os"
	"path/filepath"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/logging"
)

// clean removes the temp tree and everything in dist, dotfiles included,
// except dist/.git.
func (p *Pipeline) clean(ctx context.Context) error {
	log := logging.FromContext(ctx)
	deleted := 0

	temp := p.cfg.Paths.Temp
	if _, err := os.Lstat(temp); err == nil {
		if err := os.RemoveAll(temp); err != nil {
			return apperrors.NewIOError(apperrors.CodeWriteFailed, "remove temp directory", err).WithFile(temp)
		}
		deleted++
	}

	dist := p.cfg.Paths.Dist
	entries, err := os.ReadDir(dist)
	if err != nil && !os.IsNotExist(err) {
		return apperrors.NewIOError(apperrors.CodeReadFailed, "read dist directory", err).WithFile(dist)
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		target := filepath.Join(dist, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			return apperrors.NewIOError(apperrors.CodeWriteFailed, "remove output", err).WithFile(target)
		}
		deleted++
	}

	log.Debug(ctx, "Deleted outputs", "count", deleted)
	return nil
}
