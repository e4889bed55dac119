package pipeline

import (
	"context"
	"time"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/logging"
	"github.com/conneroisu/assetsmith/internal/server"
	"github.com/conneroisu/assetsmith/internal/task"
	"github.com/conneroisu/assetsmith/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// serve runs the dev server over temp and dev, and re-runs tasks as files
// change, until ctx is cancelled.
func (p *Pipeline) serve(ctx context.Context) error {
	log := logging.FromContext(ctx)
	runner, ok := task.FromContext(ctx)
	if !ok {
		return apperrors.NewTaskError(apperrors.CodeTaskFailed, "serve", "serve needs a task runner", nil)
	}

	srv := server.New(p.cfg.Server, []string{p.cfg.Paths.Temp, p.cfg.Paths.Dev}, p.logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	p.setServer(srv)
	defer p.setServer(nil)
	if p.onServe != nil {
		p.onServe(srv)
	}

	fw, err := watcher.NewFileWatcher(p.cfg.Paths.Dev, p.cfg.Server.Debounce, p.logger)
	if err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}
	for _, rule := range p.watchRules(runner, srv) {
		fw.AddRule(rule)
	}
	if err := fw.Start(ctx); err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	log.Info(context.Background(), "Stopping dev server")

	if err := fw.Stop(); err != nil {
		log.Warn(context.Background(), err, "Stopping watcher")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watchRules maps changes below the dev root to tasks and browser updates.
func (p *Pipeline) watchRules(runner *task.Runner, srv *server.DevServer) []watcher.Rule {
	rerun := func(name string, reload bool) watcher.Action {
		return func(ctx context.Context, _ []watcher.ChangeEvent) error {
			runner.Reset(name)
			if err := runner.Run(ctx, name); err != nil {
				return err
			}
			if reload {
				srv.Reload()
			}
			return nil
		}
	}
	reload := func(context.Context, []watcher.ChangeEvent) error {
		srv.Reload()
		return nil
	}

	return []watcher.Rule{
		{Name: "html", Include: []string{"**/*.html"}, Action: reload},
		// styles pushes the rebuilt stylesheets to the browser itself.
		{Name: "styles", Include: []string{"css/**/*.scss", "css/**/*.sass"}, Action: rerun("styles", false)},
		{Name: "scripts", Include: []string{"js/**/*.js"}, Action: rerun("scripts", true)},
		{Name: "images", Include: []string{"img/**/*"}, Exclude: []string{"img/svg/**"}, Action: reload},
		{Name: "sprite", Include: []string{"img/svg/**/*"}, Action: rerun("sprite", true)},
	}
}
