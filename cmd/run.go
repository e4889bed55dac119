package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetsmith/internal/pipeline"
	"github.com/conneroisu/assetsmith/internal/task"
)

func init() {
	for _, t := range pipeline.Tasks() {
		rootCmd.AddCommand(taskCommand(t))
	}
}

// taskCommand exposes one task as "assetsmith <name> [task...]".
func taskCommand(t task.Task) *cobra.Command {
	short := t.Description
	if len(t.Deps) > 0 {
		short = fmt.Sprintf("%s (after %v)", short, t.Deps)
	}
	return &cobra.Command{
		Use:          t.Name + " [task...]",
		Short:        short,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, append([]string{t.Name}, args...))
		},
	}
}

// runTasks runs names in parallel until they finish or the process is
// interrupted.
func runTasks(cmd *cobra.Command, names []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Server.LogPrefix)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, logger, pipeline.WithOutput(cmd.OutOrStdout()))
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn(context.Background(), err, "Closing sass compiler")
		}
	}()

	reg, err := pipeline.NewRegistry(p)
	if err != nil {
		return err
	}

	err = task.NewRunner(reg, logger).Run(ctx, names...)
	if errs := p.CompileErrors(); len(errs) > 0 {
		logger.Warn(ctx, nil, "Stylesheets failed to compile", "count", len(errs))
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info(context.Background(), "Interrupted")
	}
	return err
}
