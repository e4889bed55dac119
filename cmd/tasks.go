package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/conneroisu/assetsmith/internal/pipeline"
	"github.com/conneroisu/assetsmith/internal/task"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks with their prerequisites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := task.NewRegistry()
		reg.MustRegister(pipeline.Tasks()...)

		r := lipgloss.NewRenderer(cmd.OutOrStdout())
		name := r.NewStyle().Bold(true).Width(12)
		deps := r.NewStyle().Faint(true)

		for _, t := range reg.Describe() {
			line := name.Render(t.Name) + " " + t.Description
			if len(t.Deps) > 0 {
				line += " " + deps.Render("["+strings.Join(t.Deps, ", ")+"]")
			}
			if t.Name == pipeline.DefaultTask {
				line += " (default)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
