package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskmesh",
	Short: "Multi-agent task orchestration",
	Long: `Taskmesh coordinates agents working on trees of tasks within a project.

It tracks tasks with date-based IDs, assigns task trees to agents by
capability, supervises work sessions, and flags resource conflicts and
cross-tree dependency problems.

Core capabilities:
- Date-sequenced task IDs with subtask numbering
- Task trees assigned to agents by capability keywords
- Work sessions with pause, resume, and timeout handling
- Resource conflict detection with oldest-session-wins resolution
- Workload balance analysis across agents`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. The command context ends on interrupt
// so long-running subcommands can stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(treesCmd)
	rootCmd.AddCommand(orchestrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(instructionsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
