package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmesh/internal/rules"
)

var (
	instructionsAgent   string
	instructionsTree    string
	instructionsDetails bool
)

var instructionsCmd = &cobra.Command{
	Use:   "instructions <task-id>",
	Short: "Render work instructions for a task",
	Long: `Render the Markdown work instructions for one task.

The output includes the task header, description, prerequisites, and
the subtask checklist with progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstructions,
}

func init() {
	instructionsCmd.Flags().StringVar(&instructionsAgent, "agent", "", "Agent name to show in the header")
	instructionsCmd.Flags().StringVar(&instructionsTree, "tree", "", "Task tree to show in the header")
	instructionsCmd.Flags().BoolVar(&instructionsDetails, "details", false, "Include the free-form details block")
}

func runInstructions(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := loadTaskArg(db, args[0])
	if err != nil {
		return err
	}

	fmt.Print(rules.BuildInstructions(task, rules.Options{
		AgentName:      instructionsAgent,
		TreeName:       instructionsTree,
		IncludeDetails: instructionsDetails,
	}))
	return nil
}
