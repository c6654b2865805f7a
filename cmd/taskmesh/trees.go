package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmesh/internal/project"
)

var treesCmd = &cobra.Command{
	Use:   "trees",
	Short: "Show task trees and their progress",
	Long: `Group the open tasks into task trees and show each tree's progress.

Tasks are grouped by their first label; unlabeled tasks form the
general tree. For each tree the command shows completion progress and
the next task the tree would hand out.`,
	Args: cobra.NoArgs,
	RunE: runTrees,
}

func runTrees(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	proj := project.New("workspace", "workspace", "")
	if err := buildTrees(proj, db); err != nil {
		return err
	}

	trees := proj.Trees()
	if len(trees) == 0 {
		fmt.Println("No open tasks.")
		return nil
	}

	for _, tree := range trees {
		fmt.Printf("%s (%s)\n", tree.Name, tree.ID)
		fmt.Printf("  %d tasks, %d done (%.1f%%)\n",
			tree.TaskCount(), tree.CompletedTaskCount(), tree.ProgressPercentage())
		if next := tree.NextTask(); next != nil {
			fmt.Printf("  Next: %s %s (%s)\n", next.ID, next.Title, next.Priority)
		}
	}
	return nil
}
