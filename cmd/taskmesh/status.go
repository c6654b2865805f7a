package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskmesh/internal/agent"
	"taskmesh/internal/state"
	"taskmesh/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show task and agent overview",
	Long: `Display the current state of the task database.

Shows:
  - Task counts per status
  - Registered agents and their workload
  - Recent work session history`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	total := 0
	fmt.Println("Tasks:")
	for _, status := range models.AllTaskStatuses() {
		tasks, err := db.LoadTasksByStatus(status)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			continue
		}
		total += len(tasks)
		fmt.Printf("  %-12s %d\n", statusColor(status), len(tasks))
	}
	if total == 0 {
		fmt.Println("  none")
	}

	agents, err := db.LoadAgents()
	if err != nil {
		return err
	}
	fmt.Println("\nAgents:")
	if len(agents) == 0 {
		fmt.Println("  none")
	}
	for _, a := range agents {
		fmt.Printf("  %-20s %-12s %d/%d tasks\n",
			a.ID, agentStatusColor(a.Status), a.CurrentWorkload(), a.MaxConcurrentTasks)
	}

	return displayRecentSessions(db, agents)
}

func displayRecentSessions(db *state.DB, agents []*agent.Agent) error {
	shown := 0
	for _, a := range agents {
		records, err := db.SessionHistory(a.ID)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if shown == 0 {
				fmt.Println("\nRecent Sessions:")
			}
			if shown >= 5 {
				return nil
			}
			elapsed := formatDuration(time.Since(rec.StartedAt))
			fmt.Printf("  %s: %s on %s (%s, started %s ago)\n",
				rec.ID[:8], rec.AgentID, rec.TaskID, rec.Status, elapsed)
			shown++
		}
	}
	return nil
}
