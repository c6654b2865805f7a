package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskmesh/internal/agent"
	"taskmesh/internal/roles"
	"taskmesh/internal/state"
	"taskmesh/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage agents",
	Long: `Inspect and sync the agent roster.

Agents are defined as role YAML files in the configured roles
directory. Syncing registers each role as an agent in the state
database, preserving the live stats of agents that already exist.
With roles.watch enabled (or --watch), sync keeps running and
re-registers roles whenever the files change.`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	Args:  cobra.NoArgs,
	RunE:  runAgentsList,
}

var agentsWatch bool

var agentsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Register agents from the roles directory",
	Args:  cobra.NoArgs,
	RunE:  runAgentsSync,
}

// rolesPollInterval is how often a watching sync checks for stale roles.
const rolesPollInterval = 2 * time.Second

func init() {
	agentsSyncCmd.Flags().BoolVar(&agentsWatch, "watch", false, "Keep running and resync when role files change")
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsSyncCmd)
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	agents, err := db.LoadAgents()
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered. Run 'taskmesh agents sync' to load roles.")
		return nil
	}

	for _, a := range agents {
		fmt.Printf("%-20s %-12s %5.1f%% load  %5.1f%% success  %s\n",
			a.ID, agentStatusColor(a.Status), a.WorkloadPercentage(), a.SuccessRate,
			strings.Join(a.Capabilities, ", "))
	}
	return nil
}

func runAgentsSync(cmd *cobra.Command, args []string) error {
	cfg, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Roles.Dir == "" {
		return fmt.Errorf("no roles directory configured (set roles.dir)")
	}

	if !agentsWatch && !cfg.Roles.Watch {
		loaded, err := roles.LoadDir(cfg.Roles.Dir)
		if err != nil {
			return err
		}
		return syncRoles(db, loaded)
	}

	store, err := roles.NewStore(cfg.Roles.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	loaded, err := store.Roles()
	if err != nil {
		return err
	}
	if err := syncRoles(db, loaded); err != nil {
		return err
	}

	fmt.Printf("Watching %s for role changes (Ctrl-C to stop)\n", cfg.Roles.Dir)
	ticker := time.NewTicker(rolesPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
			if !store.Stale() {
				continue
			}
			loaded, err := store.Roles()
			if err != nil {
				fmt.Printf("%s Reload failed: %v\n", color.RedString("✗"), err)
				continue
			}
			if err := syncRoles(db, loaded); err != nil {
				return err
			}
		}
	}
}

// syncRoles registers every role as an agent, refreshing the profile of
// agents that already exist while keeping their live stats.
func syncRoles(db *state.DB, loaded []*roles.Role) error {
	created, kept := 0, 0
	for _, role := range loaded {
		existing, err := db.LoadAgent(role.Slug)
		if err != nil && !errors.Is(err, state.ErrNotFound) {
			return err
		}
		if existing != nil {
			// Refresh the profile, keep the live stats.
			existing.Name = role.Name
			existing.Description = role.Description
			existing.Capabilities = append([]string(nil), role.Capabilities...)
			existing.Specializations = append([]string(nil), role.Specializations...)
			existing.PreferredLanguages = append([]string(nil), role.PreferredLanguages...)
			existing.PreferredFrameworks = append([]string(nil), role.PreferredFrameworks...)
			existing.PriorityPreference = models.Priority(role.PriorityPreference)
			if role.MaxConcurrentTasks > 0 {
				existing.MaxConcurrentTasks = role.MaxConcurrentTasks
			}
			if err := db.SaveAgent(existing); err != nil {
				return err
			}
			kept++
			continue
		}
		if err := db.SaveAgent(role.Agent()); err != nil {
			return err
		}
		created++
	}

	fmt.Printf("%s Synced %d roles: %d new, %d updated\n",
		color.GreenString("✓"), len(loaded), created, kept)
	return nil
}

func agentStatusColor(status agent.Status) string {
	switch status {
	case agent.StatusAvailable:
		return color.GreenString(string(status))
	case agent.StatusBusy:
		return color.CyanString(string(status))
	case agent.StatusOffline:
		return color.HiBlackString(string(status))
	default:
		return string(status)
	}
}
