package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskmesh/internal/orchestrator"
	"taskmesh/internal/project"
	"taskmesh/internal/state"
	"taskmesh/pkg/models"
)

var (
	orchestrateProjectName   string
	orchestrateStartSessions bool
)

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate",
	Short: "Run one orchestration cycle",
	Long: `Run one orchestration cycle over the open tasks.

Open tasks are grouped into task trees by their first label, registered
agents are matched to trees by capability, and the cycle reports new
assignments, task recommendations, resource conflicts, cross-tree
dependency issues, and workload balance.

With --start-sessions, each recommended task is started as a work
session for its agent and the session is recorded in the state
database.`,
	RunE: runOrchestrate,
}

func init() {
	orchestrateCmd.Flags().StringVar(&orchestrateProjectName, "project", "workspace", "Project name used in the report")
	orchestrateCmd.Flags().BoolVar(&orchestrateStartSessions, "start-sessions", false, "Start and record a work session for each recommendation")
}

func runOrchestrate(cmd *cobra.Command, args []string) error {
	cfg, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	agents, err := db.LoadAgents()
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered. Run 'taskmesh agents sync' first.")
		return nil
	}

	proj := project.New(orchestrateProjectName, orchestrateProjectName, "")
	for _, a := range agents {
		if err := proj.RegisterAgent(a); err != nil {
			return err
		}
	}
	if err := buildTrees(proj, db); err != nil {
		return err
	}

	logger := orchestrator.NopLogger()
	if cfg.Debug.LogFile != "" {
		logger, err = orchestrator.NewDebugLogger(cfg.Debug.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: debug log disabled: %v\n", err)
			logger = orchestrator.NopLogger()
		}
	}
	defer logger.Close()

	orch := orchestrator.New(orchestrator.NewCapabilityBasedStrategy(cfg.Capabilities), logger)
	report := orch.OrchestrateProject(proj)
	issues := orch.CoordinateCrossTreeDependencies(proj)
	balance := orch.BalanceWorkloadWithThresholds(proj,
		cfg.Orchestration.OverloadThreshold, cfg.Orchestration.UnderloadThreshold)

	printReport(report, issues, balance)

	if orchestrateStartSessions {
		if err := startRecommendedSessions(proj, db, report, cfg.Sessions.DefaultMaxDuration); err != nil {
			return err
		}
	}

	// Assignments may have changed agent state.
	for _, a := range agents {
		if err := db.SaveAgent(a); err != nil {
			return err
		}
	}
	return nil
}

// startRecommendedSessions opens a work session for every agent the
// cycle recommended a task to and records it in the state database.
func startRecommendedSessions(proj *project.Project, db *state.DB, report orchestrator.Report, maxDuration time.Duration) error {
	agentIDs := make([]string, 0, len(report.AgentRecommendations))
	for agentID := range report.AgentRecommendations {
		agentIDs = append(agentIDs, agentID)
	}
	sort.Strings(agentIDs)

	for _, agentID := range agentIDs {
		taskID := report.AgentRecommendations[agentID]
		if taskID == nil {
			continue
		}
		id, err := models.ParseTaskID(*taskID)
		if err != nil {
			return err
		}
		session, err := proj.StartWorkSession(agentID, id, maxDuration)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not start session for %s on %s: %v\n", agentID, *taskID, err)
			continue
		}
		if err := db.RecordSession(session); err != nil {
			return err
		}
		fmt.Printf("  %s Session %s: %s working on %s\n",
			color.GreenString("+"), session.ID[:8], agentID, *taskID)
	}
	return nil
}

// buildTrees groups the stored tasks into one tree per leading label.
// Unlabeled tasks land in the general tree. Dependencies that cross
// tree boundaries are registered as cross-tree dependencies. Terminal
// tasks ride along so tree progress reflects finished work.
func buildTrees(proj *project.Project, db *state.DB) error {
	var open []*models.Task
	for _, status := range models.AllTaskStatuses() {
		batch, err := db.LoadTasksByStatus(status)
		if err != nil {
			return err
		}
		open = append(open, batch...)
	}

	for _, task := range open {
		label := "general"
		if len(task.Labels) > 0 {
			label = task.Labels[0]
		}
		treeID := label + "_tree"
		tree, err := proj.TaskTree(treeID)
		if err != nil {
			tree, err = proj.CreateTaskTree(treeID, label+" tasks", "")
			if err != nil {
				return err
			}
		}
		if err := tree.AddRootTask(task); err != nil {
			return err
		}
	}

	for _, task := range open {
		for _, dep := range task.Dependencies {
			depTree, ok := proj.FindTaskTree(dep)
			if !ok {
				continue
			}
			ownTree, _ := proj.FindTaskTree(task.ID)
			if ownTree != nil && depTree.ID != ownTree.ID {
				if err := proj.AddCrossTreeDependency(task.ID, dep); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func printReport(report orchestrator.Report, issues []orchestrator.CoordinationIssue, balance orchestrator.BalanceReport) {
	fmt.Printf("Orchestration @ %s\n", report.OrchestrationTimestamp.Format("15:04:05"))
	fmt.Printf("  Available agents: %d, active sessions: %d\n",
		report.AvailableAgents, report.ActiveSessions)

	if len(report.NewAssignments) == 0 {
		fmt.Println("  No new assignments")
	} else {
		fmt.Println("  New assignments:")
		for treeID, agentID := range report.NewAssignments {
			fmt.Printf("    %s %s -> %s\n", color.GreenString("+"), treeID, agentID)
		}
	}

	recAgents := make([]string, 0, len(report.AgentRecommendations))
	for agentID := range report.AgentRecommendations {
		recAgents = append(recAgents, agentID)
	}
	sort.Strings(recAgents)
	for _, agentID := range recAgents {
		if taskID := report.AgentRecommendations[agentID]; taskID != nil {
			fmt.Printf("  Next for %s: %s\n", agentID, *taskID)
		} else {
			fmt.Printf("  Next for %s: nothing available\n", agentID)
		}
	}

	if report.ConflictsDetected > 0 {
		fmt.Printf("  %s Detected %d resource conflicts, resolved %d (oldest session keeps the lock)\n",
			color.YellowString("!"), report.ConflictsDetected, report.ConflictsResolved)
	}

	for _, issue := range issues {
		prereq := issue.PrerequisiteTask
		if prereq == "" {
			prereq = issue.MissingPrerequisite
		}
		fmt.Printf("  %s %s: task %s needs %s first\n",
			color.RedString("!"), issue.Type, issue.DependentTask, prereq)
	}

	for _, rec := range balance.RebalancingRecommendations {
		fmt.Printf("  Suggest moving %s from %s to %s\n", rec.TaskID, rec.FromAgent, rec.ToAgent)
	}
}
