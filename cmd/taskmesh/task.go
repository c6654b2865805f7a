package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskmesh/pkg/models"
)

var (
	taskCreateDescription string
	taskCreatePriority    string
	taskCreateParent      string
	taskCreateAssignees   []string
	taskListStatus        string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long: `Create, inspect, and update tasks.

Task IDs follow the date-sequence form YYYYMMDDNNN, with subtasks
numbered below their parent as YYYYMMDDNNN.MMM.`,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCreate,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task done, completing any open subtasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskComplete,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

func init() {
	taskCreateCmd.Flags().StringVarP(&taskCreateDescription, "description", "d", "", "Task description (required)")
	taskCreateCmd.Flags().StringVarP(&taskCreatePriority, "priority", "p", "", "Priority: low, medium, high, urgent, critical")
	taskCreateCmd.Flags().StringVar(&taskCreateParent, "parent", "", "Create as a subtask entry under this task ID")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateAssignees, "assignee", nil, "Assignee role (repeatable)")
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Only show tasks in this status")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if taskCreateParent != "" {
		return createSubtask(db, args[0])
	}

	existing, err := db.ListTaskIDs()
	if err != nil {
		return err
	}
	id, err := models.GenerateTaskID(existing)
	if err != nil {
		return err
	}

	task, err := models.NewTask(id, args[0], taskCreateDescription)
	if err != nil {
		return err
	}
	if taskCreatePriority != "" {
		p := models.Priority(taskCreatePriority)
		if err := task.UpdatePriority(p); err != nil {
			return err
		}
	}
	for _, assignee := range taskCreateAssignees {
		task.AddAssignee(assignee)
	}

	if err := db.SaveTask(task); err != nil {
		return err
	}
	fmt.Printf("Created task %s: %s\n", color.GreenString(task.ID.String()), task.Title)
	return nil
}

func createSubtask(db taskStore, title string) error {
	parentID, err := models.ParseTaskID(taskCreateParent)
	if err != nil {
		return err
	}
	parent, err := db.LoadTask(parentID)
	if err != nil {
		return err
	}

	st, err := parent.AddSubtask(title, taskCreateDescription, taskCreateAssignees)
	if err != nil {
		return err
	}
	if err := db.SaveTask(parent); err != nil {
		return err
	}
	fmt.Printf("Added subtask %s under %s: %s\n", color.GreenString(st.ID), parent.ID, st.Title)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var tasks []*models.Task
	if taskListStatus != "" {
		status := models.TaskStatus(taskListStatus)
		if !status.Valid() {
			return fmt.Errorf("unknown status: %s", taskListStatus)
		}
		tasks, err = db.LoadTasksByStatus(status)
	} else {
		for _, status := range models.AllTaskStatuses() {
			batch, berr := db.LoadTasksByStatus(status)
			if berr != nil {
				err = berr
				break
			}
			tasks = append(tasks, batch...)
		}
	}
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks. Run 'taskmesh task create <title>' to add one.")
		return nil
	}
	for _, task := range tasks {
		fmt.Printf("%s  %-12s %-8s %s\n",
			task.ID, statusColor(task.Status), task.Priority, task.Title)
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := loadTaskArg(db, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Task %s\n", task.ID)
	fmt.Printf("  Title: %s\n", task.Title)
	fmt.Printf("  Status: %s\n", statusColor(task.Status))
	fmt.Printf("  Priority: %s\n", task.Priority)
	fmt.Printf("  Description: %s\n", task.Description)
	if task.DueDate != "" {
		fmt.Printf("  Due: %s\n", task.DueDate)
	}
	if len(task.Assignees) > 0 {
		fmt.Printf("  Assignees: %s\n", strings.Join(task.Assignees, ", "))
	}
	if len(task.Dependencies) > 0 {
		deps := make([]string, len(task.Dependencies))
		for i, dep := range task.Dependencies {
			deps[i] = dep.String()
		}
		fmt.Printf("  Depends on: %s\n", strings.Join(deps, ", "))
	}
	if len(task.Subtasks) > 0 {
		progress := task.GetSubtaskProgress()
		fmt.Printf("  Subtasks (%d/%d, %.1f%%):\n", progress.Completed, progress.Total, progress.Percentage)
		for _, st := range task.Subtasks {
			mark := " "
			if st.Completed {
				mark = "x"
			}
			fmt.Printf("    [%s] %s %s\n", mark, st.ID, st.Title)
		}
	}
	return nil
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := loadTaskArg(db, args[0])
	if err != nil {
		return err
	}
	task.CompleteTask()
	if err := db.SaveTask(task); err != nil {
		return err
	}
	fmt.Printf("%s Task %s completed\n", color.GreenString("✓"), task.ID)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	_, db, err := openStateDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := models.ParseTaskID(args[0])
	if err != nil {
		return err
	}
	if err := db.DeleteTask(id); err != nil {
		return err
	}
	fmt.Printf("Deleted task %s\n", id)
	return nil
}

// taskStore is the slice of the state layer the task commands need.
type taskStore interface {
	SaveTask(*models.Task) error
	LoadTask(models.TaskID) (*models.Task, error)
}

func loadTaskArg(db taskStore, raw string) (*models.Task, error) {
	id, err := models.ParseTaskID(raw)
	if err != nil {
		return nil, err
	}
	return db.LoadTask(id)
}

func statusColor(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusDone:
		return color.GreenString(string(status))
	case models.TaskStatusInProgress:
		return color.CyanString(string(status))
	case models.TaskStatusBlocked:
		return color.RedString(string(status))
	case models.TaskStatusCancelled:
		return color.HiBlackString(string(status))
	default:
		return string(status)
	}
}
