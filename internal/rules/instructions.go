// Package rules renders Markdown work instructions for a task so an
// agent picking it up sees the full picture in one document.
package rules

import (
	"fmt"
	"strings"

	"taskmesh/pkg/models"
)

// Options adjusts what the rendered instructions include.
type Options struct {
	// AgentName is shown in the header when set.
	AgentName string
	// TreeName is shown in the header when set.
	TreeName string
	// IncludeDetails controls whether the free-form details block is rendered.
	IncludeDetails bool
}

// BuildInstructions renders the work instructions for one task.
func BuildInstructions(task *models.Task, opts Options) string {
	var sb strings.Builder

	sb.WriteString("# Work Instructions: ")
	sb.WriteString(task.Title)
	sb.WriteString("\n\n")

	sb.WriteString("Task ID: ")
	sb.WriteString(task.ID.String())
	sb.WriteString("\n")
	sb.WriteString("Status: ")
	sb.WriteString(string(task.Status))
	sb.WriteString("\n")
	sb.WriteString("Priority: ")
	sb.WriteString(string(task.Priority))
	sb.WriteString("\n")
	if opts.AgentName != "" {
		sb.WriteString("Assigned agent: ")
		sb.WriteString(opts.AgentName)
		sb.WriteString("\n")
	}
	if opts.TreeName != "" {
		sb.WriteString("Task tree: ")
		sb.WriteString(opts.TreeName)
		sb.WriteString("\n")
	}
	if task.DueDate != "" {
		sb.WriteString("Due: ")
		sb.WriteString(task.DueDate)
		sb.WriteString("\n")
	}

	if task.Description != "" {
		sb.WriteString("\n## Description\n\n")
		sb.WriteString(task.Description)
		sb.WriteString("\n")
	}

	if opts.IncludeDetails && task.Details != "" {
		sb.WriteString("\n## Details\n\n")
		sb.WriteString(task.Details)
		sb.WriteString("\n")
	}

	if len(task.Assignees) > 0 {
		sb.WriteString("\n## Assignees\n\n")
		for _, assignee := range task.Assignees {
			sb.WriteString("- ")
			sb.WriteString(assignee)
			sb.WriteString("\n")
		}
	}

	if len(task.Dependencies) > 0 {
		sb.WriteString("\n## Prerequisites\n\n")
		sb.WriteString("These tasks must be done before this one can start:\n\n")
		for _, dep := range task.Dependencies {
			sb.WriteString(fmt.Sprintf("- `%s`\n", dep))
		}
	}

	if len(task.Subtasks) > 0 {
		sb.WriteString("\n## Subtasks\n\n")
		for _, st := range task.Subtasks {
			if st.Completed {
				sb.WriteString("- [x] ")
			} else {
				sb.WriteString("- [ ] ")
			}
			sb.WriteString(st.Title)
			if len(st.Assignees) > 0 {
				sb.WriteString(" (")
				sb.WriteString(strings.Join(st.Assignees, ", "))
				sb.WriteString(")")
			}
			sb.WriteString("\n")
		}
		progress := task.GetSubtaskProgress()
		sb.WriteString(fmt.Sprintf("\nProgress: %d of %d complete (%.1f%%)\n",
			progress.Completed, progress.Total, progress.Percentage))
	}

	if len(task.Labels) > 0 {
		sb.WriteString("\n## Labels\n\n")
		sb.WriteString(strings.Join(task.Labels, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString("\nComplete every subtask, then mark the task done. Note anything that blocked you.\n")

	return sb.String()
}
