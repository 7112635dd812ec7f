package tasks

import (
	"time"

	tasks "google.golang.org/api/tasks/v1"
)

// Task status values reported by the Tasks API.
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// Task is an entry of the user's default task list.
type Task struct {
	ID        string
	Title     string
	Notes     string
	Status    string
	Due       *time.Time // date only; the API discards the time of day
	Completed *time.Time
}

// Done reports whether the task has been completed.
func (t Task) Done() bool {
	return t.Status == StatusCompleted
}

// toTask converts a Google Tasks task to a Task
func toTask(task *tasks.Task) Task {
	if task == nil {
		return Task{}
	}

	result := Task{
		ID:     task.Id,
		Title:  task.Title,
		Notes:  task.Notes,
		Status: task.Status,
	}

	if task.Due != "" {
		if due, err := time.Parse(time.RFC3339, task.Due); err == nil {
			result.Due = &due
		}
	}

	if task.Completed != nil && *task.Completed != "" {
		if completed, err := time.Parse(time.RFC3339, *task.Completed); err == nil {
			result.Completed = &completed
		}
	}

	return result
}
