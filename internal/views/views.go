// Package views derives presentation values from a task snapshot.
//
// Every function here is pure: it reads its arguments, never mutates them,
// and takes the current time as a parameter, so the same snapshot and clock
// always produce the same output.
package views

import (
	"fmt"
	"time"

	"todd/internal/service"
)

const (
	// DefaultMaxLen is the description length shown before truncation.
	DefaultMaxLen = 100

	// Ellipsis marks a truncated description.
	Ellipsis = "..."

	// DueDateLayout is how due dates are displayed.
	DueDateLayout = "Jan 2, 2006"
)

// Partition splits tasks into pending and completed, keeping relative order.
func Partition(tasks []service.Task) (pending, completed []service.Task) {
	pending = make([]service.Task, 0, len(tasks))
	completed = make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}
	return pending, completed
}

// IsOverdue reports whether t was due on a day before now's calendar day.
// A task due today is not overdue. A task without a due date never is.
func IsOverdue(t service.Task, now time.Time) bool {
	return t.DueDate != nil && service.CalendarDay(*t.DueDate).Before(service.CalendarDay(now))
}

// Truncate returns s unchanged if it has at most maxLen characters, and
// otherwise its first maxLen characters followed by Ellipsis.
// A maxLen of zero or less means DefaultMaxLen.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + Ellipsis
}

// Summary counts a snapshot.
type Summary struct {
	Total     int `json:"total" yaml:"total"`
	Pending   int `json:"pending" yaml:"pending"`
	Completed int `json:"completed" yaml:"completed"`
	Overdue   int `json:"overdue" yaml:"overdue"` // pending tasks past their due date
}

// Summarize counts tasks at now.
func Summarize(tasks []service.Task, now time.Time) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
			continue
		}
		s.Pending++
		if IsOverdue(t, now) {
			s.Overdue++
		}
	}
	return s
}

// Headline is the one-line status shown above the list.
func Headline(s Summary) string {
	switch {
	case s.Total == 0:
		return "No work to do"
	case s.Pending == 1:
		return "You've got 1 task coming up in the next days."
	default:
		return fmt.Sprintf("You've got %d tasks coming up in the next days.", s.Pending)
	}
}

// WithPending returns copies of tasks with the completed flags of toggles
// still in flight applied. tasks itself is not modified.
func WithPending(tasks []service.Task, pending map[string]bool) []service.Task {
	result := make([]service.Task, len(tasks))
	for i, t := range tasks {
		result[i] = t.Clone()
		if completed, ok := pending[t.ID]; ok {
			result[i].Completed = completed
		}
	}
	return result
}

// FormatDueDate formats a due date for display, or returns "" if absent.
func FormatDueDate(due *time.Time) string {
	if due == nil {
		return ""
	}
	return service.CalendarDay(*due).Format(DueDateLayout)
}
