// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"todd/internal/service"
	"todd/internal/views"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// descIndent lines the description up under the title.
	descIndent = "          "
)

// TaskLine holds what is needed to print one task.
type TaskLine struct {
	Num    int
	Task   service.Task
	Now    time.Time
	MaxLen int // description length before truncation
}

// FormatTask formats a task line.
// Format: "{N:>4}  [x] {TITLE}  (due {DATE})\n", followed by the truncated
// description on its own indented line if there is one.
func FormatTask(w io.Writer, line TaskLine) {
	mark := " "
	if line.Task.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s%s\n", line.Num, mark, normalizeTitle(line.Task.Title), dueSuffix(line.Task, line.Now))
	if desc := normalizeText(line.Task.Description); desc != "" {
		fmt.Fprintf(w, "%s%s\n", descIndent, views.Truncate(desc, line.MaxLen))
	}
}

// FormatSectionHeader formats a section header.
func FormatSectionHeader(w io.Writer, title string) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, ListSeparator)
}

// FormatDetail prints every field of a task, with the full description.
func FormatDetail(w io.Writer, task service.Task, now time.Time) {
	status := "pending"
	if task.Completed {
		status = "completed"
	}
	due := "none"
	if task.DueDate != nil {
		due = views.FormatDueDate(task.DueDate)
		if views.IsOverdue(task, now) && !task.Completed {
			due += " (overdue)"
		}
	}
	fmt.Fprintf(w, "ID:          %s\n", task.ID)
	fmt.Fprintf(w, "Title:       %s\n", normalizeTitle(task.Title))
	fmt.Fprintf(w, "Status:      %s\n", status)
	fmt.Fprintf(w, "Due:         %s\n", due)
	if task.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", task.Description)
	}
}

func dueSuffix(task service.Task, now time.Time) string {
	if task.DueDate == nil {
		return ""
	}
	if !task.Completed && views.IsOverdue(task, now) {
		return fmt.Sprintf("  (overdue, due %s)", views.FormatDueDate(task.DueDate))
	}
	return fmt.Sprintf("  (due %s)", views.FormatDueDate(task.DueDate))
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

// normalizeText puts text on one line and trims it.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
