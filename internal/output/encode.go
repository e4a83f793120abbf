package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"todd/internal/service"
	"todd/internal/views"
)

// Format is an output format for --output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (want text, json or yaml)", s)
	}
}

// TaskRecord is the structured form of a task.
type TaskRecord struct {
	Num         int        `json:"num" yaml:"num"`
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Completed   bool       `json:"completed" yaml:"completed"`
	Overdue     bool       `json:"overdue" yaml:"overdue"`
}

// NewTaskRecord converts a task numbered num.
func NewTaskRecord(num int, task service.Task, now time.Time) TaskRecord {
	return TaskRecord{
		Num:         num,
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Completed:   task.Completed,
		Overdue:     !task.Completed && views.IsOverdue(task, now),
	}
}

// ListReport is the structured output of the list command.
type ListReport struct {
	Headline string        `json:"headline" yaml:"headline"`
	Summary  views.Summary `json:"summary" yaml:"summary"`
	Tasks    []TaskRecord  `json:"tasks" yaml:"tasks"`
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported structured format: %s", format)
	}
}
