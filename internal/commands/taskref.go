package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"todd/internal/service"
	"todd/internal/views"
)

// TaskRef represents a parsed task reference.
// Exactly one of Num and ID is set.
type TaskRef struct {
	Num int    // 1-based position in the displayed list
	ID  string // raw task ID
}

func (r TaskRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return strconv.Itoa(r.Num)
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a single task reference.
//
// All digits is a position; "#" followed by anything, or any other token, is
// a raw ID.
func ParseTaskRef(arg string) (TaskRef, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		return TaskRef{}, ErrTaskRefRequired
	case strings.HasPrefix(arg, "#"):
		id := strings.TrimPrefix(arg, "#")
		if id == "" {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{ID: id}, nil
	case isAllDigits(arg):
		num, err := strconv.Atoi(arg)
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{Num: num}, nil
	default:
		return TaskRef{ID: arg}, nil
	}
}

// ParseTaskRefs parses one or more task references.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	refs := make([]TaskRef, 0, len(args))
	for _, arg := range args {
		ref, err := ParseTaskRef(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// DisplayOrder is the order tasks are numbered in: pending first, then
// completed, each in server order.
func DisplayOrder(tasks []service.Task) []service.Task {
	pending, completed := views.Partition(tasks)
	return append(pending, completed...)
}

// Resolve finds the task ref points at in the displayed order.
func Resolve(tasks []service.Task, ref TaskRef) (service.Task, error) {
	if ref.ID != "" {
		for _, t := range tasks {
			if t.ID == ref.ID {
				return t, nil
			}
		}
		return service.Task{}, service.Validation("resolve", "task not found: "+ref.ID)
	}
	ordered := DisplayOrder(tasks)
	if ref.Num < 1 || ref.Num > len(ordered) {
		return service.Task{}, service.Validation("resolve", fmt.Sprintf("task number out of range: %d", ref.Num))
	}
	return ordered[ref.Num-1], nil
}
