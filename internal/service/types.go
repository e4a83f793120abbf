// Package service defines the backend-agnostic types and interface for task operations.
package service

import (
	"strings"
	"time"
)

// Task represents a single task item as confirmed by the backend.
type Task struct {
	ID          string
	Title       string
	Description string
	DueDate     *time.Time // calendar day at midnight UTC, nil when absent
	Completed   bool
}

// CalendarDay returns the calendar day of t, in t's own zone, as midnight UTC.
// Due dates are days, not instants, and are held in this form.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clone returns a copy of t that shares no memory with it.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

// Equal reports whether t and o carry the same fields.
func (t Task) Equal(o Task) bool {
	if t.ID != o.ID || t.Title != o.Title || t.Description != o.Description || t.Completed != o.Completed {
		return false
	}
	if (t.DueDate == nil) != (o.DueDate == nil) {
		return false
	}
	return t.DueDate == nil || t.DueDate.Equal(*o.DueDate)
}

// Draft holds the fields of a task that has not been created yet.
type Draft struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Validate checks the draft before it is submitted.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return Validation("create", "title required")
	}
	return nil
}

// Reset clears all draft fields.
func (d *Draft) Reset() {
	*d = Draft{}
}

// IsEmpty reports whether no field of the draft is set.
func (d *Draft) IsEmpty() bool {
	return d.Title == "" && d.Description == "" && d.DueDate == nil
}

// Edit is the full field set submitted by the edit view.
type Edit struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// Validate checks the edit before it is submitted.
func (e Edit) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return Validation("edit", "title required")
	}
	return nil
}

// Update is a partial update sent to the backend.
// Nil fields are left unchanged. ClearDueDate removes the due date.
type Update struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Completed    *bool
}

// EditUpdate converts a full edit into an Update.
func EditUpdate(e Edit) Update {
	title, desc := e.Title, e.Description
	u := Update{Title: &title, Description: &desc}
	if e.DueDate != nil {
		d := *e.DueDate
		u.DueDate = &d
	} else {
		u.ClearDueDate = true
	}
	return u
}

// CompletionUpdate returns an Update that only sets the completed flag.
func CompletionUpdate(completed bool) Update {
	return Update{Completed: &completed}
}

// User is the profile of the authenticated user.
type User struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
}

// Credentials are submitted to log in.
type Credentials struct {
	Email    string
	Password string
}

// Registration is submitted to create an account.
type Registration struct {
	Username string
	Email    string
	Password string
}
