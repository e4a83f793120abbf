package rest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"todd/internal/service"
)

const dayLayout = "2006-01-02"

// dateLayouts are the due date encodings accepted from the backend.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	dayLayout,
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// userDTO accepts both the Mongo-style "_id" and a plain "id".
type userDTO struct {
	MongoID  string `json:"_id"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u userDTO) toUser() service.User {
	id := u.MongoID
	if id == "" {
		id = u.ID
	}
	return service.User{ID: id, Username: u.Username, Email: u.Email}
}

// todoDTO is the wire form of a task.
// The backend names the title "todoTitle"; "title" is accepted on decode.
type todoDTO struct {
	MongoID     string          `json:"_id"`
	ID          string          `json:"id"`
	TodoTitle   string          `json:"todoTitle"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	DueDate     json.RawMessage `json:"dueDate"`
	Completed   bool            `json:"completed"`
}

func (d todoDTO) toTask() (service.Task, error) {
	t := service.Task{
		ID:          d.MongoID,
		Title:       d.TodoTitle,
		Description: d.Description,
		Completed:   d.Completed,
	}
	if t.ID == "" {
		t.ID = d.ID
	}
	if t.Title == "" {
		t.Title = d.Title
	}
	if strings.TrimSpace(t.ID) == "" {
		return service.Task{}, fmt.Errorf("task without id")
	}
	due, err := parseDueDate(d.DueDate)
	if err != nil {
		return service.Task{}, err
	}
	t.DueDate = due
	return t, nil
}

// parseDueDate decodes a due date that may be null, an empty string, a date
// or a timestamp. A timestamp keeps the calendar day of its own offset.
func parseDueDate(raw json.RawMessage) (*time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("invalid dueDate %s: %w", raw, err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			day := service.CalendarDay(ts)
			return &day, nil
		}
	}
	return nil, fmt.Errorf("invalid dueDate %q", s)
}

// formatDueDate sends a due date as YYYY-MM-DD.
func formatDueDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dayLayout)
}

// createRequest is the POST /todos body.
// An absent due date is sent as an empty string.
type createRequest struct {
	TodoTitle   string `json:"todoTitle"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Completed   bool   `json:"completed"`
}

func newCreateRequest(d service.Draft) createRequest {
	return createRequest{
		TodoTitle:   d.Title,
		Description: d.Description,
		DueDate:     formatDueDate(d.DueDate),
		Completed:   false,
	}
}

// newUpdateRequest builds the partial PUT body: only set fields are sent.
func newUpdateRequest(u service.Update) map[string]any {
	body := make(map[string]any)
	if u.Title != nil {
		body["todoTitle"] = *u.Title
	}
	if u.Description != nil {
		body["description"] = *u.Description
	}
	switch {
	case u.ClearDueDate:
		body["dueDate"] = ""
	case u.DueDate != nil:
		body["dueDate"] = formatDueDate(u.DueDate)
	}
	if u.Completed != nil {
		body["completed"] = *u.Completed
	}
	return body
}

// unwrap returns the object stored under the first present key of an
// envelope such as {"data": {...}}, or body itself.
func unwrap(body []byte, keys ...string) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	for _, key := range keys {
		if inner, ok := env[key]; ok && len(inner) > 0 && inner[0] == '{' {
			return inner
		}
	}
	return body
}
