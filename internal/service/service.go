// Package service defines the backend-agnostic types and interface for task operations.
package service

import "context"

// Service defines the interface for remote backend operations.
// All backend calls go through this interface.
// Every task call takes the session token explicitly; the service keeps no session state.
type Service interface {
	// Login exchanges credentials for a session token.
	Login(ctx context.Context, creds Credentials) (string, error)

	// Register creates a new account. It does not log in.
	Register(ctx context.Context, reg Registration) (User, error)

	// CurrentUser returns the profile of the token's owner.
	CurrentUser(ctx context.Context, token string) (User, error)

	// ListTasks returns all tasks in server order.
	ListTasks(ctx context.Context, token string) ([]Task, error)

	// GetTask returns a single task by ID.
	GetTask(ctx context.Context, token, id string) (Task, error)

	// CreateTask creates a task from a draft and returns it with its server-assigned ID.
	CreateTask(ctx context.Context, token string, draft Draft) (Task, error)

	// UpdateTask applies a partial update and returns the updated task.
	UpdateTask(ctx context.Context, token, id string, update Update) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, token, id string) error
}
