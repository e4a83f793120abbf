// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"todd/internal/service"
)

// Hold keys for calls that are not addressed by a task ID.
const (
	HoldCreate  = "@create"
	HoldList    = "@list"
	HoldProfile = "@profile"
)

// Default account created by NewFakeService.
const (
	DefaultEmail    = "user@example.com"
	DefaultPassword = "secret"
	DefaultUsername = "user"
	DefaultUserID   = "u1"
)

type account struct {
	user     service.User
	password string
}

type hold struct {
	started chan struct{}
	once    sync.Once
	release chan struct{}
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.RWMutex
	accounts map[string]account // email -> account
	tokens   map[string]string  // token -> email
	tasks    []service.Task
	nextID   int
	nextTok  int
	holds    map[string]*hold
	calls    map[string]int

	// Error injection for testing
	LoginErr       error
	RegisterErr    error
	CurrentUserErr error
	ListTasksErr   error
	GetTaskErr     error
	CreateTaskErr  error
	UpdateTaskErr  error
	DeleteTaskErr  error

	// NormalizeTitle, if set, is applied to titles on create and update,
	// standing in for server-side normalization.
	NormalizeTitle func(string) string
}

// NewFakeService creates a FakeService with the default account and no tasks.
func NewFakeService() *FakeService {
	f := &FakeService{
		accounts: make(map[string]account),
		tokens:   make(map[string]string),
		holds:    make(map[string]*hold),
		calls:    make(map[string]int),
	}
	f.AddUser(DefaultUserID, DefaultUsername, DefaultEmail, DefaultPassword)
	return f
}

// AddUser adds an account.
func (f *FakeService) AddUser(id, username, email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[email] = account{user: service.User{ID: id, Username: username, Email: email}, password: password}
}

// IssueToken returns a valid token for the account with the given email.
func (f *FakeService) IssueToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked(email)
}

func (f *FakeService) issueLocked(email string) string {
	f.nextTok++
	token := fmt.Sprintf("token-%d", f.nextTok)
	f.tokens[token] = email
	return token
}

// RevokeAll invalidates every issued token.
func (f *FakeService) RevokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// AddTask adds a task as if it had been created earlier.
func (f *FakeService) AddTask(task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task.Clone())
}

// RemoveTask deletes a task behind the client's back.
func (f *FakeService) RemoveTask(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexLocked(id); i >= 0 {
		f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	}
}

// Tasks returns the backend's tasks in order.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]service.Task, len(f.tasks))
	for i, t := range f.tasks {
		result[i] = t.Clone()
	}
	return result
}

// Calls returns how many times the named method was called.
func (f *FakeService) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// Hold makes calls for key block until release is called. key is a task ID
// for UpdateTask, DeleteTask and GetTask, or one of the Hold constants.
// started is closed when the first held call arrives.
func (f *FakeService) Hold(key string) (started <-chan struct{}, release func()) {
	h := &hold{started: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.holds[key] = h
	f.mu.Unlock()
	var once sync.Once
	return h.started, func() {
		once.Do(func() {
			f.mu.Lock()
			if f.holds[key] == h {
				delete(f.holds, key)
			}
			f.mu.Unlock()
			close(h.release)
		})
	}
}

func (f *FakeService) wait(ctx context.Context, key string) error {
	f.mu.RLock()
	h := f.holds[key]
	f.mu.RUnlock()
	if h == nil {
		return nil
	}
	h.once.Do(func() { close(h.started) })
	select {
	case <-h.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeService) enter(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

// authLocked resolves a token to an account.
func (f *FakeService) authLocked(op, token string) (account, error) {
	email, ok := f.tokens[token]
	if !ok {
		return account{}, &service.Error{Op: op, Kind: service.KindAuth, Status: http.StatusUnauthorized, Message: "unauthorized"}
	}
	return f.accounts[email], nil
}

func (f *FakeService) indexLocked(id string) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func notFound(op, id string) error {
	return &service.Error{Op: op, Kind: service.KindConflict, Status: http.StatusNotFound, Message: "todo not found: " + id}
}

func (f *FakeService) normalize(title string) string {
	if f.NormalizeTitle != nil {
		return f.NormalizeTitle(title)
	}
	return title
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, creds service.Credentials) (string, error) {
	f.enter("Login")
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[creds.Email]
	if !ok || acct.password != creds.Password {
		return "", &service.Error{Op: "login", Kind: service.KindAuth, Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	return f.issueLocked(creds.Email), nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, reg service.Registration) (service.User, error) {
	f.enter("Register")
	if f.RegisterErr != nil {
		return service.User{}, f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[reg.Email]; exists {
		return service.User{}, &service.Error{Op: "register", Kind: service.KindValidation, Status: http.StatusBadRequest, Message: "User already exists"}
	}
	user := service.User{ID: fmt.Sprintf("u%d", len(f.accounts)+1), Username: reg.Username, Email: reg.Email}
	f.accounts[reg.Email] = account{user: user, password: reg.Password}
	return user, nil
}

// CurrentUser implements service.Service.
func (f *FakeService) CurrentUser(ctx context.Context, token string) (service.User, error) {
	f.enter("CurrentUser")
	if err := f.wait(ctx, HoldProfile); err != nil {
		return service.User{}, err
	}
	if f.CurrentUserErr != nil {
		return service.User{}, f.CurrentUserErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	acct, err := f.authLocked("current user", token)
	if err != nil {
		return service.User{}, err
	}
	return acct.user, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, token string) ([]service.Task, error) {
	f.enter("ListTasks")
	if err := f.wait(ctx, HoldList); err != nil {
		return nil, err
	}
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, err := f.authLocked("list", token); err != nil {
		return nil, err
	}
	result := make([]service.Task, len(f.tasks))
	for i, t := range f.tasks {
		result[i] = t.Clone()
	}
	return result, nil
}

// GetTask implements service.Service.
func (f *FakeService) GetTask(ctx context.Context, token, id string) (service.Task, error) {
	f.enter("GetTask")
	if f.GetTaskErr != nil {
		return service.Task{}, f.GetTaskErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, err := f.authLocked("get", token); err != nil {
		return service.Task{}, err
	}
	i := f.indexLocked(id)
	if i < 0 {
		return service.Task{}, notFound("get", id)
	}
	return f.tasks[i].Clone(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, token string, draft service.Draft) (service.Task, error) {
	f.enter("CreateTask")
	if err := f.wait(ctx, HoldCreate); err != nil {
		return service.Task{}, err
	}
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.authLocked("create", token); err != nil {
		return service.Task{}, err
	}
	if strings.TrimSpace(draft.Title) == "" {
		return service.Task{}, &service.Error{Op: "create", Kind: service.KindValidation, Status: http.StatusBadRequest, Message: "todoTitle is required"}
	}
	f.nextID++
	task := service.Task{
		ID:          fmt.Sprintf("%d", f.nextID),
		Title:       f.normalize(draft.Title),
		Description: draft.Description,
	}
	if draft.DueDate != nil {
		d := *draft.DueDate
		task.DueDate = &d
	}
	f.tasks = append(f.tasks, task)
	return task.Clone(), nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, token, id string, update service.Update) (service.Task, error) {
	f.enter("UpdateTask")
	if err := f.wait(ctx, id); err != nil {
		return service.Task{}, err
	}
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.authLocked("update", token); err != nil {
		return service.Task{}, err
	}
	i := f.indexLocked(id)
	if i < 0 {
		return service.Task{}, notFound("update", id)
	}
	t := &f.tasks[i]
	if update.Title != nil {
		t.Title = f.normalize(*update.Title)
	}
	if update.Description != nil {
		t.Description = *update.Description
	}
	switch {
	case update.ClearDueDate:
		t.DueDate = nil
	case update.DueDate != nil:
		d := *update.DueDate
		t.DueDate = &d
	}
	if update.Completed != nil {
		t.Completed = *update.Completed
	}
	return t.Clone(), nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, token, id string) error {
	f.enter("DeleteTask")
	if err := f.wait(ctx, id); err != nil {
		return err
	}
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.authLocked("delete", token); err != nil {
		return err
	}
	i := f.indexLocked(id)
	if i < 0 {
		return notFound("delete", id)
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}
