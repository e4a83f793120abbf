// Package mutation coordinates every change to the task collection.
//
// The Coordinator is the only writer of the task cache. It submits one change
// per call to the backend with the current session token, and applies the
// confirmed result to the cache. Nothing is written to the cache before the
// backend confirms, so a failed call leaves the cache at its last confirmed
// state.
package mutation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"todd/internal/logging"
	"todd/internal/service"
	"todd/internal/taskcache"
)

// Session supplies the credential for each mutation.
type Session interface {
	// Token returns the current token and the session version it belongs to.
	Token() (string, uint64, error)

	// Version returns the current session version.
	Version() uint64
}

// View is where the interface should go after a mutation.
type View int

const (
	// ViewList is the task list.
	ViewList View = iota

	// ViewEdit is the edit view of the task being changed.
	ViewEdit
)

func (v View) String() string {
	if v == ViewEdit {
		return "edit"
	}
	return "list"
}

// Result is the outcome of an edit or delete.
type Result struct {
	Task service.Task
	Next View
}

// flight is a mutation between submission and completion.
type flight struct {
	id      string // mutation id, for logs
	op      Op
	taskID  string
	draft   *service.Draft
	token   string
	version uint64 // session version when the mutation started
}

// Coordinator executes mutations and reconciles the cache.
type Coordinator struct {
	svc    service.Service
	sess   Session
	cache  *taskcache.Cache
	logger *slog.Logger
	bus    bus

	mu        sync.Mutex
	inflight  map[string]Op
	drafts    map[*service.Draft]struct{}
	pending   map[string]bool
	reloading bool
}

// New creates a coordinator writing to cache.
func New(svc service.Service, sess Session, cache *taskcache.Cache, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coordinator{
		svc:      svc,
		sess:     sess,
		cache:    cache,
		logger:   logger,
		inflight: make(map[string]Op),
		drafts:   make(map[*service.Draft]struct{}),
		pending:  make(map[string]bool),
	}
}

// Subscribe returns a channel that receives an Event after every completed
// mutation, reload and invalidation, and a function that ends the subscription.
func (c *Coordinator) Subscribe(buffer int) (<-chan Event, func()) {
	return c.bus.subscribe(buffer)
}

// Reload fetches every task and replaces the cache contents.
// It is rejected while any mutation is in flight.
func (c *Coordinator) Reload(ctx context.Context) error {
	const op = "reload"
	c.mu.Lock()
	if c.reloading || len(c.inflight) > 0 || len(c.drafts) > 0 {
		c.mu.Unlock()
		return service.Busy(op, "mutations in flight")
	}
	token, version, err := c.sess.Token()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.reloading = true
	c.mu.Unlock()

	tasks, err := c.svc.ListTasks(ctx, token)

	c.mu.Lock()
	c.reloading = false
	discarded := c.sess.Version() != version
	if err == nil && !discarded {
		c.cache.ReplaceAll(tasks)
	}
	cacheVersion := c.cache.Version()
	c.mu.Unlock()

	if err != nil {
		err = service.AsError(op, err)
	} else if discarded {
		err = service.ErrSessionChanged
	}
	c.publish(Event{Op: OpReload, CacheVersion: cacheVersion, Err: err, Discarded: discarded})
	return err
}

// Create submits draft. On success the created task is added to the cache
// and the draft is reset. On failure the cache and the draft are untouched.
// A second Create of the same draft while the first is in flight is rejected.
func (c *Coordinator) Create(ctx context.Context, draft *service.Draft) (service.Task, error) {
	if err := draft.Validate(); err != nil {
		return service.Task{}, err
	}
	f, err := c.begin(OpCreate, "", draft)
	if err != nil {
		return service.Task{}, err
	}

	task, err := c.svc.CreateTask(ctx, f.token, *draft)
	if err != nil {
		err = service.AsError("create", err)
		c.finish(f, nil, err)
		return service.Task{}, err
	}

	f.taskID = task.ID
	if c.finish(f, func() { c.cache.Upsert(task) }, nil) {
		return service.Task{}, service.ErrSessionChanged
	}
	draft.Reset()
	return task, nil
}

// Toggle inverts the completed flag of the cached task with the given ID.
//
// While the request is in flight the new flag is visible through Pending,
// not through the cache. The cache changes only when the backend confirms;
// on failure the pending flag is dropped and the task reverts on the next
// render.
func (c *Coordinator) Toggle(ctx context.Context, id string) (service.Task, error) {
	const op = "toggle"
	f, err := c.begin(OpToggle, id, nil)
	if err != nil {
		return service.Task{}, err
	}

	c.mu.Lock()
	current, ok := c.cache.Get(id)
	if ok {
		c.pending[id] = !current.Completed
	}
	c.mu.Unlock()
	if !ok {
		c.abort(f)
		return service.Task{}, service.Conflict(op, "task not found: "+id)
	}

	task, err := c.svc.UpdateTask(ctx, f.token, id, service.CompletionUpdate(!current.Completed))
	if err != nil {
		err = service.AsError(op, err)
		c.finish(f, c.removeOnConflict(id, err), err)
		return service.Task{}, err
	}

	if c.finish(f, func() { c.cache.Upsert(task) }, nil) {
		return service.Task{}, service.ErrSessionChanged
	}
	return task, nil
}

// Edit submits the full field set of the task with the given ID.
// On success the returned task, with the backend's normalized fields,
// replaces the cached one and Next is ViewList. On failure Next is ViewEdit,
// unless the task no longer exists.
func (c *Coordinator) Edit(ctx context.Context, id string, edit service.Edit) (Result, error) {
	if err := edit.Validate(); err != nil {
		return Result{Next: ViewEdit}, err
	}
	f, err := c.begin(OpEdit, id, nil)
	if err != nil {
		return Result{Next: ViewEdit}, err
	}

	task, err := c.svc.UpdateTask(ctx, f.token, id, service.EditUpdate(edit))
	if err != nil {
		err = service.AsError("edit", err)
		c.finish(f, c.removeOnConflict(id, err), err)
		if service.KindOf(err) == service.KindConflict {
			return Result{Next: ViewList}, err
		}
		return Result{Next: ViewEdit}, err
	}

	if c.finish(f, func() { c.cache.Upsert(task) }, nil) {
		return Result{Next: ViewList}, service.ErrSessionChanged
	}
	return Result{Task: task, Next: ViewList}, nil
}

// Delete deletes the task with the given ID. Next is ViewList whether or not
// the delete succeeds; failures are still reported.
func (c *Coordinator) Delete(ctx context.Context, id string) (Result, error) {
	f, err := c.begin(OpDelete, id, nil)
	if err != nil {
		return Result{Next: ViewList}, err
	}

	if err := c.svc.DeleteTask(ctx, f.token, id); err != nil {
		err = service.AsError("delete", err)
		c.finish(f, c.removeOnConflict(id, err), err)
		return Result{Next: ViewList}, err
	}

	if c.finish(f, func() { c.cache.Remove(id) }, nil) {
		return Result{Next: ViewList}, service.ErrSessionChanged
	}
	return Result{Next: ViewList}, nil
}

// Refresh fetches the task with the given ID and stores the backend's copy in
// the cache. A task the backend no longer has is dropped from the cache.
func (c *Coordinator) Refresh(ctx context.Context, id string) (service.Task, error) {
	const op = "refresh"
	f, err := c.begin(OpRefresh, id, nil)
	if err != nil {
		return service.Task{}, err
	}

	task, err := c.svc.GetTask(ctx, f.token, id)
	if err != nil {
		err = service.AsError(op, err)
		c.finish(f, c.removeOnConflict(id, err), err)
		return service.Task{}, err
	}

	if c.finish(f, func() { c.cache.Upsert(task) }, nil) {
		return service.Task{}, service.ErrSessionChanged
	}
	return task, nil
}

// SessionEnded clears the cache and any pending visual state.
// It is registered as a session change listener. Holding the coordinator
// lock orders it against completions: a result that checked the session
// version before the change is applied before the cache is cleared, and one
// that checks after is discarded.
func (c *Coordinator) SessionEnded() {
	c.mu.Lock()
	c.cache.Invalidate()
	c.pending = make(map[string]bool)
	cacheVersion := c.cache.Version()
	c.mu.Unlock()

	c.logger.Debug("cache invalidated", slog.Uint64("cache_version", cacheVersion))
	c.publish(Event{Op: OpInvalidate, CacheVersion: cacheVersion})
}

// Pending returns the completed flags requested by toggles still in flight.
func (c *Coordinator) Pending() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]bool, len(c.pending))
	for id, completed := range c.pending {
		result[id] = completed
	}
	return result
}

// InFlight reports whether a mutation for the task with the given ID is in flight.
func (c *Coordinator) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

// Cache returns the cache the coordinator writes to.
func (c *Coordinator) Cache() *taskcache.Cache {
	return c.cache
}

// begin reserves the mutation's target and captures the session token and version.
func (c *Coordinator) begin(op Op, taskID string, draft *service.Draft) (*flight, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reloading {
		return nil, service.Busy(op.String(), "reload in progress")
	}
	if taskID != "" {
		if _, busy := c.inflight[taskID]; busy {
			return nil, service.Busy(op.String(), "task is busy: "+taskID)
		}
	}
	if draft != nil {
		if _, busy := c.drafts[draft]; busy {
			return nil, service.Busy(op.String(), "already submitting")
		}
	}

	token, version, err := c.sess.Token()
	if err != nil {
		return nil, err
	}

	f := &flight{
		id:      uuid.New().String(),
		op:      op,
		taskID:  taskID,
		draft:   draft,
		token:   token,
		version: version,
	}
	if taskID != "" {
		c.inflight[taskID] = op
	}
	if draft != nil {
		c.drafts[draft] = struct{}{}
	}
	c.logger.Debug("mutation started",
		slog.String("mutation_id", f.id),
		slog.String("op", op.String()),
		slog.String("task_id", taskID),
		slog.Uint64("session_version", version),
	)
	return f, nil
}

// release drops the reservation. Callers hold c.mu.
func (c *Coordinator) release(f *flight) {
	if f.draft != nil {
		delete(c.drafts, f.draft)
	}
	if id := reservedID(f); id != "" {
		delete(c.inflight, id)
		delete(c.pending, id)
	}
}

// reservedID is the ID begin reserved. Creates learn their task ID only on
// completion and never reserve one.
func reservedID(f *flight) string {
	if f.op == OpCreate {
		return ""
	}
	return f.taskID
}

// abort releases a mutation that was never submitted.
func (c *Coordinator) abort(f *flight) {
	c.mu.Lock()
	c.release(f)
	c.mu.Unlock()
}

// finish releases the reservation and runs apply unless the session changed
// since the mutation started. It reports whether the result was discarded.
func (c *Coordinator) finish(f *flight, apply func(), err error) bool {
	c.mu.Lock()
	c.release(f)
	discarded := c.sess.Version() != f.version
	if !discarded && apply != nil {
		apply()
	}
	cacheVersion := c.cache.Version()
	c.mu.Unlock()

	attrs := []any{
		slog.String("mutation_id", f.id),
		slog.String("op", f.op.String()),
		slog.String("task_id", f.taskID),
		slog.Uint64("cache_version", cacheVersion),
	}
	switch {
	case discarded:
		c.logger.Info("mutation result discarded: session changed", attrs...)
	case err != nil:
		c.logger.Debug("mutation failed", append(attrs, logging.Err(err))...)
	default:
		c.logger.Debug("mutation confirmed", attrs...)
	}

	if discarded && err == nil {
		err = service.ErrSessionChanged
	}
	c.publish(Event{Op: f.op, TaskID: f.taskID, CacheVersion: cacheVersion, Err: err, Discarded: discarded})
	return discarded
}

// removeOnConflict returns a cache effect that drops id if err says the task
// no longer exists on the backend.
func (c *Coordinator) removeOnConflict(id string, err error) func() {
	if service.KindOf(err) != service.KindConflict {
		return nil
	}
	return func() { c.cache.Remove(id) }
}

func (c *Coordinator) publish(ev Event) {
	c.bus.publish(ev)
}
