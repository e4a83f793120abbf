package mutation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"todd/internal/mutation"
	"todd/internal/service"
	"todd/internal/session"
	"todd/internal/taskcache"
	"todd/internal/testutil"
	"todd/internal/views"
)

type harness struct {
	svc   *testutil.FakeService
	sess  *session.Store
	cache *taskcache.Cache
	coord *mutation.Coordinator
}

func newHarness(t *testing.T, tasks ...service.Task) *harness {
	t.Helper()
	svc := testutil.NewFakeService()
	for _, task := range tasks {
		svc.AddTask(task)
	}
	sess := session.New(svc, nil, session.Options{})
	if _, err := sess.Login(context.Background(), service.Credentials{Email: testutil.DefaultEmail, Password: testutil.DefaultPassword}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cache := taskcache.New()
	coord := mutation.New(svc, sess, cache, nil)
	sess.OnChange(coord.SessionEnded)
	return &harness{svc: svc, sess: sess, cache: cache, coord: coord}
}

func (h *harness) reload(t *testing.T) {
	t.Helper()
	if err := h.coord.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
}

func TestCreate_AddsConfirmedTask(t *testing.T) {
	h := newHarness(t)
	draft := &service.Draft{Title: "Buy milk"}

	task, err := h.coord.Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.ID != "1" || task.Title != "Buy milk" || task.Completed {
		t.Errorf("unexpected task %+v", task)
	}

	snap := h.cache.Snapshot()
	if len(snap) != 1 || snap[0].ID != "1" || snap[0].Title != "Buy milk" {
		t.Errorf("expected cache [{1 Buy milk}], got %+v", snap)
	}
	if !draft.IsEmpty() {
		t.Errorf("draft should be reset after success, got %+v", draft)
	}
}

func TestCreate_FailureKeepsDraftAndCache(t *testing.T) {
	h := newHarness(t)
	h.svc.CreateTaskErr = service.Transport("create", errors.New("connection reset"))
	draft := &service.Draft{Title: "Buy milk", Description: "2 litres"}

	_, err := h.coord.Create(context.Background(), draft)
	if service.KindOf(err) != service.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if draft.Title != "Buy milk" || draft.Description != "2 litres" {
		t.Errorf("draft should be kept for retry, got %+v", draft)
	}
	if h.cache.Len() != 0 {
		t.Errorf("cache should be unchanged, got %+v", h.cache.Snapshot())
	}
}

func TestCreate_EmptyTitleIsNotSubmitted(t *testing.T) {
	h := newHarness(t)

	_, err := h.coord.Create(context.Background(), &service.Draft{Title: "   "})
	if !errors.Is(err, service.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if h.svc.Calls("CreateTask") != 0 {
		t.Error("empty draft should not reach the backend")
	}
}

func TestCreate_SameDraftTwiceIsBusy(t *testing.T) {
	h := newHarness(t)
	started, release := h.svc.Hold(testutil.HoldCreate)
	draft := &service.Draft{Title: "Buy milk"}

	done := make(chan error, 1)
	go func() {
		_, err := h.coord.Create(context.Background(), draft)
		done <- err
	}()
	<-started

	if _, err := h.coord.Create(context.Background(), draft); !errors.Is(err, service.ErrBusy) {
		t.Errorf("expected busy error, got %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := h.svc.Calls("CreateTask"); got != 1 {
		t.Errorf("expected 1 submission, got %d", got)
	}
}

func TestToggle_ConfirmedFlagReplacesCachedTask(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "Buy milk"})
	h.reload(t)

	task, err := h.coord.Toggle(context.Background(), "1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !task.Completed {
		t.Error("expected task to be completed")
	}

	pending, completed := views.Partition(h.cache.Snapshot())
	if len(pending) != 0 || len(completed) != 1 {
		t.Errorf("expected 0 pending and 1 completed, got %d and %d", len(pending), len(completed))
	}
}

func TestToggle_ReverseArrivalOrder(t *testing.T) {
	h := newHarness(t,
		service.Task{ID: "1", Title: "one"},
		service.Task{ID: "2", Title: "two", Completed: true},
	)
	h.reload(t)

	started1, release1 := h.svc.Hold("1")
	started2, release2 := h.svc.Hold("2")

	done1 := make(chan error, 1)
	done2 := make(chan error, 1)
	go func() {
		_, err := h.coord.Toggle(context.Background(), "1")
		done1 <- err
	}()
	go func() {
		_, err := h.coord.Toggle(context.Background(), "2")
		done2 <- err
	}()
	<-started1
	<-started2

	pending := h.coord.Pending()
	if pending["1"] != true || pending["2"] != false || len(pending) != 2 {
		t.Errorf("expected pending flags {1:true 2:false}, got %v", pending)
	}
	if got, _ := h.cache.Get("1"); got.Completed {
		t.Error("cache must not change before confirmation")
	}

	release2()
	if err := <-done2; err != nil {
		t.Fatalf("Toggle 2: %v", err)
	}
	release1()
	if err := <-done1; err != nil {
		t.Fatalf("Toggle 1: %v", err)
	}

	one, _ := h.cache.Get("1")
	two, _ := h.cache.Get("2")
	if !one.Completed || two.Completed {
		t.Errorf("expected 1 completed and 2 pending, got %+v and %+v", one, two)
	}
	if len(h.coord.Pending()) != 0 {
		t.Errorf("pending flags should be cleared, got %v", h.coord.Pending())
	}
}

func TestToggle_FailureRevertsPendingFlag(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	h.svc.UpdateTaskErr = service.Transport("update", errors.New("connection refused"))

	if _, err := h.coord.Toggle(context.Background(), "1"); service.KindOf(err) != service.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}

	got, _ := h.cache.Get("1")
	if got.Completed {
		t.Error("failed toggle must not change the cache")
	}
	merged := views.WithPending(h.cache.Snapshot(), h.coord.Pending())
	if merged[0].Completed {
		t.Error("failed toggle should revert the displayed flag")
	}
}

func TestToggle_SameTaskTwiceIsBusy(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	started, release := h.svc.Hold("1")

	done := make(chan error, 1)
	go func() {
		_, err := h.coord.Toggle(context.Background(), "1")
		done <- err
	}()
	<-started

	if !h.coord.InFlight("1") {
		t.Error("expected task 1 to be in flight")
	}
	if _, err := h.coord.Toggle(context.Background(), "1"); !errors.Is(err, service.ErrBusy) {
		t.Errorf("expected busy error, got %v", err)
	}
	if _, err := h.coord.Delete(context.Background(), "1"); !errors.Is(err, service.ErrBusy) {
		t.Errorf("expected busy error for delete, got %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if h.coord.InFlight("1") {
		t.Error("task 1 should be released")
	}
}

func TestToggle_UncachedTask(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})

	_, err := h.coord.Toggle(context.Background(), "1")
	if !errors.Is(err, service.ErrConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}
	if h.coord.InFlight("1") {
		t.Error("reservation should be released")
	}
}

func TestEdit_UsesNormalizedFields(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "old"})
	h.reload(t)
	h.svc.NormalizeTitle = func(s string) string { return "Normalized " + s }

	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	res, err := h.coord.Edit(context.Background(), "1", service.Edit{Title: "new", Description: "d", DueDate: &due})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if res.Next != mutation.ViewList {
		t.Errorf("expected list view, got %v", res.Next)
	}

	got, _ := h.cache.Get("1")
	if got.Title != "Normalized new" || got.Description != "d" || got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("cache should hold the backend's version, got %+v", got)
	}
}

func TestEdit_FailureStaysOnEditView(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "old"})
	h.reload(t)
	h.svc.UpdateTaskErr = &service.Error{Op: "update", Kind: service.KindValidation, Status: 400, Message: "bad date"}

	res, err := h.coord.Edit(context.Background(), "1", service.Edit{Title: "new"})
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if res.Next != mutation.ViewEdit {
		t.Errorf("expected edit view, got %v", res.Next)
	}
	if got, _ := h.cache.Get("1"); got.Title != "old" {
		t.Errorf("cache should be unchanged, got %+v", got)
	}
}

func TestEdit_ConflictRemovesTask(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"}, service.Task{ID: "2", Title: "two"})
	h.reload(t)
	h.svc.RemoveTask("1")

	res, err := h.coord.Edit(context.Background(), "1", service.Edit{Title: "new"})
	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if res.Next != mutation.ViewList {
		t.Errorf("expected list view, got %v", res.Next)
	}
	if _, ok := h.cache.Get("1"); ok {
		t.Error("task deleted elsewhere should be dropped from the cache")
	}
	if h.cache.Len() != 1 {
		t.Errorf("other tasks should stay, got %+v", h.cache.Snapshot())
	}
}

func TestEdit_LogoutWhileInFlight(t *testing.T) {
	h := newHarness(t, service.Task{ID: "3", Title: "three"})
	h.reload(t)
	started, release := h.svc.Hold("3")

	done := make(chan error, 1)
	go func() {
		_, err := h.coord.Edit(context.Background(), "3", service.Edit{Title: "renamed"})
		done <- err
	}()
	<-started

	if err := h.sess.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if h.cache.Len() != 0 {
		t.Fatalf("logout should clear the cache, got %+v", h.cache.Snapshot())
	}

	release()
	if err := <-done; !errors.Is(err, service.ErrSessionChanged) {
		t.Errorf("expected ErrSessionChanged, got %v", err)
	}
	if h.cache.Len() != 0 {
		t.Errorf("stale result repopulated the cache: %+v", h.cache.Snapshot())
	}
}

func TestDelete_RemovesTask(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"}, service.Task{ID: "2", Title: "two"})
	h.reload(t)

	res, err := h.coord.Delete(context.Background(), "1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Next != mutation.ViewList {
		t.Errorf("expected list view, got %v", res.Next)
	}
	snap := h.cache.Snapshot()
	if len(snap) != 1 || snap[0].ID != "2" {
		t.Errorf("expected only task 2, got %+v", snap)
	}
}

func TestDelete_FailureKeepsTask(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	h.svc.DeleteTaskErr = service.Transport("delete", errors.New("connection refused"))

	res, err := h.coord.Delete(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Next != mutation.ViewList {
		t.Errorf("expected list view even on failure, got %v", res.Next)
	}
	if _, ok := h.cache.Get("1"); !ok {
		t.Error("failed delete must keep the task")
	}
}

func TestDelete_ConflictRemovesTask(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"}, service.Task{ID: "2", Title: "two"})
	h.reload(t)
	h.svc.RemoveTask("1")

	res, err := h.coord.Delete(context.Background(), "1")
	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if res.Next != mutation.ViewList {
		t.Errorf("expected list view, got %v", res.Next)
	}
	if _, ok := h.cache.Get("1"); ok {
		t.Error("task deleted elsewhere should be dropped from the cache")
	}
	if _, ok := h.cache.Get("2"); !ok {
		t.Error("other tasks should stay")
	}
}

func TestToggle_ConflictRemovesTask(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"}, service.Task{ID: "2", Title: "two"})
	h.reload(t)
	h.svc.RemoveTask("2")

	if _, err := h.coord.Toggle(context.Background(), "2"); !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if _, ok := h.cache.Get("2"); ok {
		t.Error("task deleted elsewhere should be dropped from the cache")
	}
	if len(h.coord.Pending()) != 0 {
		t.Errorf("pending flag should be dropped, got %v", h.coord.Pending())
	}
	if h.cache.Len() != 1 {
		t.Errorf("other tasks should stay, got %+v", h.cache.Snapshot())
	}
}

func TestRefresh_StoresBackendCopy(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	h.svc.RemoveTask("1")
	h.svc.AddTask(service.Task{ID: "1", Title: "renamed elsewhere", Completed: true})

	task, err := h.coord.Refresh(context.Background(), "1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got, _ := h.cache.Get("1")
	if !got.Equal(task) || got.Title != "renamed elsewhere" || !got.Completed {
		t.Errorf("cache should hold the fetched task, got %+v want %+v", got, task)
	}
}

func TestRefresh_ConflictRemovesTask(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	h.svc.RemoveTask("1")

	if _, err := h.coord.Refresh(context.Background(), "1"); !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if h.cache.Len() != 0 {
		t.Errorf("missing task should be dropped, got %+v", h.cache.Snapshot())
	}
	if h.coord.InFlight("1") {
		t.Error("reservation should be released")
	}
}

func TestMutation_WithoutSession(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	if err := h.sess.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := h.coord.Create(context.Background(), &service.Draft{Title: "x"}); !errors.Is(err, service.ErrAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if _, err := h.coord.Delete(context.Background(), "1"); !errors.Is(err, service.ErrAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if h.svc.Calls("CreateTask")+h.svc.Calls("DeleteTask") != 0 {
		t.Error("nothing should reach the backend without a session")
	}
}

func TestMutation_RevokedTokenIsAuthError(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	h.svc.RevokeAll()

	_, err := h.coord.Toggle(context.Background(), "1")
	if !errors.Is(err, service.ErrAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if _, ok := h.cache.Get("1"); !ok {
		t.Error("auth failure must not change the cache")
	}
}

func TestReload_ReplacesCache(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	h.svc.AddTask(service.Task{ID: "2", Title: "two"})
	h.svc.RemoveTask("1")

	h.reload(t)

	snap := h.cache.Snapshot()
	if len(snap) != 1 || snap[0].ID != "2" {
		t.Errorf("expected only task 2, got %+v", snap)
	}
}

func TestReload_BusyWhileMutating(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	started, release := h.svc.Hold("1")

	done := make(chan error, 1)
	go func() {
		_, err := h.coord.Toggle(context.Background(), "1")
		done <- err
	}()
	<-started

	if err := h.coord.Reload(context.Background()); !errors.Is(err, service.ErrBusy) {
		t.Errorf("expected busy error, got %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	h.reload(t)
}

func TestReload_MutationsBusyWhileReloading(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	started, release := h.svc.Hold(testutil.HoldList)

	done := make(chan error, 1)
	go func() { done <- h.coord.Reload(context.Background()) }()
	<-started

	if _, err := h.coord.Create(context.Background(), &service.Draft{Title: "x"}); !errors.Is(err, service.ErrBusy) {
		t.Errorf("expected busy error, got %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("Reload: %v", err)
	}
}

func TestReload_FailureKeepsCache(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	h.reload(t)
	h.svc.ListTasksErr = service.Transport("list", errors.New("connection refused"))

	if err := h.coord.Reload(context.Background()); service.KindOf(err) != service.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if h.cache.Len() != 1 {
		t.Errorf("failed reload must keep the last confirmed state, got %+v", h.cache.Snapshot())
	}
}

func TestSubscribe_EventsAfterCompletion(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one"})
	events, cancel := h.coord.Subscribe(8)
	defer cancel()

	h.reload(t)
	if _, err := h.coord.Toggle(context.Background(), "1"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	h.svc.DeleteTaskErr = service.Transport("delete", errors.New("boom"))
	_, _ = h.coord.Delete(context.Background(), "1")

	want := []struct {
		op     mutation.Op
		failed bool
	}{
		{mutation.OpReload, false},
		{mutation.OpToggle, false},
		{mutation.OpDelete, true},
	}
	for _, w := range want {
		ev := <-events
		if ev.Op != w.op || (ev.Err != nil) != w.failed {
			t.Errorf("expected %v (failed=%v), got %+v", w.op, w.failed, ev)
		}
	}

	if err := h.sess.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if ev := <-events; ev.Op != mutation.OpInvalidate || ev.CacheVersion != h.cache.Version() {
		t.Errorf("expected invalidate event, got %+v", ev)
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	h := newHarness(t)
	events, cancel := h.coord.Subscribe(1)
	cancel()
	cancel()

	if _, ok := <-events; ok {
		t.Error("expected closed channel")
	}
	h.reload(t)
}

func TestCompletedFlagIsOptional(t *testing.T) {
	h := newHarness(t, service.Task{ID: "1", Title: "one", Completed: true})
	h.reload(t)

	if _, err := h.coord.Edit(context.Background(), "1", service.Edit{Title: "renamed"}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	got, _ := h.cache.Get("1")
	if !got.Completed {
		t.Error("edit should not touch the completed flag")
	}
}
