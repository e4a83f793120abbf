package commands_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"todd/internal/client"
	"todd/internal/commands"
	"todd/internal/config"
	"todd/internal/exitcode"
	"todd/internal/service"
	"todd/internal/session"
	"todd/internal/testutil"
)

// newLoggedOutClient builds a client whose session is stored in the config dir.
func newLoggedOutClient(t *testing.T, svc *testutil.FakeService) *client.Client {
	t.Helper()
	cfg := &config.Config{Dir: filepath.Join(t.TempDir(), "todd")}
	cl := client.New(cfg, svc, client.Options{Now: func() time.Time { return now }})
	t.Cleanup(cl.Close)
	return cl
}

func TestLoginCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	cl := newLoggedOutClient(t, svc)

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, cl, []string{"--email", testutil.DefaultEmail, "--password", testutil.DefaultPassword})

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "ok, logged in as user\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if !cl.Config.HasSession() {
		t.Error("expected session file to be written")
	}

	// A new process picks the session up from disk.
	next := client.New(cl.Config, svc, client.Options{Now: func() time.Time { return now }})
	defer next.Close()
	if !next.Session.Authenticated() {
		t.Error("expected persisted session to be restored")
	}
}

func TestLoginCommand_PasswordFromEnv(t *testing.T) {
	t.Setenv(commands.PasswordEnv, testutil.DefaultPassword)
	cl := newLoggedOutClient(t, testutil.NewFakeService())

	if _, stderr, code := runCommand(t, &commands.LoginCmd{}, cl, []string{"--email", testutil.DefaultEmail}); code != exitcode.Success {
		t.Fatalf("expected success, got %d: %s", code, stderr)
	}
}

func TestLoginCommand_MissingCredentials(t *testing.T) {
	t.Setenv(commands.PasswordEnv, "")
	svc := testutil.NewFakeService()
	cl := newLoggedOutClient(t, svc)

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, cl, []string{"--email", testutil.DefaultEmail})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr == "" {
		t.Error("expected error message")
	}
	if svc.Calls("Login") != 0 {
		t.Error("incomplete credentials should not be submitted")
	}
}

func TestLoginCommand_BadPassword(t *testing.T) {
	cl := newLoggedOutClient(t, testutil.NewFakeService())

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, cl, []string{"--email", testutil.DefaultEmail, "--password", "wrong"})

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: Invalid email or password\n" {
		t.Errorf("expected server message, got %q", stderr)
	}
	if cl.Session.Authenticated() || cl.Config.HasSession() {
		t.Error("failed login must not create a session")
	}
}

func TestLogoutCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "a", Title: "one"})
	cl := newLoggedOutClient(t, svc)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if _, err := cl.Session.Login(ctx, service.Credentials{Email: testutil.DefaultEmail, Password: testutil.DefaultPassword}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := cl.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, cl, nil)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok', got %q", stdout)
	}
	if cl.Config.HasSession() {
		t.Error("session file should be removed")
	}
	if cl.Cache().Len() != 0 {
		t.Error("logout should clear the task cache")
	}
	if _, ok := cl.Session.CurrentUser(); ok {
		t.Error("logout should clear the user")
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	cl := newLoggedOutClient(t, testutil.NewFakeService())

	stdout, _, code := runCommand(t, &commands.LogoutCmd{}, cl, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "not logged in\n" {
		t.Errorf("expected 'not logged in', got %q", stdout)
	}
}

func TestLogoutCommand_ExpiredSession(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	persister := session.FilePersister{Path: cfg.SessionPath()}
	if err := persister.Save(&oauth2.Token{AccessToken: "old", Expiry: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cl := client.New(cfg, testutil.NewFakeService(), client.Options{Now: func() time.Time { return now }})
	defer cl.Close()

	stdout, _, code := runCommand(t, &commands.LogoutCmd{}, cl, nil)

	if code != exitcode.Success || stdout != "ok\n" {
		t.Errorf("expected expired session to be removed, got %d %q", code, stdout)
	}
	if cfg.HasSession() {
		t.Error("session file should be removed")
	}
}

func TestRegisterCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	cl := newLoggedOutClient(t, svc)

	stdout, stderr, code := runCommand(t, &commands.RegisterCmd{}, cl, []string{"--username", "bob", "--email", "bob@example.com", "--password", "pw"})

	if code != exitcode.Success {
		t.Fatalf("expected success, got %d: %s", code, stderr)
	}
	if stdout != "ok, registered bob (run: todd login --email bob@example.com)\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if cl.Session.Authenticated() {
		t.Error("register should not log in")
	}
}

func TestRegisterCommand_Duplicate(t *testing.T) {
	cl := newLoggedOutClient(t, testutil.NewFakeService())

	_, stderr, code := runCommand(t, &commands.RegisterCmd{}, cl, []string{"--username", "x", "--email", testutil.DefaultEmail, "--password", "pw"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: User already exists\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}
