package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"todd/internal/client"
	"todd/internal/exitcode"
	"todd/internal/service"
)

// PasswordEnv is read when --password is not given.
const PasswordEnv = "TODD_PASSWORD"

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in" }
func (c *LoginCmd) Usage() string     { return "todd login --email <email> [--password <password>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	password := passwordFrom(c.password)
	if c.email == "" || password == "" {
		fmt.Fprintf(errOut, "error: email and password required (use --email and --password or %s)\n", PasswordEnv)
		return exitcode.UserError
	}

	if err := cl.Config.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	sess, err := cl.Session.Login(ctx, service.Credentials{Email: c.email, Password: password})
	if err != nil {
		return Report(errOut, err)
	}

	if !cl.Config.Quiet {
		if sess.User != nil {
			fmt.Fprintf(out, "ok, logged in as %s\n", sess.User.Username)
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}

func passwordFrom(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(PasswordEnv)
}
