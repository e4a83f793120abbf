package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todd/internal/client"
	"todd/internal/exitcode"
	"todd/internal/service"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command. It does not log in.
type RegisterCmd struct {
	username string
	email    string
	password string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "todd register --username <name> --email <email> [--password <password>]"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.username, "username", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	user, err := cl.Session.Register(ctx, service.Registration{
		Username: c.username,
		Email:    c.email,
		Password: passwordFrom(c.password),
	})
	if err != nil {
		return Report(errOut, err)
	}

	if !cl.Config.Quiet {
		fmt.Fprintf(out, "ok, registered %s (run: todd login --email %s)\n", user.Username, c.email)
	}
	return exitcode.Success
}
