package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todd/internal/client"
	"todd/internal/exitcode"
	"todd/internal/output"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct {
	format string
}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string     { return "todd whoami [--output text|json|yaml]" }
func (c *WhoamiCmd) NeedsAuth() bool   { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "output", "text", "")
	fs.StringVar(&c.format, "o", "text", "")
}

func (c *WhoamiCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	format, err := output.ParseFormat(c.format)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	user, err := cl.Session.FetchProfile(ctx)
	if err != nil {
		return Report(errOut, err)
	}

	if format != output.FormatText {
		if err := output.Encode(out, format, user); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
		return exitcode.Success
	}
	fmt.Fprintf(out, "%s <%s>\n", user.Username, user.Email)
	if exp := cl.Session.Snapshot().ExpiresAt; !exp.IsZero() && !cl.Config.Quiet {
		fmt.Fprintf(out, "session expires %s\n", exp.Local().Format("Jan 2, 2006 15:04"))
	}
	return exitcode.Success
}
