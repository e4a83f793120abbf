package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todd/internal/client"
	"todd/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	// Registry lists the commands. Defaults to DefaultRegistry.
	Registry *Registry
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todd help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }
func (c *HelpCmd) Local()            {}

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)

	registry := c.Registry
	if registry == nil {
		registry = DefaultRegistry
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, cmd := range registry.All() {
		line := fmt.Sprintf("  %-10s %s", cmd.Name(), cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			line += " (alias: " + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
	return exitcode.Success
}

const helpText = `Usage:
  todd                                      List all tasks
  todd list [--pending | --completed] [--output text|json|yaml]
  todd add [--desc <text>] [--due <YYYY-MM-DD>] <title...>
  todd add --retry                          Resubmit the draft of a failed add
  todd done <ref>...                        Toggle tasks between pending and completed
  todd edit [--title <text>] [--desc <text>] [--due <YYYY-MM-DD> | --no-due] <ref>
  todd rm <ref>
  todd show [--fresh] [--output text|json|yaml] <ref>
  todd login --email <email> [--password <password>]
  todd register --username <name> --email <email> [--password <password>]
  todd logout
  todd whoami
  todd help
  todd version

A <ref> is a task number as shown by list, or a task ID.
The password may also be given in TODD_PASSWORD.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
