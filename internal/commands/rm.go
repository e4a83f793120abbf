package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todd/internal/client"
	"todd/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "todd rm <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}
	ref, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	tasks, err := cl.Load(ctx)
	if err != nil {
		return Report(errOut, err)
	}
	task, err := Resolve(tasks, ref[0])
	if err != nil {
		return Report(errOut, err)
	}

	if _, err := cl.Mutations.Delete(ctx, task.ID); err != nil {
		return Report(errOut, err)
	}
	if !cl.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
