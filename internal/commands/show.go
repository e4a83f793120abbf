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
	Register(&ShowCmd{})
}

// ShowCmd implements the show command.
// It reads the task from the cache filled by the list request; --fresh
// fetches the single task from the backend and updates the cache with it.
type ShowCmd struct {
	fresh  bool
	format string
}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show a task in full" }
func (c *ShowCmd) Usage() string     { return "todd show [--fresh] [--output text|json|yaml] <ref>" }
func (c *ShowCmd) NeedsAuth() bool   { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.fresh, "fresh", false, "")
	fs.StringVar(&c.format, "output", "text", "")
	fs.StringVar(&c.format, "o", "text", "")
}

func (c *ShowCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}
	refs, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	format, err := output.ParseFormat(c.format)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	tasks, err := cl.Load(ctx)
	if err != nil {
		return Report(errOut, err)
	}
	task, err := Resolve(tasks, refs[0])
	if err != nil {
		return Report(errOut, err)
	}
	num := 0
	for i, t := range DisplayOrder(tasks) {
		if t.ID == task.ID {
			num = i + 1
			break
		}
	}

	if c.fresh {
		task, err = cl.Mutations.Refresh(ctx, task.ID)
		if err != nil {
			return Report(errOut, err)
		}
	}

	now := cl.Now()
	if format != output.FormatText {
		if err := output.Encode(out, format, output.NewTaskRecord(num, task, now)); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
		return exitcode.Success
	}
	output.FormatDetail(out, task, now)
	return exitcode.Success
}
