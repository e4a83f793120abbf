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
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
// Unset fields keep the cached task's current values.
type EditCmd struct {
	title optString
	desc  optString
	due   optString
	noDue bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title, description or due date" }
func (c *EditCmd) Usage() string {
	return "todd edit [--title <text>] [--desc <text>] [--due <YYYY-MM-DD> | --no-due] <ref>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.desc, "desc", "")
	fs.Var(&c.due, "due", "")
	fs.BoolVar(&c.noDue, "no-due", false, "")
}

func (c *EditCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		if len(args) == 0 {
			fmt.Fprintln(errOut, "error: task reference required")
		} else {
			fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		}
		return exitcode.UserError
	}
	ref, err := ParseTaskRef(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if c.due.set && c.noDue {
		fmt.Fprintln(errOut, "error: cannot use both --due and --no-due")
		return exitcode.UserError
	}
	if !c.title.set && !c.desc.set && !c.due.set && !c.noDue {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	tasks, err := cl.Load(ctx)
	if err != nil {
		return Report(errOut, err)
	}
	task, err := Resolve(tasks, ref)
	if err != nil {
		return Report(errOut, err)
	}

	edit := service.Edit{Title: task.Title, Description: task.Description, DueDate: task.DueDate}
	if c.title.set {
		edit.Title = c.title.value
	}
	if c.desc.set {
		edit.Description = c.desc.value
	}
	switch {
	case c.noDue:
		edit.DueDate = nil
	case c.due.set:
		due, err := parseDue(c.due.value)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		edit.DueDate = due
	}

	if _, err := cl.Mutations.Edit(ctx, task.ID, edit); err != nil {
		return Report(errOut, err)
	}
	if !cl.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
