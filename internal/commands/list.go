package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todd/internal/client"
	"todd/internal/exitcode"
	"todd/internal/output"
	"todd/internal/service"
	"todd/internal/views"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `todd` (no args) and `todd list`.
type ListCmd struct {
	pendingOnly   bool
	completedOnly bool
	format        string
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "todd list [--pending | --completed] [--output text|json|yaml]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.pendingOnly, "pending", false, "")
	fs.BoolVar(&c.completedOnly, "completed", false, "")
	fs.StringVar(&c.format, "output", "text", "")
	fs.StringVar(&c.format, "o", "text", "")
}

func (c *ListCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.pendingOnly && c.completedOnly {
		fmt.Fprintln(errOut, "error: cannot use both --pending and --completed")
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

	now := cl.Now()
	summary := views.Summarize(tasks, now)
	ordered := DisplayOrder(tasks)

	if format != output.FormatText {
		report := output.ListReport{Headline: views.Headline(summary), Summary: summary, Tasks: []output.TaskRecord{}}
		for i, t := range ordered {
			if c.include(t) {
				report.Tasks = append(report.Tasks, output.NewTaskRecord(i+1, t, now))
			}
		}
		if err := output.Encode(out, format, report); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
		return exitcode.Success
	}

	if !cl.Config.Quiet {
		fmt.Fprintln(out, views.Headline(summary))
	}
	maxLen := cl.Config.Settings.DescriptionMaxLen
	headerShown := false
	for i, t := range ordered {
		if !c.include(t) {
			continue
		}
		// Completed tasks get their own section unless they are all that is shown.
		if t.Completed && !c.completedOnly && !headerShown {
			output.FormatSectionHeader(out, "Completed")
			headerShown = true
		}
		output.FormatTask(out, output.TaskLine{Num: i + 1, Task: t, Now: now, MaxLen: maxLen})
	}
	return exitcode.Success
}

func (c *ListCmd) include(t service.Task) bool {
	switch {
	case c.pendingOnly:
		return !t.Completed
	case c.completedOnly:
		return t.Completed
	default:
		return true
	}
}
