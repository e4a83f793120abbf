package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"todd/internal/client"
	"todd/internal/exitcode"
	"todd/internal/logging"
	"todd/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	desc  string
	due   string
	retry bool
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "todd add [--desc <text>] [--due <YYYY-MM-DD>] <title...> | todd add --retry"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.desc, "d", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.BoolVar(&c.retry, "retry", false, "")
}

func (c *AddCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	draftPath := cl.Config.DraftPath()

	var draft *service.Draft
	if c.retry {
		if len(args) > 0 || c.desc != "" || c.due != "" {
			fmt.Fprintln(errOut, "error: --retry takes no title or fields")
			return exitcode.UserError
		}
		d, err := loadDraft(draftPath)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		draft = d
	} else {
		draft = &service.Draft{
			Title:       strings.Join(args, " "),
			Description: c.desc,
		}
		if c.due != "" {
			due, err := parseDue(c.due)
			if err != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
				return exitcode.UserError
			}
			draft.DueDate = due
		}
	}

	if strings.TrimSpace(draft.Title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	task, err := cl.Mutations.Create(ctx, draft)
	if err != nil {
		code := Report(errOut, err)
		if service.KindOf(err) != service.KindAuth {
			if err := cl.Config.EnsureDir(); err == nil {
				if err := saveDraft(draftPath, draft); err == nil {
					fmt.Fprintln(errOut, "draft saved (retry with: todd add --retry)")
				}
			}
		}
		return code
	}

	if err := clearDraft(draftPath); err != nil {
		cl.Logger.Warn("failed to remove saved draft", slog.String("path", draftPath), logging.Err(err))
	}
	if !cl.Config.Quiet {
		fmt.Fprintf(out, "ok %s\n", task.ID)
	}
	return exitcode.Success
}
