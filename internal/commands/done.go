package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"

	"todd/internal/client"
	"todd/internal/exitcode"
	"todd/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. It flips the completed flag of every
// referenced task, submitting all of them at once.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle tasks between pending and completed" }
func (c *DoneCmd) Usage() string     { return "todd done <ref>..." }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	tasks, err := cl.Load(ctx)
	if err != nil {
		return Report(errOut, err)
	}

	var targets []service.Task
	seen := make(map[string]bool)
	for _, ref := range refs {
		task, err := Resolve(tasks, ref)
		if err != nil {
			return Report(errOut, err)
		}
		if seen[task.ID] {
			continue
		}
		seen[task.ID] = true
		targets = append(targets, task)
	}

	results := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, task := range targets {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = cl.Mutations.Toggle(ctx, id)
		}(i, task.ID)
	}
	wg.Wait()

	code := exitcode.Success
	for i, err := range results {
		if err == nil {
			continue
		}
		fmt.Fprintf(errOut, "error: %s: %s\n", targets[i].ID, describe(err))
		if code == exitcode.Success {
			code = ExitCode(err)
		}
	}
	if code == exitcode.Success && !cl.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return code
}
