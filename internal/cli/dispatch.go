// Package cli parses the command line and runs the selected command.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"todd/internal/client"
	"todd/internal/commands"
	"todd/internal/config"
	"todd/internal/exitcode"
)

// DefaultCommand runs when no arguments are given.
const DefaultCommand = "list"

// ClientFactory creates a Client from config.
// Used to inject the backend during dispatch.
type ClientFactory func(ctx context.Context, cfg *config.Config) (*client.Client, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ClientFactory
}

// NewDispatcher creates a dispatcher over registry. factory may be nil if
// only Local commands are run.
func NewDispatcher(registry *commands.Registry, factory ClientFactory) *Dispatcher {
	return &Dispatcher{registry: registry, factory: factory}
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	quiet     bool
	debug     bool
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configDir, "config", "", "")
	fs.BoolVar(&f.quiet, "quiet", false, "")
	fs.BoolVar(&f.debug, "debug", false, "")
}

// Run dispatches args and returns the process exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	name := DefaultCommand
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}

	// Common flags only follow a command name.
	cmd, ok := d.registry.Find(name)
	if !ok || strings.HasPrefix(name, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}

	var common commonFlags
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	common.register(fs)
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagMessage(err))
		return exitcode.UserError
	}
	positional := fs.Args()
	if len(positional) > 0 && strings.HasPrefix(positional[0], "-") && positional[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positional[0])
		return exitcode.UserError
	}

	cfg, err := config.New(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug

	if _, local := cmd.(commands.Local); local {
		return cmd.Run(ctx, nil, positional, out, errOut)
	}
	return d.runWithClient(ctx, cmd, cfg, positional, out, errOut)
}

func (d *Dispatcher) runWithClient(ctx context.Context, cmd commands.Command, cfg *config.Config, args []string, out, errOut io.Writer) int {
	if d.factory == nil {
		fmt.Fprintln(errOut, "error: no backend configured")
		return exitcode.UserError
	}
	cl, err := d.factory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	defer cl.Close()

	if cmd.NeedsAuth() {
		if _, _, err := cl.Session.Token(); err != nil {
			return commands.Report(errOut, err)
		}
	}
	return cmd.Run(ctx, cl, args, out, errOut)
}

// flagMessage rewrites flag package errors into the CLI's wording.
func flagMessage(err error) string {
	if errors.Is(err, flag.ErrHelp) {
		return "unknown flag: -help (run: todd help)"
	}
	msg := err.Error()
	if name, ok := strings.CutPrefix(msg, "flag provided but not defined: "); ok {
		return "unknown flag: " + name
	}
	return msg
}
