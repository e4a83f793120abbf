// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"todd/internal/client"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires an unexpired session.
	// Commands like help, version, login, register and logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cl is nil for Local commands.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cl *client.Client, args []string, out, errOut io.Writer) int
}

// Local is implemented by commands that never talk to the backend.
// The dispatcher does not build a client for them.
type Local interface {
	Local()
}
