// Package cmd wires cligate's cobra command tree: a "serve" command that
// runs the chat gateway, plus a "version" command. Adapted from the
// teacher's internal/cmd/root.go — the top-level cobra.Command and
// subcommand-registration shape survives; the ~40 agent-role/pod/worktree/
// sandbox/benchmark subcommands it used to wire do not, since this
// repo's product surface is a single-purpose chat gateway rather than a
// multi-agent terminal-pod wrapper (see DESIGN.md's deleted-modules
// entry for internal/cmd).
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cligate",
		Short: "Chat-driven remote control for CLI coding assistants",
		Long: "cligate drives an interactive CLI coding assistant under a PTY and relays its screen " +
			"to a chat platform as a streaming, edit-in-place message, forwarding chat replies back " +
			"as terminal input.",
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
