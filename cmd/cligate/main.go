// Command cligate runs the chat gateway: cobra entrypoint wiring
// internal/cmd's command tree, following the teacher's convention of a
// thin main.go that does nothing but build and execute the root command.
package main

import (
	"fmt"
	"os"

	"cligate/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
