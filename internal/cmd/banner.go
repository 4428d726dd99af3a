package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// printBanner writes a one-line startup banner for `serve`, styled when
// stdout is a color-capable terminal. Grounded on the teacher's
// refreshTerminalColorHintsCache/detectTerminalColorHints concept (probe
// the terminal's color capability before printing anything styled) but
// without its on-disk hint cache, which existed to avoid re-probing
// across the teacher's many short-lived CLI invocations — cligate serve
// is a single long-running process, so there is nothing to cache.
func printBanner(w io.Writer, user, version string) {
	fd := os.Stdout.Fd()
	if f, ok := w.(*os.File); ok {
		fd = f.Fd()
	}

	line := fmt.Sprintf("cligate %s — serving %s", version, user)
	if !isatty.IsTerminal(fd) {
		fmt.Fprintln(w, line)
		return
	}

	if cols, _, err := term.GetSize(int(fd)); err == nil && cols > 0 && cols < len(line) {
		line = line[:cols]
	}

	out := termenv.NewOutput(w)
	fmt.Fprintln(w, out.String(line).Bold().Foreground(out.Color("2")))
}
