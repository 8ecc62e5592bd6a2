package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const ansiRed = "\033[31m"
const ansiReset = "\033[0m"

// Report writes err to w as one formatted error message, red-highlighted
// when w is a terminal.
func Report(w io.Writer, err error) {
	msg := err.Error()
	if isTerminalWriter(w) {
		fmt.Fprintln(w, ansiRed+msg+ansiReset)
		return
	}
	fmt.Fprintln(w, msg)
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
