//go:build !windows

package diag

import (
	"fmt"
	"os"
)

// emit writes a diagnostic line to stderr. Off Windows there is no
// debugger output channel to target, and this package's callers outside
// the windows-tagged hook engine (rule parsing, tests) still want
// somewhere to send it.
func emit(args ...interface{}) {
	fmt.Fprint(os.Stderr, sprintLine(args...))
}
