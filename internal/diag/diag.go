// Package diag provides the colorized, level-prefixed diagnostic logging
// used throughout steamfilter, in the same [+]/[?]/[x] style used to narrate
// hook attach/detach and rule decisions.
package diag

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	okPrefix   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnPrefix = color.New(color.FgYellow, color.Bold).SprintFunc()
	errPrefix  = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Info reports a routine event: a hook attaching, a rule installing.
func Info(args ...interface{}) {
	write(okPrefix("[+]"), args)
}

// Warn reports a decision worth noticing but not a failure: a connection
// refused by rule, a DNS lookup denied.
func Warn(args ...interface{}) {
	write(warnPrefix("[?]"), args)
}

// Error reports a failure: a hook that could not attach, a symbol that
// could not be resolved.
func Error(args ...interface{}) {
	write(errPrefix("[x]"), args)
}

func write(prefix interface{}, args []interface{}) {
	all := make([]interface{}, 0, len(args)+1)
	all = append(all, prefix)
	all = append(all, args...)
	emit(all...)
}

func sprintLine(args ...interface{}) string {
	return fmt.Sprintln(args...)
}
