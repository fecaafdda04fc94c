//go:build windows

package diag

import "golang.org/x/sys/windows"

// emit writes a diagnostic line to the debugger output channel via
// OutputDebugString, the same sink the original filter DLL writes to,
// since an injected DLL has no console of its own to print to.
func emit(args ...interface{}) {
	windows.OutputDebugString(sprintLine(args...))
}
