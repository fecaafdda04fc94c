//go:build windows && 386

// Command steamfilter builds as a c-shared Windows DLL exporting the same
// stdcall entry points as the original injected filter: SteamFilter to
// arm or re-bind the hook, and FilterUnload to remove it. It is meant to
// be built with `go build -buildmode=c-shared` and loaded by an external
// injection shim exactly where the original native DLL would have gone.
package main

/*
#include <windows.h>

extern void goProcessDetach(void);

BOOL WINAPI DllMain(HINSTANCE instance, DWORD reason, LPVOID reserved) {
	if (reason == DLL_PROCESS_DETACH) {
		goProcessDetach();
	}
	return TRUE;
}
*/
import "C"

import (
	"errors"

	"github.com/nbree/steamfilter"
	"golang.org/x/sys/windows"
)

var defaultFilter = steamfilter.NewFilter()

//export SteamFilter
func SteamFilter(address *uint16, result *uint16, resultSize *uintptr) int32 {
	ruleString := windows.UTF16PtrToString(address)

	err := defaultFilter.Install(ruleString)
	if err == nil {
		return 1
	}

	var ruleErr *steamfilter.ErrRuleSyntax
	if errors.As(err, &ruleErr) {
		return 0
	}

	// Anything else failed while resolving or attaching the hooks
	// themselves, after the rules were installed; any hooks armed along
	// the way were unhooked again, so report the all-ones sentinel rather
	// than the rule-parse-failure code.
	return int32(-1)
}

//export FilterUnload
func FilterUnload() int32 {
	if err := defaultFilter.Unload(); err != nil {
		return 0
	}
	return 1
}

//export goProcessDetach
func goProcessDetach() {
	defaultFilter.ProcessDetach()
}

func main() {}
