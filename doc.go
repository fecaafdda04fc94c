// Package steamfilter implements an in-process interception layer for the
// Windows sockets library (WS2_32.DLL). It hot-patches a small set of entry
// points inside a host process so that outbound connections and DNS lookups
// can be vetoed or redirected, and so that received bytes can be tallied,
// without the host's cooperation.
//
// The package splits into a rule engine (Rule, RuleSet) that is pure Go and
// portable, and a hook engine (HookRecord, HookRegistry, the detour bodies,
// and Install/Unload) that only builds for windows/386, the one target where
// the "hot patch" function-prologue convention this package relies on
// actually appears.
package steamfilter
