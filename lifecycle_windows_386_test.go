//go:build windows && 386

package steamfilter

import (
	"errors"
	"testing"
)

// TestUnloadNeverPinnedIsNoop matches FilterUnload's "if (g_instance == 0)
// return 0" guard in the original filter DLL: a Filter that was never
// successfully self-pinned must leave everything alone, even if its hooks
// happen to be marked installed.
func TestUnloadNeverPinnedIsNoop(t *testing.T) {
	f := NewFilter()
	f.hooks.installed = true

	if err := f.Unload(); err != nil {
		t.Fatalf("Unload() error = %v, want nil", err)
	}
	if !f.hooks.installed {
		t.Fatalf("Unload() touched hooks on a never-pinned Filter")
	}
	if f.self != 0 {
		t.Fatalf("Unload() changed self on a never-pinned Filter: %v", f.self)
	}
}

// TestUnloadReleasesPin exercises the pinned path: once self is non-zero,
// Unload must disarm the hooks and clear self.
func TestUnloadReleasesPin(t *testing.T) {
	f := NewFilter()
	f.self = 1 // never a real module handle; just needs to be non-zero
	f.hooks.installed = true

	if err := f.Unload(); err != nil {
		t.Fatalf("Unload() error = %v, want nil", err)
	}
	if f.hooks.installed {
		t.Fatalf("Unload() left hooks marked installed")
	}
	if f.self != 0 {
		t.Fatalf("Unload() left self = %v, want 0", f.self)
	}
}

// TestInstallRebindUpdatesRulesWithoutTouchingHooks exercises the
// already-armed branch of Install: a second call with a new rule string
// must take effect immediately and must not need to touch the hook
// registry at all, matching the original SteamFilter() export's
// "already hooked -> just update the filter" behavior (concrete scenario 5).
func TestInstallRebindUpdatesRulesWithoutTouchingHooks(t *testing.T) {
	f := NewFilter()
	f.hooks.installed = true

	if err := f.Install("10.0.0.0/24=0.0.0.0"); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if !f.hooks.installed {
		t.Fatalf("Install() on an already-armed Filter touched hooks.installed")
	}

	res := f.Rules.MatchAddr(SockAddrIn{Addr: [4]byte{10, 0, 0, 5}, Port: 80})
	if !res.Matched {
		t.Fatalf("rebind did not take effect: %+v", res)
	}
}

// TestInstallRebindPropagatesRuleSyntaxError exercises the rule-parse-failure
// side of concrete scenario 6: on an already-armed Filter, a malformed rule
// string must surface as *ErrRuleSyntax, not a generic error, since that's
// exactly what the cmd/steamfilter SteamFilter export type-switches on to
// choose between returning 0 and the all-ones sentinel.
func TestInstallRebindPropagatesRuleSyntaxError(t *testing.T) {
	f := NewFilter()
	f.hooks.installed = true

	err := f.Install("example.com=not-an-ip")
	if err == nil {
		t.Fatalf("Install() with malformed rule returned nil error")
	}

	var ruleErr *ErrRuleSyntax
	if !errors.As(err, &ruleErr) {
		t.Fatalf("Install() error = %v (%T), want *ErrRuleSyntax", err, err)
	}
}

// TestHookInstallErrorsAreNotRuleSyntaxErrors documents the other side of
// the same classification: the sentinel errors a failed hook attach can
// return must never satisfy errors.As against *ErrRuleSyntax, since the
// cmd boundary relies on that distinction to report the all-ones sentinel
// instead of the rule-parse failure code.
func TestHookInstallErrorsAreNotRuleSyntaxErrors(t *testing.T) {
	for _, err := range []error{ErrSymbolNotFound, ErrBadPrologue, ErrProtect, ErrNullTarget} {
		var ruleErr *ErrRuleSyntax
		if errors.As(err, &ruleErr) {
			t.Fatalf("%v unexpectedly matched *ErrRuleSyntax", err)
		}
	}
}
