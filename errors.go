package steamfilter

import "errors"

// Errors returned while arming or disarming a hook.
var (
	// ErrNullTarget is returned by Attach when the target address is nil.
	ErrNullTarget = errors.New("steamfilter: hook target address is nil")
	// ErrBadPrologue is returned when a target function's first bytes are
	// neither of the two recognized patch-ready shapes.
	ErrBadPrologue = errors.New("steamfilter: unrecognized function prologue")
	// ErrProtect is returned when the platform refuses to change memory
	// protection on the bytes that need patching.
	ErrProtect = errors.New("steamfilter: unable to change memory protection")
	// ErrSymbolNotFound is returned when a target symbol is missing from
	// the loaded library.
	ErrSymbolNotFound = errors.New("steamfilter: symbol not found in target library")
	// ErrNotArmed reports that a hook is not armed. No function in this
	// package returns it; Unhook on a disarmed hook is a silent no-op.
	ErrNotArmed = errors.New("steamfilter: hook is not armed")
)

// ErrRuleSyntax reports a malformed rule token. The offending token is
// included so a bad control-surface string can be diagnosed without
// re-parsing it by hand.
type ErrRuleSyntax struct {
	Token string
	Cause string
}

func (e *ErrRuleSyntax) Error() string {
	return "steamfilter: malformed rule `" + e.Token + "`: " + e.Cause
}
