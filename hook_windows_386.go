//go:build windows && 386

package steamfilter

import (
	"runtime/debug"
	"unsafe"

	"golang.org/x/sys/windows"
)

// HookRecord tracks one attached API hook: the function that was patched,
// the point the original function's logic resumes at after the patch area,
// the detour to branch to, and enough of the original bytes to undo the
// patch later. It corresponds to ApiHook in the original filter DLL.
type HookRecord struct {
	name       string
	original   uintptr
	resume     uintptr
	detour     uintptr
	saved      [8]byte // only the first 7 bytes are ever written back on Unhook
	trampoline [16]byte
	armed      bool
}

// Resume returns the address at which the hooked function's own logic
// continues; a detour calls through this to invoke the original behavior.
// It is zero until Attach succeeds.
func (h *HookRecord) Resume() uintptr {
	return h.resume
}

// AttachByName resolves name in lib and attaches hook to it. It mirrors the
// ApiHook::attach(hook, lib, name) overload.
func (h *HookRecord) AttachByName(lib windows.Handle, name string, detour uintptr) error {
	proc, err := windows.GetProcAddress(lib, name)
	if err != nil {
		return ErrSymbolNotFound
	}
	h.name = name
	return h.Attach(proc, detour)
}

// Attach patches the function at address to branch to detour, saving enough
// of the original prologue to restore it later. It recognizes the same two
// prologue shapes as the original DLL: a hotpatch MOV EDI,EDI NOP with five
// bytes of padding before it, or a PUSH imm8 opening whose first two bytes
// get relocated into an internal trampoline.
func (h *HookRecord) Attach(address uintptr, detour uintptr) error {
	if address == 0 {
		return ErrNullTarget
	}

	h.original = address
	h.detour = detour

	saved := unsafe.Slice((*byte)(unsafe.Pointer(address-5)), 8)
	copy(h.saved[:], saved)

	switch classifyPrologue(address) {
	case shapeHotpatchNOP:
		h.resume = address + 2
	case shapePushImm8:
		resume, err := h.makeTrampoline(address, 2)
		if err != nil {
			return err
		}
		h.resume = resume
	default:
		return ErrBadPrologue
	}

	patchArea := address - 5
	var oldProtect uint32
	if err := windows.VirtualProtect(patchArea, 7, windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
		h.resume = 0
		return ErrProtect
	}

	buildLongJump(patchArea, detour)

	entry := unsafe.Slice((*byte)(unsafe.Pointer(address)), 2)
	entry[0] = byte(jmpShortMinus5 & 0xFF)
	entry[1] = byte(jmpShortMinus5 >> 8)

	h.armed = true
	return nil
}

// makeTrampoline copies the first n bytes at data into the hook's internal
// trampoline buffer and appends a JMP_LONG back to data+n, so that code
// which can't be patched in place (because it's too short for the NOP
// convention) can still be resumed after the stolen bytes run.
func (h *HookRecord) makeTrampoline(data uintptr, n int) (uintptr, error) {
	src := unsafe.Slice((*byte)(unsafe.Pointer(data)), n)
	copy(h.trampoline[:n], src)

	trampolineAddr := uintptr(unsafe.Pointer(&h.trampoline[0]))
	var oldProtect uint32
	if err := windows.VirtualProtect(trampolineAddr, uintptr(len(h.trampoline)), windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
		return 0, ErrProtect
	}

	buildLongJump(trampolineAddr+uintptr(n), data+uintptr(n))
	return trampolineAddr, nil
}

// Unhook restores the original bytes over the patch area. It is a no-op if
// the hook was never attached or has already been removed. Because the
// module that owned the patched function may have been unloaded by the
// time this runs, the write is guarded with recover rather than left to
// crash the host process, standing in for the __try/__finally SEH guard in
// the original implementation.
func (h *HookRecord) Unhook() {
	if !h.armed {
		return
	}

	func() {
		// Without SetPanicOnFault a fault at a non-nil address is fatal
		// and never reaches recover.
		defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
		defer func() { recover() }()
		dst := unsafe.Slice((*byte)(unsafe.Pointer(h.original-5)), 7)
		copy(dst, h.saved[:7])
	}()

	h.original, h.resume = 0, 0
	h.armed = false
}
