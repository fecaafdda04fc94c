//go:build windows && 386

package steamfilter

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const ws2_32DLLName = "WS2_32.DLL"

var (
	kernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandleExW = kernel32.NewProc("GetModuleHandleExW")
	procSetLastError       = kernel32.NewProc("SetLastError")
)

const getModuleHandleExFlagFromAddress = 0x00000004

// waitForModule polls for lib to be present in the current process, the
// way the original shim waits for WS2_32.DLL to finish loading before
// patching it, so the hook is never installed mid-initialization of the
// very module it targets.
func waitForModule(name string) (windows.Handle, error) {
	for {
		h, err := windows.GetModuleHandle(name)
		if err == nil && h != 0 {
			return h, nil
		}
		time.Sleep(time.Second)
	}
}

// pinSelf increments this DLL's own LoadLibrary reference count using the
// address of a function inside it, via GetModuleHandleExW, mirroring the
// GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS call the original shim makes with
// its own SteamFilter entry point once hooking succeeds. The typed wrapper
// for this API isn't available in every golang.org/x/sys/windows release,
// so it is resolved and called the same way the rest of this package
// resolves ad hoc kernel32 entry points.
func pinSelf(anchor uintptr) (windows.Handle, error) {
	if err := procGetModuleHandleExW.Find(); err != nil {
		return 0, err
	}

	var h windows.Handle
	ret, _, callErr := procGetModuleHandleExW.Call(
		uintptr(getModuleHandleExFlagFromAddress),
		anchor,
		uintptr(unsafe.Pointer(&h)),
	)
	if ret == 0 {
		return 0, callErr
	}
	return h, nil
}

// setLastError sets the calling thread's last-error code via kernel32,
// which is what GetLastError/WSAGetLastError ultimately read on Windows.
func setLastError(code uint32) {
	if err := procSetLastError.Find(); err != nil {
		return
	}
	procSetLastError.Call(uintptr(code))
}

// rawSockAddrIn is the wire-compatible layout of a 16-byte struct
// sockaddr_in, used only at this interop boundary; everything else in this
// package works with the platform-independent SockAddrIn.
type rawSockAddrIn struct {
	family uint16
	port   uint16 // network byte order
	addr   [4]byte
	zero   [8]byte
}

func sockAddrInFromRaw(raw *rawSockAddrIn) SockAddrIn {
	return SockAddrIn{
		Addr: raw.addr,
		Port: uint16(raw.port>>8) | uint16(raw.port<<8),
	}
}

// applyToRaw writes s into raw in place, preserving raw's family and
// zero padding, and converting the port back to network byte order.
func applyToRaw(raw *rawSockAddrIn, s SockAddrIn) {
	raw.addr = s.Addr
	raw.port = uint16(s.Port>>8) | uint16(s.Port<<8)
}

// rawHostent is the wire-compatible layout this package fabricates when a
// rule rewrites a gethostbyname result; it only ever populates an IPv4
// address list one entry long, matching the original implementation.
type rawHostent struct {
	name     *byte
	aliases  *uintptr
	addrtype int16
	length   int16
	addrList *uintptr
}

const afINET = 2
