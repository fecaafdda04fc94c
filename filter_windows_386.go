//go:build windows && 386

package steamfilter

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Filter is the armed state of one injected filtering session: a rule set,
// a bandwidth counter, and the hooks installed into WS2_32.DLL to act on
// both. The original implementation kept this as a scatter of global
// variables in the DLL; here it's a single value so a test can construct
// as many independent filters as it likes without fighting global state.
type Filter struct {
	Rules *RuleSet
	Meter *BandwidthCounter
	hooks HookRegistry
	self  windows.Handle
}

// NewFilter returns a Filter with an empty rule set and a fresh bandwidth
// counter, neither armed against any process yet.
func NewFilter() *Filter {
	return &Filter{
		Rules: NewRuleSet(),
		Meter: NewBandwidthCounter(),
	}
}

const (
	socketError = int32(-1)
	msgPeek     = 0x2
)

// wsaOverlapped mirrors the fields of Windows' OVERLAPPED struct that this
// package actually reads: InternalHigh carries the byte count on a
// synchronously-completed WSARecv.
type wsaOverlapped struct {
	internal     uintptr
	internalHigh uintptr
	offset       uint32
	offsetHigh   uint32
	hEvent       uintptr
}

// connectHook intercepts WS2_32.DLL's connect() call. It corresponds to
// connectHook in the original filter DLL.
func (f *Filter) connectHook(s uintptr, name *rawSockAddrIn, namelen int32) uintptr {
	resume := f.hooks.connect.Resume()

	if name == nil || name.family != afINET {
		return callConnect(resume, s, name, namelen)
	}

	res := f.Rules.MatchAddr(sockAddrInFromRaw(name))
	if !res.Matched {
		return callConnect(resume, s, name, namelen)
	}

	if res.Deny {
		diagLog("Connect refused")
		setLastError(uint32(windows.WSAECONNREFUSED))
		return uintptr(socketError)
	}

	diagLog("Connect redirected")

	temp := *name
	replacement := SockAddrIn{Addr: res.Addr, Port: res.Port}
	applyToRaw(&temp, mergeSockAddr(sockAddrInFromRaw(name), replacement))

	return callConnect(resume, s, &temp, int32(unsafe.Sizeof(temp)))
}

// mergeSockAddr fills in zero fields of replace from base, matching the
// connectHook temp construction in the original filter DLL: a replacement
// port or address of zero means "keep what the caller supplied".
func mergeSockAddr(base, replace SockAddrIn) SockAddrIn {
	out := replace
	if out.Port == 0 {
		out.Port = base.Port
	}
	if out.Addr == [4]byte{} {
		out.Addr = base.Addr
	}
	return out
}

// gethostHook intercepts WS2_32.DLL's gethostbyname() call. It corresponds
// to gethostHook in the original filter DLL.
func (f *Filter) gethostHook(namePtr *byte) uintptr {
	resume := f.hooks.gethostbyname.Resume()
	name := cStringToGo(namePtr)

	res := f.Rules.MatchName(name)
	if !res.Matched || (!res.Deny && res.Addr == [4]byte{} && res.Port == 0) {
		return callGethostbyname(resume, namePtr)
	}

	if res.Deny {
		diagLog("gethostbyname refused")
		setLastError(uint32(windows.WSAHOST_NOT_FOUND))
		return 0
	}

	diagLog("gethostbyname redirected")
	return f.fabricateHostent(res.Addr)
}

// gethostResult is the storage the fabricated hostent points into. Like
// the original implementation, this is a single global rather than
// per-thread storage: gethostbyname's own result buffer is documented as
// being per-thread, but that guarantee isn't one we can cheaply preserve
// across a hot-patched detour, so a shared buffer it is.
var gethostResult struct {
	hostent  rawHostent
	addr     uint32
	addrList [2]uintptr
	aliases  [1]uintptr
	name     [16]byte
}

func (f *Filter) fabricateHostent(addr [4]byte) uintptr {
	gethostResult.addr = uint32(addr[0]) | uint32(addr[1])<<8 | uint32(addr[2])<<16 | uint32(addr[3])<<24
	gethostResult.addrList[0] = uintptr(unsafe.Pointer(&gethostResult.addr))
	gethostResult.addrList[1] = 0
	gethostResult.aliases[0] = 0
	copy(gethostResult.name[:], "remapped.local")

	gethostResult.hostent = rawHostent{
		name:     &gethostResult.name[0],
		aliases:  &gethostResult.aliases[0],
		addrtype: afINET,
		length:   4,
		addrList: &gethostResult.addrList[0],
	}

	return uintptr(unsafe.Pointer(&gethostResult.hostent))
}

// recvHook and recvfromHook attribute successfully received bytes to the
// Filter's bandwidth counter and otherwise pass straight through, matching
// recvHook/recvfromHook in the original filter DLL.
func (f *Filter) recvHook(s uintptr, buf *byte, length, flags int32) int32 {
	n := callRecv(f.hooks.recv.Resume(), s, buf, length, flags)
	f.Meter.Add(int(n))
	return n
}

func (f *Filter) recvfromHook(s uintptr, buf *byte, length, flags int32, from *rawSockAddrIn, fromLen *int32) int32 {
	n := callRecvFrom(f.hooks.recvfrom.Resume(), s, buf, length, flags, from, fromLen)
	f.Meter.Add(int(n))
	return n
}

// wsaRecvHook attributes bytes delivered through the overlapped-I/O WSARecv
// path, matching wsaRecvHook in the original filter DLL, including its
// asynchronous-vs-synchronous and MSG_PEEK special cases.
func (f *Filter) wsaRecvHook(s uintptr, buffers uintptr, count uint32, received, flags *uint32, overlapped *wsaOverlapped, handler uintptr) int32 {
	resume := f.hooks.wsaRecv.Resume()

	if overlapped != nil || handler != 0 {
		result := callWSARecv(resume, s, buffers, count, received, flags, overlapped, handler)
		if result == 0 && overlapped != nil {
			f.Meter.Add(int(overlapped.internalHigh))
		}
		return result
	}

	ignore := flags != nil && *flags&msgPeek != 0

	result := callWSARecv(resume, s, buffers, count, received, flags, overlapped, handler)
	if result != socketError && !ignore && received != nil {
		f.Meter.Add(int(*received))
	}
	return result
}

// wsaGetOverlappedHook simply forwards to the original, kept as a distinct
// hook only because the original reserved it for future bandwidth-limiting
// work around completion slicing.
func (f *Filter) wsaGetOverlappedHook(s uintptr, overlapped *wsaOverlapped, length *uint32, wait int32, flags *uint32) int32 {
	return callWSAGetOverlappedResult(f.hooks.wsaGetOverlap.Resume(), s, overlapped, length, wait, flags)
}

func cStringToGo(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// callConnect, callGethostbyname and friends invoke the resumed original
// function through its saved entry point using the stdcall calling
// convention, via syscall.Syscall*; they exist so the hook bodies above
// read like direct calls despite resume being a raw code address rather
// than a typed Go function value.
func callConnect(resume uintptr, s uintptr, name *rawSockAddrIn, namelen int32) uintptr {
	ret, _, _ := syscall.Syscall(resume, 3, s, uintptr(unsafe.Pointer(name)), uintptr(namelen))
	return ret
}

func callGethostbyname(resume uintptr, name *byte) uintptr {
	ret, _, _ := syscall.Syscall(resume, 1, uintptr(unsafe.Pointer(name)), 0, 0)
	return ret
}

func callRecv(resume uintptr, s uintptr, buf *byte, length, flags int32) int32 {
	ret, _, _ := syscall.Syscall6(resume, 4, s, uintptr(unsafe.Pointer(buf)), uintptr(length), uintptr(flags), 0, 0)
	return int32(ret)
}

func callRecvFrom(resume uintptr, s uintptr, buf *byte, length, flags int32, from *rawSockAddrIn, fromLen *int32) int32 {
	ret, _, _ := syscall.Syscall6(resume, 6, s, uintptr(unsafe.Pointer(buf)), uintptr(length), uintptr(flags),
		uintptr(unsafe.Pointer(from)), uintptr(unsafe.Pointer(fromLen)))
	return int32(ret)
}

func callWSARecv(resume uintptr, s uintptr, buffers uintptr, count uint32, received, flags *uint32, overlapped *wsaOverlapped, handler uintptr) int32 {
	ret, _, _ := syscall.Syscall9(resume, 7, s, buffers, uintptr(count),
		uintptr(unsafe.Pointer(received)), uintptr(unsafe.Pointer(flags)),
		uintptr(unsafe.Pointer(overlapped)), handler, 0, 0)
	return int32(ret)
}

func callWSAGetOverlappedResult(resume uintptr, s uintptr, overlapped *wsaOverlapped, length *uint32, wait int32, flags *uint32) int32 {
	ret, _, _ := syscall.Syscall6(resume, 5, s, uintptr(unsafe.Pointer(overlapped)),
		uintptr(unsafe.Pointer(length)), uintptr(wait), uintptr(unsafe.Pointer(flags)), 0)
	return int32(ret)
}
