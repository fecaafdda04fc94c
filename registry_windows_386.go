//go:build windows && 386

package steamfilter

import "golang.org/x/sys/windows"

// hookSpec names one function to intercept in ws2_32.dll and the detour to
// install in its place.
type hookSpec struct {
	name   string
	detour uintptr
}

// HookRegistry owns the full set of hooks this package installs into
// WS2_32.DLL: connect, gethostbyname, recv, recvfrom, WSARecv and
// WSAGetOverlappedResult, exactly the set the original filter DLL patches.
type HookRegistry struct {
	connect       HookRecord
	gethostbyname HookRecord
	recv          HookRecord
	recvfrom      HookRecord
	wsaRecv       HookRecord
	wsaGetOverlap HookRecord

	installed bool
}

func (r *HookRegistry) records() []*HookRecord {
	return []*HookRecord{
		&r.connect, &r.gethostbyname, &r.recv,
		&r.recvfrom, &r.wsaRecv, &r.wsaGetOverlap,
	}
}

// InstallAll attaches every hook in the registry against the functions
// exported by lib, using the given detour thunks. If any single attach
// fails, every hook attached so far in this call is unwound before the
// error is returned, so the registry is never left half-armed.
func (r *HookRegistry) InstallAll(lib windows.Handle, specs []hookSpec) error {
	if r.installed {
		return nil
	}

	recs := r.records()
	if len(specs) != len(recs) {
		panic("steamfilter: hookSpec count does not match HookRegistry field count")
	}

	for i, spec := range specs {
		if err := recs[i].AttachByName(lib, spec.name, spec.detour); err != nil {
			for j := 0; j < i; j++ {
				recs[j].Unhook()
			}
			return err
		}
	}

	r.installed = true
	return nil
}

// UninstallAll removes every armed hook in the registry. It is always safe
// to call, including when no hooks are currently armed.
func (r *HookRegistry) UninstallAll() {
	for _, rec := range r.records() {
		rec.Unhook()
	}
	r.installed = false
}

// Installed reports whether the registry's hooks are currently armed.
func (r *HookRegistry) Installed() bool {
	return r.installed
}
