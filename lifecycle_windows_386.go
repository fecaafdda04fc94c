//go:build windows && 386

package steamfilter

import "golang.org/x/sys/windows"

// Install arms the filter against the process's WS2_32.DLL, waiting for
// that module to finish loading first. If the filter is already armed,
// Install instead just re-binds the rule string, matching the original
// SteamFilter() export's "already hooked -> just update the filter"
// behavior.
//
// ruleString follows the grammar described by the package's RuleSet type;
// it is appended with the built-in Valve content-server catch-all rule
// exactly as the original implementation's setFilter does.
func (f *Filter) Install(ruleString string) error {
	if f.hooks.Installed() {
		return f.Rules.Install(ruleString)
	}

	ws2, err := waitForModule(ws2_32DLLName)
	if err != nil {
		return err
	}

	if err := f.Rules.Install(ruleString); err != nil {
		return err
	}

	specs := []hookSpec{
		{"connect", windows.NewCallback(f.connectHook)},
		{"gethostbyname", windows.NewCallback(f.gethostHook)},
		{"recv", windows.NewCallback(f.recvHook)},
		{"recvfrom", windows.NewCallback(f.recvfromHook)},
		{"WSARecv", windows.NewCallback(f.wsaRecvHook)},
		{"WSAGetOverlappedResult", windows.NewCallback(f.wsaGetOverlappedHook)},
	}

	if err := f.hooks.InstallAll(ws2, specs); err != nil {
		return err
	}

	diagLog("SteamFilter hook attached")

	if self, err := pinSelf(installAnchor); err == nil {
		f.self = self
	}

	return nil
}

// installAnchor is an address inside this package's own code, standing in
// for the original implementation's use of its own SteamFilter entry point
// as the anchor for GetModuleHandleExW's from-address lookup.
var installAnchor = windows.NewCallback(anchorStub)

func anchorStub() uintptr { return 0 }

// Unload removes the armed hooks and releases the self-pinning reference
// taken during Install, matching FilterUnload in the original DLL.
func (f *Filter) Unload() error {
	if f.self == 0 {
		return nil
	}

	f.removeHook()
	windows.FreeLibrary(f.self)
	f.self = 0
	return nil
}

// removeHook disarms the hooks without releasing the self-pin, matching
// removeHook in the original implementation; it is also what a
// DLL_PROCESS_DETACH callback should invoke.
func (f *Filter) removeHook() {
	if !f.hooks.Installed() {
		return
	}
	f.hooks.UninstallAll()
	diagLog("SteamFilter unhooked")
}

// ProcessDetach performs the cleanup appropriate to a DLL_PROCESS_DETACH
// notification: disarm the hooks but do not touch the self-pinning
// refcount, since the process is already tearing the module down.
func (f *Filter) ProcessDetach() {
	f.removeHook()
}
