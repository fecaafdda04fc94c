package steamfilter

import "github.com/nbree/steamfilter/internal/diag"

// diagLog reports a routine filtering decision, mirroring the
// OutputDebugStringA calls scattered through the original filter DLL.
func diagLog(msg string) {
	diag.Info(msg)
}
