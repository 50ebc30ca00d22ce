package health

import "sync/atomic"

// draining gates the readiness probe. Shutdown flips it before the request
// drain so load balancers stop routing new traffic; everything else keeps
// the default, ready.
var draining atomic.Bool

// SetReady toggles the readiness gate.
func SetReady(v bool) {
	draining.Store(!v)
}

// IsReady reports the current gate state.
func IsReady() bool {
	return !draining.Load()
}
