package renderer

import "sync/atomic"

// ReinitState is the lifecycle of a deferred reinitialisation request.
// Setters on the control thread only ever move the machine to
// StateRequested; the audio thread acknowledges the request at the top of a
// processing call, performs the rebuild, and returns to StateClean. A
// request arriving while a rebuild is in flight parks the machine in
// StateRequested again, so the rebuild is repeated on the next call with
// the newest parameters rather than lost.
type ReinitState int32

const (
	// StateClean means the derived state matches the requested parameters.
	StateClean ReinitState = iota
	// StateRequested means a structural parameter changed and the derived
	// state is stale; output is silenced until the rebuild completes.
	StateRequested
	// StateInProgress means the audio thread is rebuilding right now.
	StateInProgress
)

// reinit is one deferred-reinitialisation machine. The zero value is
// StateClean.
type reinit struct {
	v atomic.Int32
}

// Request marks the derived state stale. Safe from any goroutine.
func (r *reinit) Request() {
	r.v.Store(int32(StateRequested))
}

// consume attempts to acknowledge a pending request, moving
// StateRequested to StateInProgress. It reports whether the caller now owns
// the rebuild.
func (r *reinit) consume() bool {
	return r.v.CompareAndSwap(int32(StateRequested), int32(StateInProgress))
}

// finish completes a rebuild. If a new request arrived mid-rebuild the
// machine stays StateRequested and the rebuild runs again next call.
func (r *reinit) finish() {
	r.v.CompareAndSwap(int32(StateInProgress), int32(StateClean))
}

// State returns the current lifecycle state.
func (r *reinit) State() ReinitState {
	return ReinitState(r.v.Load())
}

func (r *reinit) clean() bool {
	return r.State() == StateClean
}
