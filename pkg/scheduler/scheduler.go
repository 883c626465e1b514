package scheduler

import "time"

// Handle identifies a scheduled callback. The zero value is never a valid
// handle.
type Handle uint64

// Scheduler issues cancellable delayed callbacks. Implementations must
// guarantee that a callback cancelled before firing never runs, that
// cancelling a fired or unknown handle is a no-op, and that CancelAll
// clears every outstanding handle in one step.
type Scheduler interface {
	// After schedules fn to run once after d.
	After(d time.Duration, fn func()) Handle
	// Cancel stops the callback for h if it has not fired yet.
	Cancel(h Handle)
	// CancelAll stops every outstanding callback.
	CancelAll()
}
