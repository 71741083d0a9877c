// Package oemseqerr defines the two error kinds the sequencer core raises
// synchronously, plus the non-fatal warning channel used for TGC clamping
// and driver-retry notices.
package oemseqerr

import "fmt"

// IllegalArgument reports a malformed request or a violated invariant of
// the data model (odd varargs, unknown scan kind, bad probe name, a value
// out of range, or an invariant breach discovered during normalization,
// planning, or programming).
type IllegalArgument struct {
	Op     string
	Reason string
}

func (e *IllegalArgument) Error() string {
	return fmt.Sprintf("illegal argument in %s: %s", e.Op, e.Reason)
}

// NewIllegalArgument builds an IllegalArgument, formatting Reason like fmt.Sprintf.
func NewIllegalArgument(op, format string, args ...interface{}) *IllegalArgument {
	return &IllegalArgument{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// OutOfMemory reports that the 4 GiB-per-OEM DDR buffer budget would be
// exceeded by the requested sequence.
type OutOfMemory struct {
	OEM     int
	Wanted  uint64
	Budget  uint64
}

func (e *OutOfMemory) Error() string {
	return fmt.Sprintf("oem %d: sequence needs %d bytes of DDR, budget is %d", e.OEM, e.Wanted, e.Budget)
}

func NewOutOfMemory(oem int, wanted, budget uint64) *OutOfMemory {
	return &OutOfMemory{OEM: oem, Wanted: wanted, Budget: budget}
}

// Observer receives non-fatal warnings: TGC values clamped outside
// [14, 54] dB, and a driver call that failed once and is being retried.
// A nil Observer is valid; Warnings are dropped silently in that case.
type Observer interface {
	Warn(op, format string, args ...interface{})
}

// DiscardObserver implements Observer by dropping every warning.
type DiscardObserver struct{}

func (DiscardObserver) Warn(op, format string, args ...interface{}) {}

func warn(o Observer, op, format string, args ...interface{}) {
	if o == nil {
		return
	}
	o.Warn(op, format, args...)
}

// Warn is the package-level helper components use so they don't need to
// nil-check the observer themselves.
func Warn(o Observer, op, format string, args ...interface{}) {
	warn(o, op, format, args...)
}
