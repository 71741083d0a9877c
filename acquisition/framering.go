package acquisition

import (
	"time"

	"github.com/lestrrat-go/strftime"
)

// Frame is one demultiplexed acquisition together with the wall-clock
// time it was captured at.
type Frame struct {
	Tensor   *RFTensor
	Captured time.Time
}

// FrameRing is a fixed-capacity circular buffer of acquired frames,
// generalizing the platform's scanline/sample ring buffer to the RF
// tensors this core produces: runLoop pushes into it and the oldest
// frame is silently overwritten once it wraps, exactly like the
// hardware's own DMA ring never blocks the producer for a slow consumer.
type FrameRing struct {
	frames  []Frame
	iBuff   int
	nPushed uint64
}

// NewFrameRing allocates a ring holding up to capacity frames.
func NewFrameRing(capacity int) *FrameRing {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameRing{frames: make([]Frame, capacity)}
}

// Push stores tensor as the next frame, overwriting the oldest one if
// the ring is full.
func (r *FrameRing) Push(tensor *RFTensor, at time.Time) {
	r.frames[r.iBuff] = Frame{Tensor: tensor, Captured: at}
	r.iBuff = (r.iBuff + 1) % len(r.frames)
	r.nPushed++
}

// Len returns how many frames have been pushed, capped at capacity.
func (r *FrameRing) Len() int {
	if r.nPushed > uint64(len(r.frames)) {
		return len(r.frames)
	}
	return int(r.nPushed)
}

// Latest returns the most recently pushed frame, or the zero Frame if
// nothing has been pushed yet.
func (r *FrameRing) Latest() Frame {
	if r.nPushed == 0 {
		return Frame{}
	}
	idx := (r.iBuff - 1 + len(r.frames)) % len(r.frames)
	return r.frames[idx]
}

var timestampPattern = mustNewStrftime("%Y-%m-%dT%H:%M:%S")

func mustNewStrftime(pattern string) *strftime.Strftime {
	f, err := strftime.New(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// FormatTimestamp renders a frame's capture time as
// "YYYY-MM-DDTHH:MM:SS" (no fractional seconds or zone).
func FormatTimestamp(t time.Time) string {
	return timestampPattern.FormatString(t)
}
