// Package scanout implements a frame scheduler for displays driven
// directly through a kernel mode-setting interface.
//
// The scheduler owns a small queue of framebuffers per output, predicts
// when each output's next frame will reach the screen, batches all
// pending configuration changes into a single non-blocking commit, and
// rotates the buffer queue as the hardware reports completions. The
// hardware itself is reached through the Card interface; see the kms
// package for the Linux implementation.
package scanout

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"
)

const (
	// QueueDepth is the number of buffers allocated per output. Two is
	// the minimum (one displayed, one pending); three tolerates a late
	// release without stalling.
	QueueDepth = 3

	// AnimFrames is the length of the animation cycle in frames.
	AnimFrames = 240

	// leadMargin is the minimum lead time a frame prediction must carry:
	// enough to paint a buffer and submit the commit.
	leadMargin = 4 * time.Millisecond

	// timingTolerance is how far a completion may drift from its
	// predicted time before we complain about it.
	timingTolerance = 500 * time.Microsecond
)

// Errors
var (
	ErrNoOutputs  = errors.New("scanout: no outputs")
	ErrNoPainter  = errors.New("scanout: no painter configured")
	ErrQueueDepth = errors.New("scanout: output needs at least two buffers")
)

var debug bool

func init() {
	debug = os.Getenv("SCANOUT_DEBUG") != ""
}

// Fence is an opaque handle to a synchronization point on a hardware
// timeline. Ownership transfers on every hand-over: storing a fence in
// a slot releases the slot's previous occupant.
type Fence interface {
	io.Closer
}

// fenceTimer is implemented by fences that can report when they
// signaled. Used for debug logging only.
type fenceTimer interface {
	SignalTime() (int64, error)
}

// replaceFence stores f in *slot, closing whatever was there before.
func replaceFence(slot *Fence, f Fence) {
	if *slot != nil {
		_ = (*slot).Close()
	}
	*slot = f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
