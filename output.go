package scanout

import (
	"time"
)

// Output is one display pipeline: the timing engine (CRTC) driving one
// connected screen, its buffer queue, and its frame clock.
//
// At any moment at most one buffer is pending (committed, completion
// not yet seen) and at most one is displayed. All remaining queue
// entries are free. Both role pointers always refer to distinct queue
// members.
type Output struct {
	name    string
	crtc    uint32
	refresh time.Duration

	buffers []*Buffer
	pending *Buffer // committed, awaiting its completion event
	last    *Buffer // currently on screen

	needsRepaint bool

	// Timestamps on the hardware presentation clock, in nanoseconds.
	// 0 means never.
	lastFrame int64
	nextFrame int64

	// Position in the animation cycle, wrapping at AnimFrames.
	frameNum int

	explicitFencing bool
	commitFence     Fence // out-fence of the last commit, not yet claimed
}

// NewOutput returns an output for the given CRTC. New outputs need a
// repaint: the first commit must program the full configuration.
func NewOutput(name string, crtc uint32, refresh time.Duration) *Output {
	return &Output{
		name:         name,
		crtc:         crtc,
		refresh:      refresh,
		needsRepaint: true,
	}
}

// Name is the output's connector name, e.g. "HDMI-A-1".
func (o *Output) Name() string { return o.name }

// CRTC is the hardware identifier completions are matched against.
func (o *Output) CRTC() uint32 { return o.crtc }

// RefreshInterval is the duration of one frame on this output.
func (o *Output) RefreshInterval() time.Duration { return o.refresh }

// FrameNum is the output's current position in the animation cycle.
func (o *Output) FrameNum() int { return o.frameNum }

// Buffers returns the output's buffer queue.
func (o *Output) Buffers() []*Buffer { return o.buffers }

// AddBuffer appends a buffer to the output's queue.
func (o *Output) AddBuffer(b *Buffer) {
	b.Output = o
	o.buffers = append(o.buffers, b)
}

// SetExplicitFencing enables tracking commit completion through fence
// handles in addition to completion events.
func (o *Output) SetExplicitFencing(on bool) { o.explicitFencing = on }

// ExplicitFencing reports whether explicit fencing is enabled.
func (o *Output) ExplicitFencing() bool { return o.explicitFencing }

// SetCommitFence hands the output the out-fence of the commit that was
// just submitted for it. The previous fence, if unclaimed, is released.
func (o *Output) SetCommitFence(f Fence) {
	replaceFence(&o.commitFence, f)
}

// acquireFree returns a buffer not owned by the hardware. With at most
// two roles occupied and a queue of at least QueueDepth there is always
// one; running out means the queue is misconfigured or a completion was
// lost, which is a scheduling bug and not recoverable.
func (o *Output) acquireFree() *Buffer {
	for _, b := range o.buffers {
		if !b.inUse {
			return b
		}
	}
	panic("scanout: no free buffer for output " + o.name)
}

// Close releases the output's fences and buffers.
func (o *Output) Close() error {
	replaceFence(&o.commitFence, nil)
	for _, b := range o.buffers {
		_ = b.Close()
	}
	return nil
}
