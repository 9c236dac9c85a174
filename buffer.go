package scanout

import (
	"image"

	"github.com/BeatGlow/scanout/pixel"
)

// Buffer is one framebuffer in an output's queue.
//
// A buffer is FREE until the scheduler claims it for a repaint, PENDING
// once it has been committed, and DISPLAYED from the moment the
// completion event for that commit arrives until the next completion
// demotes it back to FREE. Buffers are created at startup and destroyed
// at shutdown; the scheduler only ever borrows them.
type Buffer struct {
	// Output this buffer belongs to.
	Output *Output

	// FB is the framebuffer object ID handed to the display hardware.
	// 0 is never a valid ID.
	FB uint32

	// Pixel storage: a CPU mapping in XRGB8888 with the given
	// dimensions and stride in bytes.
	Width  int
	Height int
	Stride int
	Pix    []byte

	inUse        bool
	displayFence Fence // signals when this buffer reached the screen
}

// InUse reports whether the buffer is currently owned by the hardware,
// either pending or displayed.
func (b *Buffer) InUse() bool {
	return b.inUse
}

// Image returns a draw target over the buffer's pixel storage.
func (b *Buffer) Image() *pixel.XRGBImage {
	return &pixel.XRGBImage{
		Rect:   image.Rect(0, 0, b.Width, b.Height),
		Pix:    b.Pix,
		Stride: b.Stride,
	}
}

func (b *Buffer) setDisplayFence(f Fence) {
	replaceFence(&b.displayFence, f)
}

// Close releases the buffer's display fence. The backing storage is
// owned by the backend that allocated it.
func (b *Buffer) Close() error {
	replaceFence(&b.displayFence, nil)
	return nil
}
