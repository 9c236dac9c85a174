//go:build linux

package kms

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/BeatGlow/scanout"
)

// dumbBuffer tracks the kernel-side resources behind a scanout.Buffer:
// the GEM handle of the dumb allocation, its mapping, and the
// framebuffer object wrapping it.
type dumbBuffer struct {
	handle uint32
	size   uint64
	pix    []byte
}

// CreateBuffer allocates one dumb buffer sized to the output's mode,
// maps it, and wraps it in a framebuffer object. Dumb buffers are
// linear CPU-writable memory, which is all a software-painted pipeline
// needs.
func (d *Device) CreateBuffer(out *scanout.Output) (*scanout.Buffer, error) {
	p := d.pipes[out.CRTC()]
	if p == nil {
		return nil, ErrUnknownOutput
	}

	create := modeCreateDumb{
		Width:  uint32(p.mode.HDisplay),
		Height: uint32(p.mode.VDisplay),
		BPP:    32,
	}
	if err := d.ioctl(ioctlCreateDumb, unsafe.Pointer(&create)); err != nil {
		return nil, fmt.Errorf("kms: creating dumb buffer: %w", err)
	}

	fb := modeFBCmd2{
		Width:       create.Width,
		Height:      create.Height,
		PixelFormat: fourccXRGB8888,
	}
	fb.Handles[0] = create.Handle
	fb.Pitches[0] = create.Pitch
	if err := d.ioctl(ioctlAddFB2, unsafe.Pointer(&fb)); err != nil {
		destroy := modeDestroyDumb{Handle: create.Handle}
		_ = d.ioctl(ioctlDestroyDumb, unsafe.Pointer(&destroy))
		return nil, fmt.Errorf("kms: creating framebuffer: %w", err)
	}

	mmap := modeMapDumb{Handle: create.Handle}
	if err := d.ioctl(ioctlMapDumb, unsafe.Pointer(&mmap)); err != nil {
		d.destroyBuffer(fb.FBID, &dumbBuffer{handle: create.Handle})
		return nil, fmt.Errorf("kms: mapping dumb buffer: %w", err)
	}
	pix, err := unix.Mmap(int(d.fd), int64(mmap.Offset), int(create.Size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		d.destroyBuffer(fb.FBID, &dumbBuffer{handle: create.Handle})
		return nil, fmt.Errorf("kms: mapping dumb buffer: %w", err)
	}

	d.buffers[fb.FBID] = &dumbBuffer{
		handle: create.Handle,
		size:   create.Size,
		pix:    pix,
	}

	return &scanout.Buffer{
		FB:     fb.FBID,
		Width:  int(create.Width),
		Height: int(create.Height),
		Stride: int(create.Pitch),
		Pix:    pix,
	}, nil
}

func (d *Device) destroyBuffer(fb uint32, b *dumbBuffer) {
	if b.pix != nil {
		_ = unix.Munmap(b.pix)
	}
	if fb != 0 {
		id := fb
		_ = d.ioctl(ioctlRmFB, unsafe.Pointer(&id))
	}
	destroy := modeDestroyDumb{Handle: b.handle}
	_ = d.ioctl(ioctlDestroyDumb, unsafe.Pointer(&destroy))
}
