//go:build linux

package kms

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/BeatGlow/scanout"
)

// atomicBuilder accumulates the object/property/value arrays the atomic
// ioctl consumes. Properties belong to the most recently begun object.
type atomicBuilder struct {
	objs       []uint32
	countProps []uint32
	props      []uint32
	values     []uint64
}

func (b *atomicBuilder) object(id uint32) {
	b.objs = append(b.objs, id)
	b.countProps = append(b.countProps, 0)
}

func (b *atomicBuilder) prop(ps propertySet, name string, value uint64) {
	p, ok := ps[name]
	if !ok {
		// Validated at probe time; getting here is a programming error.
		panic("kms: unknown property " + name)
	}
	b.props = append(b.props, p.id)
	b.values = append(b.values, value)
	b.countProps[len(b.countProps)-1]++
}

// Commit implements scanout.Card. The whole request is submitted as one
// non-blocking atomic commit with page-flip events: it either applies
// to every output in the request or fails outright, and the kernel
// reports one completion event per CRTC once the new state scans out.
func (d *Device) Commit(req *scanout.Request, allowModeset bool) error {
	updates := req.Updates()
	if len(updates) == 0 {
		return nil
	}

	var b atomicBuilder

	// OUT_FENCE_PTR targets; the kernel writes a 32-bit fence FD into
	// each of these during the ioctl.
	fenceFDs := make([]int32, len(updates))
	for i := range fenceFDs {
		fenceFDs[i] = -1
	}

	for i, up := range updates {
		p := d.pipes[up.Output.CRTC()]
		if p == nil {
			return fmt.Errorf("%w: CRTC %d", ErrUnknownOutput, up.Output.CRTC())
		}

		w, h := uint64(p.mode.HDisplay), uint64(p.mode.VDisplay)

		// The full plane state goes into every request; re-setting an
		// unchanged property is free, and it keeps the request
		// self-contained. Only the ALLOW_MODESET flag is conditional.
		b.object(p.plane)
		b.prop(p.planeProps, "FB_ID", uint64(up.Buffer.FB))
		b.prop(p.planeProps, "CRTC_ID", uint64(p.crtc))
		b.prop(p.planeProps, "SRC_X", 0)
		b.prop(p.planeProps, "SRC_Y", 0)
		b.prop(p.planeProps, "SRC_W", w<<16) // 16.16 fixed point
		b.prop(p.planeProps, "SRC_H", h<<16)
		b.prop(p.planeProps, "CRTC_X", 0)
		b.prop(p.planeProps, "CRTC_Y", 0)
		b.prop(p.planeProps, "CRTC_W", w)
		b.prop(p.planeProps, "CRTC_H", h)

		b.object(p.crtc)
		b.prop(p.crtcProps, "MODE_ID", uint64(p.modeBlob))
		b.prop(p.crtcProps, "ACTIVE", 1)
		if d.fencing {
			b.prop(p.crtcProps, "OUT_FENCE_PTR", uint64(uintptr(unsafe.Pointer(&fenceFDs[i]))))
		}

		b.object(p.connector)
		b.prop(p.connProps, "CRTC_ID", uint64(p.crtc))
	}

	flags := uint32(flagPageFlipEvent | flagNonblock)
	if allowModeset {
		flags |= flagAllowModeset
	}

	arg := modeAtomic{
		Flags:         flags,
		CountObjs:     uint32(len(b.objs)),
		ObjsPtr:       uint64(uintptr(unsafe.Pointer(&b.objs[0]))),
		CountPropsPtr: uint64(uintptr(unsafe.Pointer(&b.countProps[0]))),
		PropsPtr:      uint64(uintptr(unsafe.Pointer(&b.props[0]))),
		PropValuesPtr: uint64(uintptr(unsafe.Pointer(&b.values[0]))),
	}
	err := d.ioctl(ioctlAtomic, unsafe.Pointer(&arg))
	runtime.KeepAlive(&b)
	runtime.KeepAlive(fenceFDs)
	if err != nil {
		return fmt.Errorf("kms: atomic commit: %w", err)
	}

	if d.fencing {
		for i, up := range updates {
			if fenceFDs[i] >= 0 {
				up.Output.SetCommitFence(newSyncFile(int(fenceFDs[i])))
			}
		}
	}
	return nil
}
