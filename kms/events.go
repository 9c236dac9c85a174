package kms

import (
	"encoding/binary"
	"time"

	"github.com/BeatGlow/scanout"
)

// Event stream framing, from the kernel's drm_event structures. Events
// arrive on the device node as a header (type, length) followed by a
// type-specific body; a page-flip completion is a drm_event_vblank.
const (
	eventHeaderLen = 8
	vblankEventLen = 32

	eventFlipComplete = 0x02
)

// decodeEvents walks a raw event stream and hands every page-flip
// completion to fn. Unknown event types are skipped by length.
func decodeEvents(buf []byte, fn func(scanout.CompletionEvent)) error {
	for len(buf) > 0 {
		if len(buf) < eventHeaderLen {
			return errTruncatedEvent
		}
		typ := binary.NativeEndian.Uint32(buf[0:4])
		length := int(binary.NativeEndian.Uint32(buf[4:8]))
		if length < eventHeaderLen || length > len(buf) {
			return errTruncatedEvent
		}

		if typ == eventFlipComplete && length >= vblankEventLen {
			// Layout after the header: user_data u64, tv_sec u32,
			// tv_usec u32, sequence u32, crtc_id u32.
			sec := binary.NativeEndian.Uint32(buf[16:20])
			usec := binary.NativeEndian.Uint32(buf[20:24])
			fn(scanout.CompletionEvent{
				Sequence: binary.NativeEndian.Uint32(buf[24:28]),
				CRTC:     binary.NativeEndian.Uint32(buf[28:32]),
				Time:     int64(sec)*int64(time.Second) + int64(usec)*int64(time.Microsecond),
			})
		}
		buf = buf[length:]
	}
	return nil
}
