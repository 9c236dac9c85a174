// Package kms drives displays through the Linux kernel mode-setting
// API, implementing scanout.Card on top of the DRM ioctl interface.
//
// A Device is one /dev/dri primary node. Probing builds one
// plane → CRTC → connector pipeline per connected connector and exposes
// each as a scanout.Output; buffers are kernel dumb buffers mapped into
// our address space and wrapped in framebuffer objects. Commits use the
// atomic API in non-blocking mode with page-flip events, so every
// commit produces one completion event per CRTC on the device node.
package kms

import "errors"

// Errors
var (
	ErrNoDevice       = errors.New("kms: no usable mode-setting device")
	ErrNoOutputs      = errors.New("kms: no connected outputs")
	ErrUnknownOutput  = errors.New("kms: output does not belong to this device")
	ErrDeviceGone     = errors.New("kms: device gone")
	errTruncatedEvent = errors.New("kms: truncated event stream")
)
