//go:build linux

package kms

import (
	"context"
	"os"

	"golang.org/x/sys/unix"

	"github.com/BeatGlow/scanout"
)

// WaitEvent implements scanout.Card: it blocks, without a timeout,
// until the device node has completion events to read or ctx is
// cancelled. Cancellation is delivered through a self-pipe so a wait
// with no pending events can still be woken.
func (d *Device) WaitEvent(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		var one [1]byte
		_, _ = unix.Write(d.wakeW, one[:])
	})
	defer stop()

	fds := []unix.PollFd{
		{Fd: int32(d.fd), Events: unix.POLLIN},
		{Fd: int32(d.wakeR), Events: unix.POLLIN},
	}
	for {
		fds[0].Revents, fds[1].Revents = 0, 0

		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("poll", err)
		}

		// Events win over cancellation: a readable device means a
		// commit completed and its dispatch is owed.
		if fds[0].Revents&unix.POLLIN != 0 {
			return nil
		}
		// Error conditions without data mean the device is gone (driver
		// unbind, GPU reset); the owed events will never arrive.
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return ErrDeviceGone
		}
		if fds[1].Revents != 0 {
			d.drainWake()
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

func (d *Device) drainWake() {
	var buf [16]byte
	for {
		n, err := unix.Read(d.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// DispatchEvents implements scanout.Card: it reads whatever events are
// pending and hands each completion to fn, exactly once.
func (d *Device) DispatchEvents(fn func(scanout.CompletionEvent)) error {
	var buf [1024]byte
	n, err := unix.Read(int(d.fd), buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return os.NewSyscallError("read", err)
	}
	return decodeEvents(buf[:n], fn)
}
