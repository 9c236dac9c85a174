//go:build linux

package kms

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// waitDevice builds a Device whose fd is the read end of a fresh pipe,
// which polls exactly like a device node. Callers own the returned
// write end.
func waitDevice(t *testing.T) (*Device, int) {
	t.Helper()

	var dev [2]int
	if err := unix.Pipe2(dev[:], unix.O_CLOEXEC); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { unix.Close(dev[0]) })

	var wake [2]int
	if err := unix.Pipe2(wake[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		unix.Close(wake[0])
		unix.Close(wake[1])
	})

	return &Device{fd: uintptr(dev[0]), wakeR: wake[0], wakeW: wake[1]}, dev[1]
}

func TestWaitEventDeviceGone(t *testing.T) {
	d, devW := waitDevice(t)

	// Closing the write end leaves the fd in a permanent POLLHUP state
	// with no data, like a device node after a driver unbind. The wait
	// must fail rather than spin.
	unix.Close(devW)

	done := make(chan error, 1)
	go func() { done <- d.WaitEvent(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrDeviceGone) {
			t.Errorf("expected ErrDeviceGone, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitEvent did not return after the device fd died")
	}
}

func TestWaitEventReadable(t *testing.T) {
	d, devW := waitDevice(t)
	defer unix.Close(devW)

	if _, err := unix.Write(devW, []byte{0}); err != nil {
		t.Fatal(err)
	}
	if err := d.WaitEvent(context.Background()); err != nil {
		t.Errorf("expected a readable device to end the wait, got %v", err)
	}
}

func TestWaitEventCancelled(t *testing.T) {
	d, devW := waitDevice(t)
	defer unix.Close(devW)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- d.WaitEvent(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitEvent did not observe cancellation")
	}
}
