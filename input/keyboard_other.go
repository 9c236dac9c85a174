//go:build !linux

package input

import "errors"

var ErrNotSupported = errors.New("input: not supported")

// Keyboard is only available on Linux.
type Keyboard struct{}

func Open() (*Keyboard, error) {
	return nil, ErrNotSupported
}

func (*Keyboard) ExitRequested() bool { return false }

func (*Keyboard) Close() error { return nil }
