//go:build linux

package input

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Keyboard reads exit requests from a raw-mode, non-blocking stdin.
type Keyboard struct {
	fd    int
	saved *term.State
}

// Open puts stdin into raw mode. Close restores it.
func Open() (*Keyboard, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = term.Restore(fd, saved)
		return nil, err
	}

	return &Keyboard{fd: fd, saved: saved}, nil
}

// ExitRequested drains any pending input and reports whether ESC, q or
// ctrl-C was among it. It never blocks.
func (k *Keyboard) ExitRequested() bool {
	var buf [16]byte
	exit := false
	for {
		n, err := unix.Read(k.fd, buf[:])
		if n <= 0 || err != nil {
			return exit
		}
		for _, b := range buf[:n] {
			switch b {
			case 0x1b, 'q', 0x03: // ESC, q, ctrl-C
				exit = true
			}
		}
	}
}

// Close restores the terminal state.
func (k *Keyboard) Close() error {
	_ = unix.SetNonblock(k.fd, false)
	return term.Restore(k.fd, k.saved)
}
