// Package session provides privileged access to display device nodes.
//
// Opening a mode-setting device normally requires root. When running
// under a seat manager, the device can instead be requested from
// systemd-logind, which hands over a file descriptor as long as the
// caller owns the active session. Both strategies implement the same
// interface and are chosen once, at construction time.
package session

import "os"

// Session opens and closes display device nodes.
type Session interface {
	// OpenDevice opens the device node at path for read/write.
	OpenDevice(path string) (*os.File, error)

	// CloseDevice returns a device previously obtained from OpenDevice.
	CloseDevice(f *os.File) error

	// Close releases the session itself.
	Close() error
}
