//go:build !linux

package session

import "errors"

var ErrNotSupported = errors.New("session: logind is not supported on this platform")

// Logind is only available on Linux.
type Logind struct{ Direct }

func NewLogind() (*Logind, error) {
	return nil, ErrNotSupported
}
