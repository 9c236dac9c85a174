// Package input polls the controlling terminal for an exit request.
//
// Running a scan-out pipeline takes over the screen, so SIGINT may be
// hard to deliver without a visible terminal; polling the keyboard for
// ESC gives the user a second way out. The poller is optional: the
// scheduler runs fine without it.
package input

import "errors"

// ErrNotTerminal is returned when stdin is not an interactive terminal.
var ErrNotTerminal = errors.New("input: stdin is not a terminal")
