//go:build !linux

package kms

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BeatGlow/scanout"
	"github.com/BeatGlow/scanout/session"
)

var ErrNotSupported = errors.New("kms: not supported on this platform")

// Device is only functional on Linux.
type Device struct{}

func Probe(_ session.Session, _ *slog.Logger) (*Device, error) {
	return nil, ErrNotSupported
}

func Open(_ string, _ session.Session, _ *slog.Logger) (*Device, error) {
	return nil, ErrNotSupported
}

func (*Device) Outputs() []*scanout.Output { return nil }

func (*Device) CreateBuffer(_ *scanout.Output) (*scanout.Buffer, error) {
	return nil, ErrNotSupported
}

func (*Device) Commit(_ *scanout.Request, _ bool) error { return ErrNotSupported }

func (*Device) WaitEvent(_ context.Context) error { return ErrNotSupported }

func (*Device) DispatchEvents(_ func(scanout.CompletionEvent)) error { return ErrNotSupported }

func (*Device) Now() int64 { return 0 }

func (*Device) Close() error { return nil }
