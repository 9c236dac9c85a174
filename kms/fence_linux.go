//go:build linux

package kms

import (
	"os"
	"runtime"
	"unsafe"

	"github.com/BeatGlow/scanout/internal/ioctl"
)

// syncFile is a dma-fence sync_file descriptor handed out by the
// kernel for a completed or in-flight commit. It implements
// scanout.Fence; closing it releases the descriptor.
type syncFile struct {
	f *os.File
}

func newSyncFile(fd int) *syncFile {
	return &syncFile{f: os.NewFile(uintptr(fd), "sync_file")}
}

func (s *syncFile) Close() error {
	return s.f.Close()
}

// SignalTime reports when the fence signaled, in nanoseconds on the
// monotonic clock. It fails if the fence has not signaled yet.
func (s *syncFile) SignalTime() (int64, error) {
	var fence syncFenceInfo
	info := syncFileInfo{
		NumFences:     1,
		SyncFenceInfo: uint64(uintptr(unsafe.Pointer(&fence))),
	}
	if err := ioctl.Do(s.f.Fd(), ioctlSyncFileInfo, unsafe.Pointer(&info)); err != nil {
		return 0, err
	}
	runtime.KeepAlive(&fence)
	return int64(fence.TimestampNs), nil
}
