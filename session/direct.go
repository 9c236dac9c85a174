package session

import "os"

// Direct opens device nodes with plain open(2). This requires the
// caller to have access to the node already, either by running as root
// or through the video group.
type Direct struct{}

// NewDirect returns the direct-open strategy.
func NewDirect() *Direct {
	return &Direct{}
}

func (*Direct) OpenDevice(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, os.ModeDevice)
}

func (*Direct) CloseDevice(f *os.File) error {
	return f.Close()
}

func (*Direct) Close() error {
	return nil
}
