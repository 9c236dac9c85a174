//go:build linux

package session

import (
	"errors"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

const (
	logindService = "org.freedesktop.login1"
	logindManager = "/org/freedesktop/login1"
)

// Logind obtains device nodes from systemd-logind over the system bus.
// The process must run inside the active session on its seat; logind
// then hands out file descriptors without us ever holding the
// privileges to open the node ourselves.
type Logind struct {
	conn    *dbus.Conn
	session dbus.BusObject

	// TakeDevice is keyed by device numbers, so remember them per
	// descriptor for the release call.
	devices map[*os.File]devNum
}

type devNum struct {
	major, minor uint32
}

// NewLogind connects to logind and takes control of the session the
// process runs in.
func NewLogind() (*Logind, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("session: connecting to system bus: %w", err)
	}

	var sessionPath dbus.ObjectPath
	manager := conn.Object(logindService, logindManager)
	err = manager.Call(logindService+".Manager.GetSessionByPID", 0, uint32(os.Getpid())).Store(&sessionPath)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("session: finding logind session: %w", err)
	}

	l := &Logind{
		conn:    conn,
		session: conn.Object(logindService, sessionPath),
		devices: make(map[*os.File]devNum),
	}

	// Make sure we are the foreground session before asking for
	// control; logind refuses TakeDevice otherwise.
	if err := l.call("Activate").Err; err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("session: activating session: %w", err)
	}
	if err := l.call("TakeControl", false).Err; err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("session: taking session control: %w", err)
	}

	return l, nil
}

func (l *Logind) call(method string, args ...interface{}) *dbus.Call {
	return l.session.Call(logindService+".Session."+method, 0, args...)
}

func (l *Logind) OpenDevice(path string) (*os.File, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	num := devNum{
		major: unix.Major(uint64(st.Rdev)),
		minor: unix.Minor(uint64(st.Rdev)),
	}

	var (
		fd       dbus.UnixFD
		inactive bool
	)
	if err := l.call("TakeDevice", num.major, num.minor).Store(&fd, &inactive); err != nil {
		return nil, fmt.Errorf("session: taking device %s: %w", path, err)
	}
	if inactive {
		// A paused descriptor cannot be used for mode setting.
		l.call("ReleaseDevice", num.major, num.minor)
		_ = unix.Close(int(fd))
		return nil, errors.New("session: device is paused: session not active")
	}

	f := os.NewFile(uintptr(fd), path)
	l.devices[f] = num
	return f, nil
}

func (l *Logind) CloseDevice(f *os.File) error {
	if num, ok := l.devices[f]; ok {
		l.call("ReleaseDevice", num.major, num.minor)
		delete(l.devices, f)
	}
	return f.Close()
}

func (l *Logind) Close() error {
	l.call("ReleaseControl")
	return l.conn.Close()
}
