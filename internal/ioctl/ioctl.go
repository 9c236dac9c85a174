package ioctl

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mode is the IOCTL data direction.
type Mode uint8

// Directions, matching the kernel's _IOC_* encoding.
const (
	None  Mode = 0
	Write Mode = 1
	Read  Mode = 2
)

// Command to be sent over ioctl.
type Command uintptr

func (c Command) String() string {
	var (
		mode = Mode(c >> 30 & 0x03)
		size = c >> 16 & 0x3fff
		cmd  = c & 0xffff
		str  string
	)
	if mode&Write > 0 {
		str += " write"
	}
	if mode&Read > 0 {
		str += " read"
	}
	return fmt.Sprintf("ioctl%s (%d bytes) 0x%04x", str, size, uintptr(cmd))
}

// Encode an ioctl command from direction, argument size, type and
// number.
func Encode(mode Mode, size uint16, typ, nr uintptr) Command {
	return Command(mode)<<30 | Command(size)<<16 | Command(typ)<<8 | Command(nr)
}

// IO encodes a command without an argument.
func IO(typ, nr uintptr) Command {
	return Encode(None, 0, typ, nr)
}

// IOW encodes a command whose argument is written to the kernel.
func IOW(typ, nr, size uintptr) Command {
	return Encode(Write, uint16(size), typ, nr)
}

// IOR encodes a command whose argument is read back from the kernel.
func IOR(typ, nr, size uintptr) Command {
	return Encode(Read, uint16(size), typ, nr)
}

// IOWR encodes a command whose argument goes both ways.
func IOWR(typ, nr, size uintptr) Command {
	return Encode(Read|Write, uint16(size), typ, nr)
}

// Do executes the ioctl call, retrying while the kernel asks us to.
func Do(fd uintptr, command Command, ptr unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(command), uintptr(ptr))
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		default:
			return fmt.Errorf("%s failed: %v", command, errno)
		}
	}
}
