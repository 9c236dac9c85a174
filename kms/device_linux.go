//go:build linux

package kms

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/BeatGlow/scanout"
	"github.com/BeatGlow/scanout/internal/ioctl"
	"github.com/BeatGlow/scanout/session"
)

// Device is one DRM primary node with atomic mode-setting capability.
type Device struct {
	sess session.Session
	log  *slog.Logger
	f    *os.File
	fd   uintptr
	path string

	fencing bool
	outputs []*scanout.Output
	pipes   map[uint32]*pipe       // by CRTC ID
	buffers map[uint32]*dumbBuffer // by framebuffer ID

	// Self-pipe used to interrupt WaitEvent on cancellation.
	wakeR, wakeW int
}

// pipe is one plane → CRTC → connector chain. We only ever use the
// primary plane, full-screen, with the mode that was preferred by the
// connector.
type pipe struct {
	out       *scanout.Output
	connector uint32
	crtc      uint32
	plane     uint32

	mode     modeInfo
	modeBlob uint32

	planeProps propertySet
	crtcProps  propertySet
	connProps  propertySet
	fencing    bool
}

// Probe opens the first usable mode-setting device under /dev/dri.
// Non-KMS cards (render-only GPUs also expose primary nodes) are
// skipped.
func Probe(sess session.Session, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := filepath.Glob("/dev/dri/card*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	for _, path := range paths {
		d, err := Open(path, sess, logger)
		if err != nil {
			logger.Debug("skipping device", "path", path, "err", err)
			continue
		}
		return d, nil
	}
	return nil, ErrNoDevice
}

// Open opens a specific device node and probes its outputs.
func Open(path string, sess session.Session, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := sess.OpenDevice(path)
	if err != nil {
		return nil, err
	}

	d := &Device{
		sess:    sess,
		log:     logger,
		f:       f,
		fd:      f.Fd(),
		path:    path,
		pipes:   make(map[uint32]*pipe),
		buffers: make(map[uint32]*dumbBuffer),
		wakeR:   -1,
		wakeW:   -1,
	}

	if err = d.setup(); err != nil {
		d.teardown()
		return nil, err
	}
	return d, nil
}

func (d *Device) setup() error {
	// Dumb buffers carry our frames; CRTC IDs in events let us match
	// completions to outputs; monotonic timestamps make the completion
	// times comparable to our own clock.
	for _, c := range []struct {
		cap  uint64
		name string
	}{
		{capDumbBuffer, "dumb buffers"},
		{capCRTCInVblankEvent, "CRTC in vblank event"},
		{capTimestampMonotonic, "monotonic timestamps"},
	} {
		arg := drmGetCap{Capability: c.cap}
		if err := d.ioctl(ioctlGetCap, unsafe.Pointer(&arg)); err != nil || arg.Value == 0 {
			return fmt.Errorf("kms: %s: device lacks %s", d.path, c.name)
		}
	}

	// Universal planes first: without it primary planes are invisible
	// to us, and the atomic cap implies it anyway.
	for _, cap := range []uint64{clientCapUniversalPlanes, clientCapAtomic} {
		arg := drmSetClientCap{Capability: cap, Value: 1}
		if err := d.ioctl(ioctlSetClientCap, unsafe.Pointer(&arg)); err != nil {
			return fmt.Errorf("kms: %s: no atomic mode setting: %w", d.path, err)
		}
	}

	crtcs, connectors, err := d.getResources()
	if err != nil {
		return fmt.Errorf("kms: %s: reading resources: %w", d.path, err)
	}
	planes, err := d.getPlaneResources()
	if err != nil {
		return fmt.Errorf("kms: %s: reading planes: %w", d.path, err)
	}

	for _, connID := range connectors {
		if err := d.addOutput(crtcs, planes, connID); err != nil {
			return err
		}
	}
	if len(d.outputs) == 0 {
		return fmt.Errorf("%w on %s", ErrNoOutputs, d.path)
	}

	// Explicit fencing is all-or-nothing across the device: mixing
	// fenced and unfenced pipes in one commit is not worth the trouble.
	d.fencing = true
	for _, p := range d.pipes {
		if !p.fencing {
			d.fencing = false
			break
		}
	}
	for _, p := range d.pipes {
		p.out.SetExplicitFencing(d.fencing)
	}

	var wake [2]int
	if err := unix.Pipe2(wake[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return os.NewSyscallError("pipe2", err)
	}
	d.wakeR, d.wakeW = wake[0], wake[1]

	d.log.Info("using device", "path", d.path, "outputs", len(d.outputs), "explicit_fencing", d.fencing)
	return nil
}

// addOutput builds a pipe for a connector, skipping it when nothing is
// plugged in.
func (d *Device) addOutput(crtcs, planes []uint32, connID uint32) error {
	conn, modes, encoders, err := d.getConnector(connID)
	if err != nil {
		return fmt.Errorf("kms: connector %d: %w", connID, err)
	}
	if conn.Connection != connectionConnected || len(modes) == 0 {
		return nil
	}

	mode := pickMode(modes)
	crtc, err := d.pickCRTC(crtcs, conn.EncoderID, encoders)
	if err != nil {
		return fmt.Errorf("kms: connector %d: %w", connID, err)
	}
	plane, err := d.pickPrimaryPlane(crtcs, planes, crtc)
	if err != nil {
		return fmt.Errorf("kms: connector %d: %w", connID, err)
	}

	p := &pipe{
		connector: connID,
		crtc:      crtc,
		plane:     plane,
		mode:      mode,
	}

	if p.planeProps, err = d.objectProperties(plane, objectPlane); err != nil {
		return err
	}
	if p.crtcProps, err = d.objectProperties(crtc, objectCRTC); err != nil {
		return err
	}
	if p.connProps, err = d.objectProperties(connID, objectConnector); err != nil {
		return err
	}
	err = p.planeProps.require("FB_ID", "CRTC_ID",
		"SRC_X", "SRC_Y", "SRC_W", "SRC_H",
		"CRTC_X", "CRTC_Y", "CRTC_W", "CRTC_H")
	if err == nil {
		err = p.crtcProps.require("MODE_ID", "ACTIVE")
	}
	if err == nil {
		err = p.connProps.require("CRTC_ID")
	}
	if err != nil {
		return fmt.Errorf("kms: connector %d: %w", connID, err)
	}
	_, p.fencing = p.crtcProps["OUT_FENCE_PTR"]

	blob := modeCreateBlob{
		Data:   uint64(uintptr(unsafe.Pointer(&p.mode))),
		Length: uint32(unsafe.Sizeof(p.mode)),
	}
	if err := d.ioctl(ioctlCreateBlob, unsafe.Pointer(&blob)); err != nil {
		return fmt.Errorf("kms: connector %d: creating mode blob: %w", connID, err)
	}
	p.modeBlob = blob.BlobID

	name := connectorName(conn.ConnectorType, conn.ConnectorTypeID)
	p.out = scanout.NewOutput(name, crtc, modeRefreshInterval(&mode))

	d.pipes[crtc] = p
	d.outputs = append(d.outputs, p.out)
	d.log.Info("found output",
		"output", name,
		"crtc", crtc,
		"plane", plane,
		"mode", fmt.Sprintf("%dx%d", mode.HDisplay, mode.VDisplay),
		"refresh", p.out.RefreshInterval())
	return nil
}

// pickMode prefers the connector's preferred mode and falls back to the
// first one advertised.
func pickMode(modes []modeInfo) modeInfo {
	for _, m := range modes {
		if m.Type&modeTypePreferred != 0 {
			return m
		}
	}
	return modes[0]
}

// pickCRTC prefers the CRTC already driving the connector, then any
// unclaimed CRTC one of the connector's encoders can reach.
func (d *Device) pickCRTC(crtcs []uint32, currentEncoder uint32, encoders []uint32) (uint32, error) {
	if currentEncoder != 0 {
		enc := modeGetEncoder{EncoderID: currentEncoder}
		if err := d.ioctl(ioctlGetEncoder, unsafe.Pointer(&enc)); err == nil {
			if enc.CrtcID != 0 && d.pipes[enc.CrtcID] == nil {
				return enc.CrtcID, nil
			}
		}
	}

	for _, encID := range encoders {
		enc := modeGetEncoder{EncoderID: encID}
		if err := d.ioctl(ioctlGetEncoder, unsafe.Pointer(&enc)); err != nil {
			continue
		}
		for i, crtc := range crtcs {
			if enc.PossibleCrtcs&(1<<uint(i)) == 0 || d.pipes[crtc] != nil {
				continue
			}
			return crtc, nil
		}
	}
	return 0, fmt.Errorf("no available CRTC")
}

// pickPrimaryPlane finds the primary plane that can feed the CRTC.
func (d *Device) pickPrimaryPlane(crtcs, planes []uint32, crtc uint32) (uint32, error) {
	crtcIndex := -1
	for i, id := range crtcs {
		if id == crtc {
			crtcIndex = i
			break
		}
	}
	if crtcIndex < 0 {
		return 0, fmt.Errorf("CRTC %d not in resources", crtc)
	}

	for _, planeID := range planes {
		arg := modeGetPlane{PlaneID: planeID}
		if err := d.ioctl(ioctlGetPlane, unsafe.Pointer(&arg)); err != nil {
			continue
		}
		if arg.PossibleCrtcs&(1<<uint(crtcIndex)) == 0 {
			continue
		}
		props, err := d.objectProperties(planeID, objectPlane)
		if err != nil {
			continue
		}
		if typ, ok := props["type"]; ok && typ.value == planeTypePrimary {
			return planeID, nil
		}
	}
	return 0, fmt.Errorf("no primary plane for CRTC %d", crtc)
}

// Outputs returns the device's connected outputs.
func (d *Device) Outputs() []*scanout.Output {
	return d.outputs
}

// Now implements scanout.Card: the kernel stamps completion events with
// CLOCK_MONOTONIC, so that is the presentation clock.
func (d *Device) Now() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return ts.Nano()
}

// Close destroys all buffers and outputs and returns the device node.
func (d *Device) Close() error {
	for _, out := range d.outputs {
		_ = out.Close()
	}
	d.teardown()
	return nil
}

func (d *Device) teardown() {
	for fb, b := range d.buffers {
		d.destroyBuffer(fb, b)
	}
	d.buffers = map[uint32]*dumbBuffer{}

	for _, p := range d.pipes {
		if p.modeBlob != 0 {
			arg := modeDestroyBlob{BlobID: p.modeBlob}
			_ = d.ioctl(ioctlDestroyBlob, unsafe.Pointer(&arg))
			p.modeBlob = 0
		}
	}

	if d.wakeR >= 0 {
		_ = unix.Close(d.wakeR)
		_ = unix.Close(d.wakeW)
		d.wakeR, d.wakeW = -1, -1
	}
	if d.f != nil {
		_ = d.sess.CloseDevice(d.f)
		d.f = nil
	}
}

func (d *Device) ioctl(cmd ioctl.Command, arg unsafe.Pointer) error {
	return ioctl.Do(d.fd, cmd, arg)
}

// getResources enumerates CRTC and connector IDs, re-querying until the
// counts are stable (hotplug can race the two calls).
func (d *Device) getResources() (crtcs, connectors []uint32, err error) {
	for {
		var res modeCardRes
		if err = d.ioctl(ioctlGetResources, unsafe.Pointer(&res)); err != nil {
			return nil, nil, err
		}

		crtcs = make([]uint32, res.CountCRTCs)
		connectors = make([]uint32, res.CountConnectors)

		again := modeCardRes{
			CountCRTCs:      res.CountCRTCs,
			CountConnectors: res.CountConnectors,
		}
		if len(crtcs) > 0 {
			again.CRTCIDPtr = uint64(uintptr(unsafe.Pointer(&crtcs[0])))
		}
		if len(connectors) > 0 {
			again.ConnectorIDPtr = uint64(uintptr(unsafe.Pointer(&connectors[0])))
		}
		if err = d.ioctl(ioctlGetResources, unsafe.Pointer(&again)); err != nil {
			return nil, nil, err
		}
		if again.CountCRTCs <= res.CountCRTCs && again.CountConnectors <= res.CountConnectors {
			return crtcs[:again.CountCRTCs], connectors[:again.CountConnectors], nil
		}
	}
}

func (d *Device) getPlaneResources() ([]uint32, error) {
	for {
		var res modeGetPlaneRes
		if err := d.ioctl(ioctlGetPlaneRes, unsafe.Pointer(&res)); err != nil {
			return nil, err
		}
		planes := make([]uint32, res.CountPlanes)

		again := modeGetPlaneRes{CountPlanes: res.CountPlanes}
		if len(planes) > 0 {
			again.PlaneIDPtr = uint64(uintptr(unsafe.Pointer(&planes[0])))
		}
		if err := d.ioctl(ioctlGetPlaneRes, unsafe.Pointer(&again)); err != nil {
			return nil, err
		}
		if again.CountPlanes <= res.CountPlanes {
			return planes[:again.CountPlanes], nil
		}
	}
}

func (d *Device) getConnector(id uint32) (conn modeGetConnector, modes []modeInfo, encoders []uint32, err error) {
	for {
		conn = modeGetConnector{ConnectorID: id}
		if err = d.ioctl(ioctlGetConnector, unsafe.Pointer(&conn)); err != nil {
			return
		}

		modes = make([]modeInfo, conn.CountModes)
		encoders = make([]uint32, conn.CountEncoders)

		again := modeGetConnector{
			ConnectorID:   id,
			CountModes:    conn.CountModes,
			CountEncoders: conn.CountEncoders,
		}
		if len(modes) > 0 {
			again.ModesPtr = uint64(uintptr(unsafe.Pointer(&modes[0])))
		}
		if len(encoders) > 0 {
			again.EncodersPtr = uint64(uintptr(unsafe.Pointer(&encoders[0])))
		}
		if err = d.ioctl(ioctlGetConnector, unsafe.Pointer(&again)); err != nil {
			return
		}
		if again.CountModes <= conn.CountModes && again.CountEncoders <= conn.CountEncoders {
			conn = again
			modes = modes[:again.CountModes]
			encoders = encoders[:again.CountEncoders]
			return
		}
	}
}

func connectorName(typ, typeID uint32) string {
	name, ok := connectorTypeNames[typ]
	if !ok {
		name = "Unknown"
	}
	return fmt.Sprintf("%s-%d", name, typeID)
}

// modeRefreshInterval derives the frame duration from the mode's pixel
// clock; the rounded vrefresh field loses too much precision for frame
// pacing.
func modeRefreshInterval(m *modeInfo) time.Duration {
	num := int64(m.Clock) * 1000 // pixel clock in Hz
	den := int64(m.HTotal) * int64(m.VTotal)
	if num == 0 || den == 0 {
		return time.Second / 60
	}
	return time.Duration(den * int64(time.Second) / num)
}
