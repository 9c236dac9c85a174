//go:build linux

package kms

import (
	"unsafe"

	"github.com/BeatGlow/scanout/internal/ioctl"
)

// Definitions from the kernel DRM uAPI (drm.h, drm_mode.h,
// drm_fourcc.h) and the sync_file uAPI (linux/sync_file.h). Only the
// parts the pipeline needs are carried here.

const drmIoctlBase = 'd'

var (
	ioctlGetCap        = ioctl.IOWR(drmIoctlBase, 0x0c, unsafe.Sizeof(drmGetCap{}))
	ioctlSetClientCap  = ioctl.IOW(drmIoctlBase, 0x0d, unsafe.Sizeof(drmSetClientCap{}))
	ioctlGetResources  = ioctl.IOWR(drmIoctlBase, 0xa0, unsafe.Sizeof(modeCardRes{}))
	ioctlGetEncoder    = ioctl.IOWR(drmIoctlBase, 0xa6, unsafe.Sizeof(modeGetEncoder{}))
	ioctlGetConnector  = ioctl.IOWR(drmIoctlBase, 0xa7, unsafe.Sizeof(modeGetConnector{}))
	ioctlGetProperty   = ioctl.IOWR(drmIoctlBase, 0xaa, unsafe.Sizeof(modeGetProperty{}))
	ioctlRmFB          = ioctl.IOWR(drmIoctlBase, 0xaf, unsafe.Sizeof(uint32(0)))
	ioctlCreateDumb    = ioctl.IOWR(drmIoctlBase, 0xb2, unsafe.Sizeof(modeCreateDumb{}))
	ioctlMapDumb       = ioctl.IOWR(drmIoctlBase, 0xb3, unsafe.Sizeof(modeMapDumb{}))
	ioctlDestroyDumb   = ioctl.IOWR(drmIoctlBase, 0xb4, unsafe.Sizeof(modeDestroyDumb{}))
	ioctlGetPlaneRes   = ioctl.IOWR(drmIoctlBase, 0xb5, unsafe.Sizeof(modeGetPlaneRes{}))
	ioctlGetPlane      = ioctl.IOWR(drmIoctlBase, 0xb6, unsafe.Sizeof(modeGetPlane{}))
	ioctlAddFB2        = ioctl.IOWR(drmIoctlBase, 0xb8, unsafe.Sizeof(modeFBCmd2{}))
	ioctlObjGetProps   = ioctl.IOWR(drmIoctlBase, 0xb9, unsafe.Sizeof(modeObjGetProperties{}))
	ioctlAtomic        = ioctl.IOWR(drmIoctlBase, 0xbc, unsafe.Sizeof(modeAtomic{}))
	ioctlCreateBlob    = ioctl.IOWR(drmIoctlBase, 0xbd, unsafe.Sizeof(modeCreateBlob{}))
	ioctlDestroyBlob   = ioctl.IOWR(drmIoctlBase, 0xbe, unsafe.Sizeof(modeDestroyBlob{}))
	ioctlSyncFileInfo  = ioctl.IOWR('>', 4, unsafe.Sizeof(syncFileInfo{}))
)

// Device capabilities.
const (
	capDumbBuffer         = 0x01
	capTimestampMonotonic = 0x06
	capCRTCInVblankEvent  = 0x12
)

// Client capabilities.
const (
	clientCapUniversalPlanes = 2
	clientCapAtomic          = 3
)

// Atomic commit flags.
const (
	flagPageFlipEvent = 0x0001
	flagNonblock      = 0x0200
	flagAllowModeset  = 0x0400
)

// Object types for property enumeration.
const (
	objectCRTC      = 0xcccccccc
	objectConnector = 0xc0c0c0c0
	objectPlane     = 0xeeeeeeee
)

const (
	connectionConnected = 1
	modeTypePreferred   = 1 << 3
	planeTypePrimary    = 1
)

// fourccXRGB8888 is 'XR24': 32-bit XRGB, the one format every primary
// plane accepts.
const fourccXRGB8888 = 0x34325258

type drmGetCap struct {
	Capability uint64
	Value      uint64
}

type drmSetClientCap struct {
	Capability uint64
	Value      uint64
}

type modeCardRes struct {
	FBIDPtr         uint64
	CRTCIDPtr       uint64
	ConnectorIDPtr  uint64
	EncoderIDPtr    uint64
	CountFBs        uint32
	CountCRTCs      uint32
	CountConnectors uint32
	CountEncoders   uint32
	MinWidth        uint32
	MaxWidth        uint32
	MinHeight       uint32
	MaxHeight       uint32
}

type modeInfo struct {
	Clock      uint32
	HDisplay   uint16
	HSyncStart uint16
	HSyncEnd   uint16
	HTotal     uint16
	HSkew      uint16
	VDisplay   uint16
	VSyncStart uint16
	VSyncEnd   uint16
	VTotal     uint16
	VScan      uint16
	VRefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

type modeGetConnector struct {
	EncodersPtr     uint64
	ModesPtr        uint64
	PropsPtr        uint64
	PropValuesPtr   uint64
	CountModes      uint32
	CountProps      uint32
	CountEncoders   uint32
	EncoderID       uint32
	ConnectorID     uint32
	ConnectorType   uint32
	ConnectorTypeID uint32
	Connection      uint32
	MmWidth         uint32
	MmHeight        uint32
	Subpixel        uint32
	_               uint32
}

type modeGetEncoder struct {
	EncoderID      uint32
	EncoderType    uint32
	CrtcID         uint32
	PossibleCrtcs  uint32
	PossibleClones uint32
}

type modeGetPlaneRes struct {
	PlaneIDPtr  uint64
	CountPlanes uint32
	_           uint32
}

type modeGetPlane struct {
	PlaneID          uint32
	CrtcID           uint32
	FBID             uint32
	PossibleCrtcs    uint32
	GammaSize        uint32
	CountFormatTypes uint32
	FormatTypePtr    uint64
}

type modeObjGetProperties struct {
	PropsPtr      uint64
	PropValuesPtr uint64
	CountProps    uint32
	ObjID         uint32
	ObjType       uint32
	_             uint32
}

type modeGetProperty struct {
	ValuesPtr      uint64
	EnumBlobPtr    uint64
	PropID         uint32
	Flags          uint32
	Name           [32]byte
	CountValues    uint32
	CountEnumBlobs uint32
}

type modeCreateDumb struct {
	Height uint32
	Width  uint32
	BPP    uint32
	Flags  uint32
	Handle uint32
	Pitch  uint32
	Size   uint64
}

type modeMapDumb struct {
	Handle uint32
	_      uint32
	Offset uint64
}

type modeDestroyDumb struct {
	Handle uint32
}

type modeFBCmd2 struct {
	FBID        uint32
	Width       uint32
	Height      uint32
	PixelFormat uint32
	Flags       uint32
	Handles     [4]uint32
	Pitches     [4]uint32
	Offsets     [4]uint32
	Modifier    [4]uint64
}

type modeAtomic struct {
	Flags         uint32
	CountObjs     uint32
	ObjsPtr       uint64
	CountPropsPtr uint64
	PropsPtr      uint64
	PropValuesPtr uint64
	Reserved      uint64
	UserData      uint64
}

type modeCreateBlob struct {
	Data   uint64
	Length uint32
	BlobID uint32
}

type modeDestroyBlob struct {
	BlobID uint32
}

type syncFileInfo struct {
	Name          [32]byte
	Status        int32
	Flags         uint32
	NumFences     uint32
	_             uint32
	SyncFenceInfo uint64
}

type syncFenceInfo struct {
	ObjName     [32]byte
	DriverName  [32]byte
	Status      int32
	Flags       uint32
	TimestampNs uint64
}

// connectorTypeNames translates connector types into the familiar
// user-facing prefixes.
var connectorTypeNames = map[uint32]string{
	0:  "Unknown",
	1:  "VGA",
	2:  "DVI-I",
	3:  "DVI-D",
	4:  "DVI-A",
	5:  "Composite",
	6:  "SVIDEO",
	7:  "LVDS",
	8:  "Component",
	9:  "DIN",
	10: "DP",
	11: "HDMI-A",
	12: "HDMI-B",
	13: "TV",
	14: "eDP",
	15: "Virtual",
	16: "DSI",
	17: "DPI",
	18: "Writeback",
	19: "SPI",
	20: "USB",
}
