//go:build linux

package kms

import (
	"bytes"
	"fmt"
	"unsafe"
)

// property is one KMS object property: its ID for atomic commits and
// the value it held at probe time.
type property struct {
	id    uint32
	value uint64
}

// propertySet caches an object's properties by name. Property IDs are
// dynamic, so every lookup in an atomic request goes through the cache
// built at probe time.
type propertySet map[string]property

// require fails if any of the named properties is missing. Everything
// the commit path touches is validated once, up front.
func (ps propertySet) require(names ...string) error {
	for _, name := range names {
		if _, ok := ps[name]; !ok {
			return fmt.Errorf("object lacks the %q property", name)
		}
	}
	return nil
}

// objectProperties reads all properties of a KMS object and resolves
// their names.
func (d *Device) objectProperties(objID, objType uint32) (propertySet, error) {
	var ids []uint32
	var values []uint64

	for {
		arg := modeObjGetProperties{ObjID: objID, ObjType: objType}
		if err := d.ioctl(ioctlObjGetProps, unsafe.Pointer(&arg)); err != nil {
			return nil, err
		}

		ids = make([]uint32, arg.CountProps)
		values = make([]uint64, arg.CountProps)

		again := modeObjGetProperties{
			ObjID:      objID,
			ObjType:    objType,
			CountProps: arg.CountProps,
		}
		if len(ids) > 0 {
			again.PropsPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
			again.PropValuesPtr = uint64(uintptr(unsafe.Pointer(&values[0])))
		}
		if err := d.ioctl(ioctlObjGetProps, unsafe.Pointer(&again)); err != nil {
			return nil, err
		}
		if again.CountProps <= arg.CountProps {
			ids = ids[:again.CountProps]
			values = values[:again.CountProps]
			break
		}
	}

	ps := make(propertySet, len(ids))
	for i, id := range ids {
		arg := modeGetProperty{PropID: id}
		if err := d.ioctl(ioctlGetProperty, unsafe.Pointer(&arg)); err != nil {
			return nil, err
		}
		name := arg.Name[:]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		ps[string(name)] = property{id: id, value: values[i]}
	}
	return ps, nil
}
