//go:build linux

package kms

import "testing"

func TestAtomicBuilderAccounting(t *testing.T) {
	plane := propertySet{
		"FB_ID":   {id: 10},
		"CRTC_ID": {id: 11},
	}
	crtc := propertySet{
		"MODE_ID": {id: 20},
		"ACTIVE":  {id: 21},
	}

	var b atomicBuilder
	b.object(5)
	b.prop(plane, "FB_ID", 100)
	b.prop(plane, "CRTC_ID", 7)
	b.object(7)
	b.prop(crtc, "ACTIVE", 1)

	if want := []uint32{5, 7}; len(b.objs) != 2 || b.objs[0] != want[0] || b.objs[1] != want[1] {
		t.Errorf("expected objects %v, got %v", want, b.objs)
	}
	if len(b.countProps) != 2 || b.countProps[0] != 2 || b.countProps[1] != 1 {
		t.Errorf("expected per-object counts [2 1], got %v", b.countProps)
	}
	if len(b.props) != 3 || b.props[0] != 10 || b.props[1] != 11 || b.props[2] != 21 {
		t.Errorf("expected property IDs [10 11 21], got %v", b.props)
	}
	if len(b.values) != 3 || b.values[0] != 100 || b.values[1] != 7 || b.values[2] != 1 {
		t.Errorf("expected values [100 7 1], got %v", b.values)
	}
}

func TestAtomicBuilderUnknownProperty(t *testing.T) {
	var b atomicBuilder
	b.object(5)

	defer func() {
		if recover() == nil {
			t.Error("expected a panic on an unvalidated property name")
		}
	}()
	b.prop(propertySet{}, "FB_ID", 1)
}
