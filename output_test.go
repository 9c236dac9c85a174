package scanout

import (
	"testing"
	"time"
)

func testOutput(depth int) *Output {
	out := NewOutput("TEST-1", 42, 16*time.Millisecond)
	for i := 0; i < depth; i++ {
		out.AddBuffer(&Buffer{FB: uint32(100 + i)})
	}
	return out
}

func TestAcquireFreeSkipsOwnedBuffers(t *testing.T) {
	out := testOutput(QueueDepth)
	out.buffers[0].inUse = true
	out.last = out.buffers[0]
	out.buffers[1].inUse = true
	out.pending = out.buffers[1]

	if b := out.acquireFree(); b != out.buffers[2] {
		t.Errorf("expected the third buffer, got fb %d", b.FB)
	}
}

func TestAcquireFreePanicsWhenExhausted(t *testing.T) {
	out := testOutput(2)
	for _, b := range out.buffers {
		b.inUse = true
	}

	defer func() {
		if recover() == nil {
			t.Error("expected a panic with no free buffers")
		}
	}()
	out.acquireFree()
}

// TestBufferLifecycle walks one buffer through a full
// free -> pending -> displayed -> free cycle.
func TestBufferLifecycle(t *testing.T) {
	out := testOutput(QueueDepth)
	s := &Scheduler{outputs: []*Output{out}, log: discardLogger()}

	first := out.acquireFree()
	first.inUse = true
	out.pending = first
	s.handleCompletion(CompletionEvent{CRTC: 42, Time: 1e9})

	if out.last != first || out.pending != nil {
		t.Fatal("expected the first buffer on screen after its completion")
	}

	second := out.acquireFree()
	if second == first {
		t.Fatal("expected a different buffer while the first is displayed")
	}
	second.inUse = true
	out.pending = second
	s.handleCompletion(CompletionEvent{CRTC: 42, Time: 2e9})

	if first.InUse() {
		t.Error("expected the replaced buffer to be free again")
	}
	if out.last != second {
		t.Error("expected the second buffer on screen")
	}
	if b := out.acquireFree(); b == second {
		t.Error("expected acquireFree to avoid the displayed buffer")
	}
}

func TestSetCommitFenceReleasesPrevious(t *testing.T) {
	out := testOutput(QueueDepth)

	f1 := &fakeFence{}
	f2 := &fakeFence{}
	out.SetCommitFence(f1)
	out.SetCommitFence(f2)

	if !f1.closed {
		t.Error("expected the unclaimed fence to be closed on replacement")
	}
	if f2.closed {
		t.Error("expected the new fence to stay open")
	}
}
