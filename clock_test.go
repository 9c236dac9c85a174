package scanout

import (
	"testing"
	"time"
)

const msec = int64(time.Millisecond)

func TestAdvanceFirstTickIsNoop(t *testing.T) {
	for _, now := range []int64{0, 1, 16 * msec, 1e12} {
		out := NewOutput("test", 1, 16*time.Millisecond)
		out.frameNum = 7

		out.advanceFrame(now)

		if out.nextFrame != 0 {
			t.Errorf("expected nextFrame to stay 0 at now=%d, got %d", now, out.nextFrame)
		}
		if out.frameNum != 7 {
			t.Errorf("expected frameNum to stay 7 at now=%d, got %d", now, out.frameNum)
		}
	}
}

func TestAdvanceCatchUp(t *testing.T) {
	// 50ms behind with a 16ms refresh: the prediction must step
	// T-34, T-18, T-2, T+14 and stop there, skipping frames to stay
	// temporally linear.
	const T = int64(time.Second)

	out := NewOutput("test", 1, 16*time.Millisecond)
	out.lastFrame = T - 50*msec
	out.frameNum = 7

	out.advanceFrame(T)

	if want := T + 14*msec; out.nextFrame != want {
		t.Errorf("expected nextFrame %d, got %d", want, out.nextFrame)
	}
	if want := 11; out.frameNum != want {
		t.Errorf("expected frameNum %d (4 steps), got %d", want, out.frameNum)
	}
}

func TestAdvanceSingleFrame(t *testing.T) {
	// Steady state: one refresh interval per completion.
	const T = int64(time.Second)

	out := NewOutput("test", 1, 16*time.Millisecond)
	out.lastFrame = T
	out.frameNum = 3

	out.advanceFrame(T)

	if want := T + 16*msec; out.nextFrame != want {
		t.Errorf("expected nextFrame %d, got %d", want, out.nextFrame)
	}
	if want := 4; out.frameNum != want {
		t.Errorf("expected frameNum %d, got %d", want, out.frameNum)
	}
}

func TestAdvanceLeadMargin(t *testing.T) {
	const T = int64(time.Second)

	for _, behind := range []int64{0, 1 * msec, 15 * msec, 16 * msec, 100 * msec, 999 * msec} {
		out := NewOutput("test", 1, 16*time.Millisecond)
		out.lastFrame = T - behind

		out.advanceFrame(T)

		if lead := out.nextFrame - T; lead < int64(leadMargin) {
			t.Errorf("expected at least %v lead at behind=%v, got %v",
				leadMargin, time.Duration(behind), time.Duration(lead))
		}
	}
}

func TestAdvanceMonotonic(t *testing.T) {
	out := NewOutput("test", 1, 16*time.Millisecond)
	out.lastFrame = int64(time.Second)

	var prevNext int64
	prevFrame := out.frameNum
	steps := 0

	for now := int64(time.Second); now < int64(2*time.Second); now += 7 * msec {
		out.advanceFrame(now)
		// Completions lag the prediction in a real run; emulate that.
		out.lastFrame = out.nextFrame

		if out.nextFrame < prevNext {
			t.Fatalf("nextFrame went backwards: %d < %d", out.nextFrame, prevNext)
		}
		if d := (out.frameNum - prevFrame + AnimFrames) % AnimFrames; d == 0 && out.nextFrame != prevNext {
			t.Fatalf("nextFrame moved without frameNum at step %d", steps)
		}
		prevNext = out.nextFrame
		prevFrame = out.frameNum
		steps++
	}
}

func TestAdvanceWrapsAnimation(t *testing.T) {
	const T = int64(time.Second)

	out := NewOutput("test", 1, 16*time.Millisecond)
	out.lastFrame = T
	out.frameNum = AnimFrames - 1

	out.advanceFrame(T)

	if out.frameNum != 0 {
		t.Errorf("expected frameNum to wrap to 0, got %d", out.frameNum)
	}
}
