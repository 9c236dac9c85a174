package scanout

// advanceFrame predicts when the output's next frame will reach the
// screen and moves the animation position to match.
//
// Starting from the last confirmed presentation, the prediction is
// advanced one refresh interval at a time, stepping the animation with
// it, until it leads now by at least leadMargin. After a stall this
// skips as many refresh intervals as were missed, so wall-clock time
// maps linearly onto animation progress: frames are dropped, never
// played back late.
func (o *Output) advanceFrame(now int64) {
	// No prediction for the very first tick; the first frame is
	// scheduled immediately.
	if o.lastFrame == 0 {
		return
	}

	tooSoon := now + int64(leadMargin)
	o.nextFrame = o.lastFrame

	for o.nextFrame < tooSoon {
		o.nextFrame += int64(o.refresh)
		o.frameNum = (o.frameNum + 1) % AnimFrames
	}
}
