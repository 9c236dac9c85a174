package scanout

// CompletionEvent reports that a previously committed configuration
// became active in hardware. The backend delivers exactly one event per
// output per commit, in submission order.
type CompletionEvent struct {
	// CRTC identifies the display pipeline that completed.
	CRTC uint32

	// Sequence is the hardware frame counter at completion.
	Sequence uint32

	// Time is when the new configuration became active, in nanoseconds
	// on the hardware presentation clock.
	Time int64
}

// handleCompletion processes one completion event: it matches the event
// to an output, checks the prediction against the actual presentation
// time, flags the output for repaint, and rotates the buffer queue.
//
// The event tells us the buffer we committed last (pending) is now on
// screen, which means the buffer it replaced (last) is no longer
// scanned out and can be reused.
func (s *Scheduler) handleCompletion(ev CompletionEvent) {
	var out *Output
	for _, o := range s.outputs {
		if o.crtc == ev.CRTC {
			out = o
			break
		}
	}
	if out == nil {
		// The hardware may still deliver events for a pipeline that has
		// since been deconfigured; not our problem.
		s.log.Debug("completion for unknown CRTC", "crtc", ev.CRTC)
		return
	}

	// Compare the actual completion time against the prediction we made
	// when committing. This is diagnostic only; see the package
	// documentation for what a real compositor would do instead.
	delta := ev.Time - out.nextFrame
	if out.lastFrame != 0 && (delta > int64(timingTolerance) || delta < -int64(timingTolerance)) {
		class := "late"
		if delta < 0 {
			class = "early"
		}
		s.log.Warn("frame timing drift",
			"output", out.name,
			"class", class,
			"delta_ns", delta,
			"predicted_ns", out.nextFrame,
			"actual_ns", ev.Time)
	} else {
		s.log.Debug("frame completed",
			"output", out.name,
			"seq", ev.Sequence,
			"actual_ns", ev.Time,
			"delta_ns", delta)
	}

	out.needsRepaint = true
	out.lastFrame = ev.Time

	// A completion without a matching prior commit means our accounting
	// is broken; continuing would corrupt the queue.
	if out.pending == nil || !out.pending.inUse {
		panic("scanout: completion without a pending buffer on " + out.name)
	}

	if out.last != nil {
		if !out.last.inUse {
			panic("scanout: displayed buffer not marked in use on " + out.name)
		}
		s.log.Debug("releasing buffer", "output", out.name, "fb", out.last.FB)
		out.last.inUse = false
	}
	out.last = out.pending
	out.pending = nil

	if out.explicitFencing && out.commitFence != nil {
		// The out-fence of the commit that just completed belongs to
		// the buffer it put on screen.
		if ft, ok := out.commitFence.(fenceTimer); ok {
			if t, err := ft.SignalTime(); err == nil {
				s.log.Debug("commit fence signaled", "output", out.name, "fence_ns", t)
			}
		}
		out.last.setDisplayFence(out.commitFence)
		out.commitFence = nil
	}
}
