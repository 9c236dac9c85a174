package scanout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Card is the display hardware the scheduler drives.
//
// Commit is non-blocking: it returns as soon as the request has been
// queued, and the hardware reports one completion event per output in
// the request once the configuration is actually scanned out. Because
// each output completes on its own cadence, outputs with different
// refresh rates each run their own repaint rhythm through the one
// scheduler loop.
type Card interface {
	// Commit submits the batched request. allowModeset must be set when
	// the request contains an output that has never been configured.
	Commit(req *Request, allowModeset bool) error

	// WaitEvent blocks until at least one completion event is pending,
	// or ctx is cancelled.
	WaitEvent(ctx context.Context) error

	// DispatchEvents decodes all pending completion events and calls fn
	// once for each.
	DispatchEvents(fn func(CompletionEvent)) error

	// Now returns the current time on the hardware presentation clock,
	// in nanoseconds. Completion timestamps share this clock.
	Now() int64
}

// Painter fills a buffer with the content for one animation frame. The
// fill is synchronous and must not touch scheduling state.
type Painter interface {
	Fill(buf *Buffer, frameNum int)
}

// PainterFunc adapts a plain function to the Painter interface.
type PainterFunc func(*Buffer, int)

func (f PainterFunc) Fill(buf *Buffer, frameNum int) { f(buf, frameNum) }

// ExitPoller reports, without blocking, whether the user asked to quit.
type ExitPoller interface {
	ExitRequested() bool
}

// Config carries the scheduler's collaborators.
type Config struct {
	// Painter generates frame content. Required.
	Painter Painter

	// Input, when set, is polled once per iteration for an exit
	// request.
	Input ExitPoller

	// Logger for diagnostics. When nil, output is discarded unless
	// SCANOUT_DEBUG is set, in which case debug logs go to stderr.
	Logger *slog.Logger
}

// Scheduler drives the repaint loop for a set of outputs on one card.
// All state is owned by the goroutine running Run; none of the methods
// are safe for concurrent use.
type Scheduler struct {
	card    Card
	outputs []*Output
	paint   Painter
	input   ExitPoller
	log     *slog.Logger
}

// New validates the configuration and returns a scheduler.
func New(card Card, outputs []*Output, config *Config) (*Scheduler, error) {
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}
	if config == nil || config.Painter == nil {
		return nil, ErrNoPainter
	}
	for _, out := range outputs {
		if len(out.buffers) < 2 {
			return nil, fmt.Errorf("%w: %s has %d", ErrQueueDepth, out.name, len(out.buffers))
		}
	}

	logger := config.Logger
	if logger == nil {
		if debug {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		} else {
			logger = discardLogger()
		}
	}

	return &Scheduler{
		card:    card,
		outputs: outputs,
		paint:   config.Painter,
		input:   config.Input,
		log:     logger,
	}, nil
}

// Run spins the repaint loop until ctx is cancelled, the exit poller
// fires, or the hardware fails. Each iteration repaints every flagged
// output, submits one batched commit, then sleeps until the hardware
// reports completions and dispatches them.
//
// Cancellation is observed at iteration boundaries only: a commit that
// is in flight when ctx is cancelled still gets its completion
// dispatched before Run returns. Run returns nil on a clean shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.input != nil && s.input.ExitRequested() {
			s.log.Debug("exit requested")
			return nil
		}

		req := new(Request)
		modeset := false
		for _, out := range s.outputs {
			if out.needsRepaint {
				s.repaintOne(out, req, &modeset)
			}
		}

		if req.Len() > 0 {
			if err := s.card.Commit(req, modeset); err != nil {
				return fmt.Errorf("scanout: atomic commit: %w", err)
			}
		}

		// As long as any commit is outstanding we owe it a dispatch, so
		// the wait must not be cut short by cancellation.
		waitCtx := ctx
		if s.inFlight() {
			waitCtx = context.Background()
		}
		if err := s.card.WaitEvent(waitCtx); err != nil {
			if waitCtx.Err() != nil {
				return nil
			}
			return fmt.Errorf("scanout: event wait: %w", err)
		}
		if err := s.card.DispatchEvents(s.handleCompletion); err != nil {
			return fmt.Errorf("scanout: event dispatch: %w", err)
		}
	}
}

func (s *Scheduler) inFlight() bool {
	for _, out := range s.outputs {
		if out.pending != nil {
			return true
		}
	}
	return false
}

// repaintOne claims a free buffer, advances the output's frame clock,
// paints the frame and records the flip in the request.
func (s *Scheduler) repaintOne(out *Output, req *Request, needsModeset *bool) {
	now := s.card.Now()

	buf := out.acquireFree()
	out.advanceFrame(now)
	s.paint.Fill(buf, out.frameNum)

	req.Add(out, buf)
	buf.inUse = true
	out.pending = buf
	out.needsRepaint = false

	// An output that has never been presented has no configuration in
	// flight yet, so its first commit must be allowed to set the mode.
	if out.lastFrame == 0 {
		*needsModeset = true
	}

	if out.nextFrame != 0 {
		s.log.Debug("predicting presentation",
			"output", out.name,
			"frame", out.frameNum,
			"predicted_ns", out.nextFrame,
			"lead", time.Duration(out.nextFrame-now))
	} else {
		s.log.Debug("scheduling first frame", "output", out.name)
	}
}
