package scanout

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeFence struct {
	closed bool
	t      int64
}

func (f *fakeFence) Close() error { f.closed = true; return nil }

func (f *fakeFence) SignalTime() (int64, error) { return f.t, nil }

type commitRecord struct {
	crtcs   []uint32
	modeset bool
}

// fakeCard emulates the hardware side of the loop: every committed
// output completes at the next multiple of its refresh interval, and
// waiting advances the clock to the earliest outstanding completion.
type fakeCard struct {
	now       int64
	refresh   map[uint32]int64
	queue     []CompletionEvent
	commits   []commitRecord
	delivered map[uint32]int

	commitErr error
	onCommit  func()
}

func newFakeCard(refresh map[uint32]int64) *fakeCard {
	return &fakeCard{refresh: refresh, delivered: make(map[uint32]int)}
}

func (c *fakeCard) Now() int64 { return c.now }

func (c *fakeCard) Commit(req *Request, allowModeset bool) error {
	if c.commitErr != nil {
		return c.commitErr
	}
	rec := commitRecord{modeset: allowModeset}
	for _, up := range req.Updates() {
		crtc := up.Output.CRTC()
		rec.crtcs = append(rec.crtcs, crtc)
		interval := c.refresh[crtc]
		c.queue = append(c.queue, CompletionEvent{
			CRTC: crtc,
			Time: (c.now/interval + 1) * interval,
		})
	}
	c.commits = append(c.commits, rec)
	if c.onCommit != nil {
		c.onCommit()
	}
	return nil
}

func (c *fakeCard) WaitEvent(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(c.queue) == 0 {
		return errors.New("wait with nothing in flight")
	}
	earliest := c.queue[0].Time
	for _, ev := range c.queue[1:] {
		if ev.Time < earliest {
			earliest = ev.Time
		}
	}
	c.now = earliest
	return nil
}

func (c *fakeCard) DispatchEvents(fn func(CompletionEvent)) error {
	rest := c.queue[:0]
	for _, ev := range c.queue {
		if ev.Time == c.now {
			c.delivered[ev.CRTC]++
			fn(ev)
		} else {
			rest = append(rest, ev)
		}
	}
	c.queue = rest
	return nil
}

type exitFunc func() bool

func (f exitFunc) ExitRequested() bool { return f() }

func nopPainter() Painter {
	return PainterFunc(func(*Buffer, int) {})
}

func TestNewValidation(t *testing.T) {
	card := newFakeCard(nil)
	config := &Config{Painter: nopPainter()}

	if _, err := New(card, nil, config); !errors.Is(err, ErrNoOutputs) {
		t.Errorf("expected ErrNoOutputs, got %v", err)
	}
	if _, err := New(card, []*Output{testOutput(QueueDepth)}, &Config{}); !errors.Is(err, ErrNoPainter) {
		t.Errorf("expected ErrNoPainter, got %v", err)
	}
	if _, err := New(card, []*Output{testOutput(1)}, config); !errors.Is(err, ErrQueueDepth) {
		t.Errorf("expected ErrQueueDepth, got %v", err)
	}
	if _, err := New(card, []*Output{testOutput(QueueDepth)}, config); err != nil {
		t.Errorf("expected a valid config to pass, got %v", err)
	}
}

// TestRunTwoCadences runs two outputs with different refresh rates
// through one loop and checks that each keeps its own rhythm.
func TestRunTwoCadences(t *testing.T) {
	a := NewOutput("HDMI-A-1", 1, 16*time.Millisecond)
	b := NewOutput("DP-1", 2, 20*time.Millisecond)
	for i := 0; i < QueueDepth; i++ {
		a.AddBuffer(&Buffer{FB: uint32(10 + i)})
		b.AddBuffer(&Buffer{FB: uint32(20 + i)})
	}
	card := newFakeCard(map[uint32]int64{1: 16 * msec, 2: 20 * msec})

	sched, err := New(card, []*Output{a, b}, &Config{
		Painter: nopPainter(),
		Input:   exitFunc(func() bool { return card.delivered[1] >= 10 }),
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// First commit carries both never-configured outputs and must allow
	// a modeset; after that every commit is a plain flip.
	if len(card.commits) == 0 {
		t.Fatal("expected at least one commit")
	}
	if first := card.commits[0]; !first.modeset || len(first.crtcs) != 2 {
		t.Errorf("expected a two-output modeset commit first, got %+v", first)
	}
	for i, rec := range card.commits[1:] {
		if rec.modeset {
			t.Errorf("expected no modeset in commit %d", i+1)
		}
	}

	// The loop stops once the fast output has seen 10 completions, at
	// t=160ms. By then the slow output has completed 160/20 = 8 times.
	// The repaint following the final completion never runs, so each
	// frame counter sits one behind its completion count.
	if card.delivered[1] != 10 || card.delivered[2] != 8 {
		t.Fatalf("expected 10 and 8 completions, got %d and %d",
			card.delivered[1], card.delivered[2])
	}
	if a.FrameNum() != 9 {
		t.Errorf("expected fast output at frame 9, got %d", a.FrameNum())
	}
	if b.FrameNum() != 7 {
		t.Errorf("expected slow output at frame 7, got %d", b.FrameNum())
	}
	if a.lastFrame != 160*msec || b.lastFrame != 160*msec {
		t.Errorf("expected both outputs current at 160ms, got %d and %d",
			a.lastFrame, b.lastFrame)
	}
}

// TestRunCancelDispatchesInFlight cancels during the first commit and
// checks that its completion is still dispatched before Run returns.
func TestRunCancelDispatchesInFlight(t *testing.T) {
	out := NewOutput("HDMI-A-1", 1, 16*time.Millisecond)
	for i := 0; i < QueueDepth; i++ {
		out.AddBuffer(&Buffer{FB: uint32(10 + i)})
	}
	card := newFakeCard(map[uint32]int64{1: 16 * msec})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	card.onCommit = cancel

	sched, err := New(card, []*Output{out}, &Config{
		Painter: nopPainter(),
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(ctx); err != nil {
		t.Fatalf("expected a clean shutdown, got %v", err)
	}

	if len(card.commits) != 1 {
		t.Fatalf("expected exactly one commit, got %d", len(card.commits))
	}
	if card.delivered[1] != 1 {
		t.Errorf("expected the in-flight completion to be dispatched, got %d", card.delivered[1])
	}
	if out.pending != nil {
		t.Error("expected no pending buffer after the final dispatch")
	}
	if out.last == nil {
		t.Error("expected the committed buffer to be on screen")
	}
}

func TestRunCommitError(t *testing.T) {
	out := NewOutput("HDMI-A-1", 1, 16*time.Millisecond)
	for i := 0; i < QueueDepth; i++ {
		out.AddBuffer(&Buffer{FB: uint32(10 + i)})
	}
	card := newFakeCard(map[uint32]int64{1: 16 * msec})
	card.commitErr = errors.New("device gone")

	sched, err := New(card, []*Output{out}, &Config{
		Painter: nopPainter(),
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(context.Background()); !errors.Is(err, card.commitErr) {
		t.Errorf("expected the commit error to surface, got %v", err)
	}
}

func TestRunExitPollerBeforeCommit(t *testing.T) {
	out := NewOutput("HDMI-A-1", 1, 16*time.Millisecond)
	for i := 0; i < QueueDepth; i++ {
		out.AddBuffer(&Buffer{FB: uint32(10 + i)})
	}
	card := newFakeCard(map[uint32]int64{1: 16 * msec})

	sched, err := New(card, []*Output{out}, &Config{
		Painter: nopPainter(),
		Input:   exitFunc(func() bool { return true }),
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("expected a clean exit, got %v", err)
	}
	if len(card.commits) != 0 {
		t.Errorf("expected no commits after an immediate exit, got %d", len(card.commits))
	}
}
