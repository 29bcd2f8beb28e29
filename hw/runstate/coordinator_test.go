package runstate_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fusionx/hw/runstate"
)

// execLoop mimics the execution goroutine, counting executed instructions.
type execLoop struct {
	steps atomic.Int64
	done  chan struct{}
}

func startLoop(tb testing.TB, c *runstate.Coordinator) *execLoop {
	tb.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := &execLoop{done: make(chan struct{})}
	go func() {
		defer close(l.done)
		for ctx.Err() == nil {
			if c.Sample() {
				l.steps.Add(1)
				continue
			}
			c.Park(ctx)
		}
	}()
	tb.Cleanup(func() {
		cancel()
		<-l.done
	})
	return l
}

func TestReachability(t *testing.T) {
	c := runstate.New()
	l := startLoop(t, c)
	ctx := context.Background()

	steps := []struct {
		req, want runstate.State
	}{
		{runstate.Continue, runstate.Running},
		{runstate.Pause, runstate.Paused},
		{runstate.Continue, runstate.Running},
		{runstate.Stop, runstate.Stopped},
		{runstate.Pause, runstate.Stopped},
		{runstate.Continue, runstate.Running},
	}
	for _, s := range steps {
		if err := c.Transition(ctx, s.req); err != nil {
			t.Fatalf("Transition(%v) = %v", s.req, err)
		}
		if got := c.State(); got != s.want {
			t.Fatalf("State() = %v after %v, want %v", got, s.req, s.want)
		}
		if s.want.Quiesced() {
			n := l.steps.Load()
			time.Sleep(5 * time.Millisecond)
			if got := l.steps.Load(); got != n {
				t.Fatalf("%d instructions executed while %v", got-n, s.want)
			}
		}
	}
}

func TestAckTimeout(t *testing.T) {
	c := runstate.New()
	c.AckTimeout = 10 * time.Millisecond

	// Nothing samples the state.
	err := c.Transition(context.Background(), runstate.Continue)
	if !errors.Is(err, runstate.ErrAckTimeout) {
		t.Fatalf("Transition(Continue) = %v, want ErrAckTimeout", err)
	}
	if got := c.State(); got != runstate.Continue {
		t.Errorf("State() = %v, want the pending Continue", got)
	}
}

func TestQuiesce(t *testing.T) {
	c := runstate.New()
	startLoop(t, c)
	ctx := context.Background()
	if err := c.Transition(ctx, runstate.Continue); err != nil {
		t.Fatal(err)
	}

	var during runstate.State
	err := c.Quiesce(ctx, runstate.Pause, func() error {
		during = c.State()
		return nil
	})
	if err != nil {
		t.Fatalf("Quiesce = %v", err)
	}
	if during != runstate.Paused {
		t.Errorf("state during Quiesce = %v, want Paused", during)
	}
	if got := c.State(); got != runstate.Running {
		t.Errorf("state after Quiesce = %v, want Running", got)
	}
}

func TestQuiesceWhileStopped(t *testing.T) {
	c := runstate.New()
	startLoop(t, c)
	ctx := context.Background()
	if err := c.Transition(ctx, runstate.Stop); err != nil {
		t.Fatal(err)
	}

	errFn := errors.New("boom")
	if err := c.Quiesce(ctx, runstate.Pause, func() error { return errFn }); !errors.Is(err, errFn) {
		t.Fatalf("Quiesce = %v, want %v", err, errFn)
	}
	if got := c.State(); got != runstate.Stopped {
		t.Errorf("state after Quiesce = %v, want Stopped", got)
	}
}

type holdErr struct{}

func (holdErr) Error() string { return "hold" }
func (holdErr) Hold() bool    { return true }

func TestQuiesceHold(t *testing.T) {
	c := runstate.New()
	startLoop(t, c)
	ctx := context.Background()
	if err := c.Transition(ctx, runstate.Continue); err != nil {
		t.Fatal(err)
	}

	err := c.Quiesce(ctx, runstate.Stop, func() error { return holdErr{} })
	if !errors.As(err, new(holdErr)) {
		t.Fatalf("Quiesce = %v, want holdErr", err)
	}
	if got := c.State(); got != runstate.Stopped {
		t.Errorf("state after held Quiesce = %v, want Stopped", got)
	}
}

func TestSettle(t *testing.T) {
	c := runstate.New()
	l := startLoop(t, c)
	if err := c.Transition(context.Background(), runstate.Continue); err != nil {
		t.Fatal(err)
	}
	c.Settle(runstate.Paused)

	n := l.steps.Load()
	time.Sleep(5 * time.Millisecond)
	// At most the instruction in flight when Settle ran.
	if got := l.steps.Load(); got > n+1 {
		t.Errorf("%d instructions executed after Settle", got-n)
	}
}

func TestSettleKeepsStopRequest(t *testing.T) {
	c := runstate.New()
	c.AckTimeout = time.Second

	errc := make(chan error, 1)
	go func() { errc <- c.Transition(context.Background(), runstate.Stop) }()
	time.Sleep(5 * time.Millisecond)

	c.Settle(runstate.Paused)
	if err := <-errc; err != nil {
		t.Fatalf("Transition(Stop) = %v, want nil", err)
	}
	if s := c.State(); s != runstate.Stopped {
		t.Errorf("State() = %v, want Stopped", s)
	}
}
