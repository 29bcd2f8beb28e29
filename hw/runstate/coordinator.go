package runstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fusionx/emu/log"
)

const DefaultAckTimeout = 2 * time.Second

var ErrAckTimeout = errors.New("run state not acknowledged")

// A Holder error returned by a Quiesce function keeps the execution goroutine
// quiesced when Hold reports true.
type Holder interface {
	Hold() bool
}

// Coordinator lets the control path bring the execution goroutine to a
// quiesced state before mutating the tables it reads, then resume it.
//
// The execution goroutine calls Sample once per instruction and Park when
// Sample reports it must not execute. Control requests are serialized.
type Coordinator struct {
	AckTimeout time.Duration

	mu    sync.Mutex
	cond  sync.Cond
	state State
	cur   atomic.Uint32 // mirror of state, read without mu

	ctrl sync.Mutex
}

// New returns a coordinator in the Stop state.
func New() *Coordinator {
	c := &Coordinator{AckTimeout: DefaultAckTimeout}
	c.cond.L = &c.mu
	c.setLocked(Stop)
	return c
}

// State returns the current state.
func (c *Coordinator) State() State { return State(c.cur.Load()) }

func (c *Coordinator) setLocked(s State) {
	c.state = s
	c.cur.Store(uint32(s))
	c.cond.Broadcast()
}

// Sample acknowledges any pending request and reports whether the execution
// goroutine may execute the next instruction. Execution side only.
func (c *Coordinator) Sample() bool {
	if State(c.cur.Load()) == Running {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsRequest() {
		log.ModRun.DebugZ("ack").Stringer("req", c.state).End()
		c.setLocked(c.state.Ack())
	}
	return c.state == Running
}

// Park blocks the execution goroutine while it is quiesced, until a new
// request arrives or ctx is done. Execution side only.
func (c *Coordinator) Park(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.wake)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state.Quiesced() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.cond.Wait()
	}
	return nil
}

// Settle moves the execution goroutine to the quiesced state s on its own
// initiative, after a bus fault for instance. A pending Stop request is
// acknowledged as Stopped instead. Execution side only.
func (c *Coordinator) Settle(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stop {
		s = Stopped
	}
	log.ModRun.WarnZ("settle").Stringer("from", c.state).Stringer("to", s).End()
	c.setLocked(s)
}

func (c *Coordinator) wake() {
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Transition requests req and waits for its acknowledgement.
func (c *Coordinator) Transition(ctx context.Context, req State) error {
	c.ctrl.Lock()
	defer c.ctrl.Unlock()
	return c.transition(ctx, req)
}

func (c *Coordinator) transition(ctx context.Context, req State) error {
	cur := c.State()
	switch {
	case cur == req.Ack():
		return nil
	case req == Pause && cur == Stopped:
		// Already more quiesced than requested.
		return nil
	}

	c.request(req)
	return c.waitFor(ctx, req.Ack())
}

func (c *Coordinator) request(req State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	log.ModRun.DebugZ("request").Stringer("from", c.state).Stringer("req", req).End()
	c.setLocked(req)
}

// waitFor blocks until state is want, the ack timeout expires or ctx is done.
func (c *Coordinator) waitFor(ctx context.Context, want State) error {
	if c.AckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.AckTimeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, c.wake)
	defer stop()

	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state != want {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.ModRun.ErrorZ("ack timeout").
					Stringer("want", want).
					Stringer("state", c.state).
					Duration("after", time.Since(start)).
					End()
				return fmt.Errorf("wait %v (state %v): %w", want, c.state, ErrAckTimeout)
			}
			return err
		}
		c.cond.Wait()
	}
	return nil
}

// Quiesce brings the execution goroutine to the quiesced state target (Stop
// or Pause) if it is running, calls fn, then restores the previous state.
// The execution goroutine stays quiesced if fn returns a Holder error.
func (c *Coordinator) Quiesce(ctx context.Context, target State, fn func() error) error {
	c.ctrl.Lock()
	defer c.ctrl.Unlock()

	prev := c.State()
	if prev.IsRequest() {
		if err := c.waitFor(ctx, prev.Ack()); err != nil {
			return err
		}
		prev = prev.Ack()
	}
	if !prev.Quiesced() {
		if err := c.transition(ctx, target); err != nil {
			return err
		}
	}

	err := fn()
	var h Holder
	if errors.As(err, &h) && h.Hold() {
		log.ModRun.WarnZ("staying quiesced").Stringer("state", c.State()).Error("err", err).End()
		return err
	}

	if prev == Running {
		if rerr := c.transition(ctx, Continue); rerr != nil {
			return errors.Join(err, rerr)
		}
	}
	return err
}
