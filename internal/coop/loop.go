// Package coop implements a single-threaded cooperative scheduler on top of
// an async.Executor.
//
// A coroutine is a chain of steps. Each step runs to completion on the
// goroutine that called Run and then tells the loop what happens next:
// another step (Then), a timed suspension (Sleep), a turn for everyone else
// (Yield), or the end of the coroutine (End, Fail). Only one step runs at any
// instant, so state owned by a Loop needs no locks.
package coop

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/b97tsk/async"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrLoopRunning is returned when Run is called on a Loop that is already running.
var ErrLoopRunning = errors.New("coop: loop is already running")

// Result tells the loop what a coroutine does after the current step.
type Result = async.Result

// Func is one step of a coroutine. Every coroutine must eventually return
// End or Fail.
type Func func(co *Co) Result

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used for timed suspension.
func WithClock(clock clockwork.Clock) Option {
	return func(l *Loop) { l.clock = clock }
}

// WithLogger sets the loop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

const spawnPath = "coop"

// Loop is a cooperative event loop. The zero value is not usable; create
// loops with NewLoop.
type Loop struct {
	clock  clockwork.Clock
	logger *zap.Logger

	exec async.Executor
	// kick is signalled when work is spawned while nobody runs the executor.
	kick chan struct{}

	// Fields below are only touched from steps, which run one at a time.
	live    int
	nextID  int
	err     error
	running bool
}

// NewLoop creates an idle loop.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
		kick:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.exec.Autorun(func() {
		select {
		case l.kick <- struct{}{}:
		default:
		}
	})
	return l
}

// Run runs fn and every coroutine it spawns to completion, then returns the
// first error in completion order. A failing coroutine does not stop the others.
func (l *Loop) Run(fn Func) error {
	if l.running {
		return ErrLoopRunning
	}
	l.running = true
	l.err = nil
	defer func() { l.running = false }()

	l.spawn(fn)
	for {
		l.exec.Run()
		if l.live == 0 {
			return l.err
		}
		// Every live coroutine is waiting on a timer.
		<-l.kick
	}
}

// Run runs fn on a new loop.
func Run(fn Func, opts ...Option) error {
	return NewLoop(opts...).Run(fn)
}

func (l *Loop) spawn(fn Func) {
	l.nextID++
	l.live++
	co := &Co{loop: l, id: l.nextID}
	l.exec.Spawn(spawnPath, co.step(fn))
}

// notify wakes sig from inside the executor. It is safe to call from any
// goroutine, including timer callbacks.
func (l *Loop) notify(fired *bool, sig *async.Signal) {
	l.exec.Spawn(spawnPath, func(co *async.Coroutine) async.Result {
		*fired = true
		sig.Notify()
		return co.End()
	})
}

// Co is the handle a coroutine uses to reach its loop. It must only be used
// from the steps of the coroutine it was passed to.
type Co struct {
	loop *Loop
	id   int
	co   *async.Coroutine
	done bool
}

func (c *Co) step(fn Func) async.Task {
	return func(co *async.Coroutine) (res async.Result) {
		c.co = co
		defer func() {
			if r := recover(); r != nil {
				res = c.Fail(fmt.Errorf("coroutine %d panicked: %v\n%s", c.id, r, debug.Stack()))
			}
		}()
		return fn(c)
	}
}

// End finishes the coroutine successfully.
func (c *Co) End() Result {
	c.finish(nil)
	return c.co.End()
}

// Fail finishes the coroutine with err. Run reports the first failure.
func (c *Co) Fail(err error) Result {
	c.finish(err)
	return c.co.End()
}

func (c *Co) finish(err error) {
	if c.done {
		return
	}
	c.done = true
	l := c.loop
	l.live--
	if err != nil {
		l.logger.Debug("coroutine failed", zap.Int("coroutine", c.id), zap.Error(err))
		if l.err == nil {
			l.err = err
		}
	}
}

// Then continues the coroutine with next in the same turn.
func (c *Co) Then(next Func) Result {
	return c.co.Transition(c.step(next))
}

// Sleep suspends the coroutine for d and then continues with next. Other
// coroutines on the loop run while it sleeps.
func (c *Co) Sleep(d time.Duration, next Func) Result {
	if d <= 0 {
		return c.Yield(next)
	}
	var (
		sig   async.Signal
		fired bool
	)
	l := c.loop
	l.clock.AfterFunc(d, func() { l.notify(&fired, &sig) })
	return c.await(&fired, &sig, next)
}

// Yield continues the coroutine with next after every coroutine already
// waiting for a turn has had one.
func (c *Co) Yield(next Func) Result {
	var (
		sig   async.Signal
		fired bool
	)
	c.loop.notify(&fired, &sig)
	return c.await(&fired, &sig, next)
}

func (c *Co) await(fired *bool, sig *async.Signal, next Func) Result {
	return c.Then(func(c *Co) Result {
		if !*fired {
			return c.co.Await(sig)
		}
		return next(c)
	})
}

// Go spawns fn as a new coroutine on the same loop. It starts once the
// current step returns.
func (c *Co) Go(fn Func) {
	c.loop.spawn(fn)
}

// ID identifies the coroutine within its loop.
func (c *Co) ID() int { return c.id }

// Now reports the loop clock's current time.
func (c *Co) Now() time.Time { return c.loop.clock.Now() }
