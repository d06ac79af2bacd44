package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/joincode/internal/bot"
	"github.com/roach88/joincode/internal/session"
)

// DefaultSweepInterval is how often closed and idle sessions are swept.
const DefaultSweepInterval = time.Minute

// Handler processes one interaction. Implemented by *bot.Handlers.
type Handler interface {
	Handle(ctx context.Context, inv bot.CommandInvocation) bot.Response
	Interact(ctx context.Context, ci bot.ComponentInteraction) bot.Response
}

// Sweeper expires idle sessions and drops old ones.
// Implemented by *session.Registry.
type Sweeper interface {
	Sweep(now time.Time) (expired, dropped int)
}

// Config configures a Dispatcher.
type Config struct {
	Handler       Handler
	Sweeper       Sweeper       // optional
	SweepInterval time.Duration // DefaultSweepInterval when zero
	Clock         session.Clock // SystemClock when nil
	Logger        *slog.Logger
}

// Dispatcher is the single-writer event loop.
//
// Every interaction is handled to completion, including its store write and
// its reply, before the next one starts. Sessions are therefore never
// mutated concurrently and presses on one session apply in arrival order.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Dispatcher struct {
	queue         *eventQueue
	handler       Handler
	sweeper       Sweeper
	sweepInterval time.Duration
	clock         session.Clock
	logger        *slog.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		queue:         newEventQueue(),
		handler:       cfg.Handler,
		sweeper:       cfg.Sweeper,
		sweepInterval: cfg.SweepInterval,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
	}
	if d.sweepInterval <= 0 {
		d.sweepInterval = DefaultSweepInterval
	}
	if d.clock == nil {
		d.clock = session.SystemClock{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Enqueue submits an event for processing by the Run loop.
// Returns false once the dispatcher has stopped.
func (d *Dispatcher) Enqueue(ev Event) bool {
	return d.queue.Enqueue(ev)
}

// Command is shorthand for enqueuing a command invocation.
func (d *Dispatcher) Command(inv bot.CommandInvocation, reply ReplyFunc) bool {
	return d.Enqueue(Event{Type: EventTypeCommand, Command: &inv, Reply: reply})
}

// Component is shorthand for enqueuing a button press.
func (d *Dispatcher) Component(ci bot.ComponentInteraction, reply ReplyFunc) bool {
	return d.Enqueue(Event{Type: EventTypeComponent, Component: &ci, Reply: reply})
}

// Run processes events until ctx is cancelled or Stop is called.
//
// Errors from a single event are logged with the event's context and the
// loop continues; nothing a user does can stop the dispatcher.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher starting", "sweep_interval", d.sweepInterval)

	var tick <-chan time.Time
	if d.sweeper != nil {
		ticker := time.NewTicker(d.sweepInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if ev, ok := d.queue.TryDequeue(); ok {
			d.process(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping: context cancelled")
			d.queue.Close()
			return ctx.Err()

		case <-tick:
			d.Sweep()

		case <-d.queue.Wait():
			// The signal channel is closed by Stop; drain what is left first.
			if d.queue.Len() == 0 && d.stopped() {
				d.logger.Info("dispatcher stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once queued events are drained.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}

// Sweep expires idle sessions. Run calls it on every tick; it is exported
// for tests and must only be called from the Run goroutine while Run is
// active.
func (d *Dispatcher) Sweep() {
	if d.sweeper == nil {
		return
	}
	expired, dropped := d.sweeper.Sweep(d.clock.Now())
	if expired > 0 || dropped > 0 {
		d.logger.Debug("sessions swept", "expired", expired, "dropped", dropped)
	}
}

// Processed returns how many events have been handled.
func (d *Dispatcher) Processed() int64 { return d.processed.Load() }

// Failed returns how many events could not be answered.
func (d *Dispatcher) Failed() int64 { return d.failed.Load() }

func (d *Dispatcher) stopped() bool {
	d.queue.mu.Lock()
	defer d.queue.mu.Unlock()
	return d.queue.closed
}

func (d *Dispatcher) process(ctx context.Context, ev Event) {
	defer d.processed.Add(1)

	if err := d.processEvent(ctx, ev); err != nil {
		d.failed.Add(1)
		logEventError(d.logger, ev, err)
	}
}

// processEvent routes an event to the handler and delivers the reply.
// Called only from the Run goroutine.
func (d *Dispatcher) processEvent(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	var resp bot.Response
	switch ev.Type {
	case EventTypeCommand:
		if ev.Command == nil {
			return errors.New("command event missing invocation")
		}
		resp = d.handler.Handle(ctx, *ev.Command)

	case EventTypeComponent:
		if ev.Component == nil {
			return errors.New("component event missing interaction")
		}
		resp = d.handler.Interact(ctx, *ev.Component)

	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}

	if ev.Reply == nil {
		return nil
	}
	if err := ev.Reply(resp); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

func logEventError(logger *slog.Logger, ev Event, err error) {
	attrs := []any{"type", ev.Type.String(), "error", err}
	switch {
	case ev.Command != nil:
		attrs = append(attrs,
			"command", ev.Command.Command,
			"invoker", ev.Command.InvokerID,
			"community", ev.Command.CommunityID,
		)
	case ev.Component != nil:
		attrs = append(attrs,
			"custom_id", ev.Component.CustomID,
			"invoker", ev.Component.InvokerID,
		)
	}
	logger.Error("event processing failed", attrs...)
}
