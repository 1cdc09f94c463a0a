// Package remapper drives one physical device / virtual sink pair
// through the event engine: it owns the single rearmable hold-timeout
// timer and the goroutine loop that ties device I/O to engine
// transitions.
package remapper

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/evremap/evremap/internal/engine"
)

// StartupGrace is the delay before a remapper starts grabbing and
// reading, giving the operator a moment to release any keys held down
// while launching the remap command from a terminal.
const StartupGrace = 2 * time.Second

// Source is the input boundary a Remapper reads from: one grabbed
// physical device (satisfied by *device.Source). Narrowed to an
// interface so the goroutine loop can be driven by a recording fake in
// tests instead of a real /dev/input device.
type Source interface {
	Name() string
	NextEvent() (engine.Event, error)
	Close() error
}

// Sink is the output boundary a Remapper writes to (satisfied by
// *device.Sink).
type Sink interface {
	Apply(out []engine.Out) error
}

// Remapper runs one physical device against one shared virtual sink
// through its own engine.Engine. Each grabbed device gets its own
// Remapper and its own Engine: the engine's state (physical_down,
// pending_dual, ...) is plain unguarded maps, so it must never be
// shared across the goroutines that drive more than one device.
type Remapper struct {
	source Source
	sink   Sink
	eng    *engine.Engine
	log    *log.Logger

	toggle chan bool
}

// New builds a Remapper. The caller is responsible for opening source
// and sink and for closing the sink after every remapper sharing it has
// stopped — a single virtual output device may be shared by every
// grabbed physical device, as long as writes to it are serialized.
func New(source Source, sink Sink, eng *engine.Engine, log *log.Logger) *Remapper {
	return &Remapper{source: source, sink: sink, eng: eng, log: log, toggle: make(chan bool, 1)}
}

// SetEnabled requests that this remapper's engine switch in or out of
// bypass mode. The request is applied on the Run goroutine rather than
// inline, since the engine has no locking of its own. Only the latest
// pending request is kept if the caller asks again before Run picks up
// the first one.
func (r *Remapper) SetEnabled(enabled bool) {
	for {
		select {
		case r.toggle <- enabled:
			return
		default:
			select {
			case <-r.toggle:
			default:
			}
		}
	}
}

// Run reads events from the physical device and drives them through the
// engine until ctx is cancelled or the device disappears. It always
// performs the teardown sequence before returning: synthesize releases
// for any keys still held, flush them to the sink, then ungrab and
// close the physical device.
func (r *Remapper) Run(ctx context.Context) error {
	defer r.teardown()

	events := make(chan engine.Event)
	errs := make(chan error, 1)
	go r.readLoop(ctx, events, errs)

	var timer *time.Timer
	var timerC <-chan time.Time

	armTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(r.eng.HoldTimeout())
		timerC = timer.C
	}
	disarmTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = nil
		timerC = nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			return err

		case ev := <-events:
			wasPending := r.eng.IsPending()
			out := r.eng.OnEvent(ev)
			r.deliver(out)
			switch {
			case r.eng.IsPending() && (!wasPending || ev.State == engine.KeyPress):
				// A press resolves whatever was pending, so a key still
				// pending after a press is a newly pending one.
				armTimer()
			case !r.eng.IsPending() && wasPending:
				disarmTimer()
			}

		case <-timerC:
			out := r.eng.OnTimerExpiry()
			r.deliver(out)
			disarmTimer()

		case enabled := <-r.toggle:
			wasPending := r.eng.IsPending()
			out := r.eng.SetEnabled(enabled)
			r.deliver(out)
			if wasPending && !r.eng.IsPending() {
				disarmTimer()
			}
		}
	}
}

func (r *Remapper) readLoop(ctx context.Context, events chan<- engine.Event, errs chan<- error) {
	for {
		ev, err := r.source.NextEvent()
		if err != nil {
			select {
			case errs <- fmt.Errorf("device %s: %w", r.source.Name(), err):
			case <-ctx.Done():
			}
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Remapper) deliver(out []engine.Out) {
	if len(out) == 0 {
		return
	}
	if err := r.sink.Apply(out); err != nil {
		r.log.Error("writing to virtual device", "device", r.source.Name(), "error", err)
	}
}

func (r *Remapper) teardown() {
	out := r.eng.Teardown()
	r.deliver(out)
	if err := r.source.Close(); err != nil {
		r.log.Warn("closing device", "device", r.source.Name(), "error", err)
	}
}
