package sim

import (
	"context"
	"sync"
	"time"
)

// A Stepper is a simulation that advances in discrete ticks.
type Stepper interface {
	// Tick advances the simulation by one step.
	Tick()

	// Snapshot returns a copy of the state after the last completed tick.
	Snapshot() Snapshot
}

// An EndHandler is a handler that is called after the simulation ends.
type EndHandler interface {
	Handle(final Snapshot)
}

// A RealTimeDriver repeatedly ticks a Stepper at a fixed wall-clock rate.
//
// The driver is the only party that mutates the stepper. Snapshot can be
// called from any goroutine and never observes a half-finished tick.
type RealTimeDriver struct {
	stepper  Stepper
	freq     Freq
	maxTicks uint64

	stepLock sync.Mutex
	ticks    uint64

	isPaused     bool
	isPausedLock sync.Mutex
	resume       chan struct{}

	singleRunLock sync.Mutex

	endHandlers []EndHandler
}

// NewRealTimeDriver creates a driver that ticks the stepper freq times per
// second. A frequency of 0 ticks as fast as possible.
func NewRealTimeDriver(stepper Stepper, freq Freq) *RealTimeDriver {
	return &RealTimeDriver{
		stepper: stepper,
		freq:    freq,
	}
}

// WithMaxTicks makes Run return after the given number of ticks. 0 means no
// limit.
func (d *RealTimeDriver) WithMaxTicks(n uint64) *RealTimeDriver {
	d.maxTicks = n
	return d
}

// Freq returns the pace of the driver.
func (d *RealTimeDriver) Freq() Freq {
	return d.freq
}

// MaxTicks returns the tick limit, or 0 if there is none.
func (d *RealTimeDriver) MaxTicks() uint64 {
	return d.maxTicks
}

// Run ticks the stepper until the tick limit is reached or the context is
// done. It returns the context's error in the latter case.
func (d *RealTimeDriver) Run(ctx context.Context) error {
	d.singleRunLock.Lock()
	defer d.singleRunLock.Unlock()

	var pace <-chan time.Time
	if d.freq > 0 {
		ticker := time.NewTicker(d.freq.Period())
		defer ticker.Stop()
		pace = ticker.C
	}

	for {
		if d.reachedLimit() {
			return nil
		}

		if err := d.waitWhilePaused(ctx); err != nil {
			return err
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}

			// Pause may have been called while waiting for the pace.
			if d.IsPaused() {
				continue
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		d.Step()
	}
}

func (d *RealTimeDriver) reachedLimit() bool {
	if d.maxTicks == 0 {
		return false
	}

	return d.TickCount() >= d.maxTicks
}

func (d *RealTimeDriver) waitWhilePaused(ctx context.Context) error {
	for {
		d.isPausedLock.Lock()
		if !d.isPaused {
			d.isPausedLock.Unlock()
			return nil
		}
		resume := d.resume
		d.isPausedLock.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resume:
		}
	}
}

// Step performs a single tick right away, regardless of pace or pause.
func (d *RealTimeDriver) Step() {
	d.stepLock.Lock()
	defer d.stepLock.Unlock()

	d.stepper.Tick()
	d.ticks++
}

// TickCount returns the number of ticks the driver has performed.
func (d *RealTimeDriver) TickCount() uint64 {
	d.stepLock.Lock()
	defer d.stepLock.Unlock()

	return d.ticks
}

// Snapshot returns the state of the stepper between two ticks.
func (d *RealTimeDriver) Snapshot() Snapshot {
	d.stepLock.Lock()
	defer d.stepLock.Unlock()

	return d.stepper.Snapshot()
}

// Pause stops Run from performing more ticks until Continue is called.
func (d *RealTimeDriver) Pause() {
	d.isPausedLock.Lock()
	defer d.isPausedLock.Unlock()

	if d.isPaused {
		return
	}

	d.isPaused = true
	d.resume = make(chan struct{})
}

// Continue lets a paused Run carry on.
func (d *RealTimeDriver) Continue() {
	d.isPausedLock.Lock()
	defer d.isPausedLock.Unlock()

	if !d.isPaused {
		return
	}

	d.isPaused = false
	close(d.resume)
}

// IsPaused returns true if the driver is paused.
func (d *RealTimeDriver) IsPaused() bool {
	d.isPausedLock.Lock()
	defer d.isPausedLock.Unlock()

	return d.isPaused
}

// RegisterEndHandler registers a handler to be called by Finished.
func (d *RealTimeDriver) RegisterEndHandler(handler EndHandler) {
	d.endHandlers = append(d.endHandlers, handler)
}

// Finished should be called after the simulation ends. It passes the final
// snapshot to all the registered EndHandlers.
func (d *RealTimeDriver) Finished() {
	final := d.Snapshot()
	for _, h := range d.endHandlers {
		h.Handle(final)
	}
}
