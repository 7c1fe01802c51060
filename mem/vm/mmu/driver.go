package mmu

import (
	"errors"
	"fmt"
)

// A Driver feeds a queue of addresses to an engine one step at a time.
type Driver struct {
	engine   *Engine
	queue    []string
	current  string
	inFlight bool
}

// NewDriver creates a driver for the engine.
func NewDriver(engine *Engine) *Driver {
	return &Driver{engine: engine}
}

// Submit appends addresses to the queue.
func (d *Driver) Submit(addresses ...string) {
	d.queue = append(d.queue, addresses...)
}

// Pending returns the number of addresses that have not started.
func (d *Driver) Pending() int {
	return len(d.queue)
}

// Current returns the address being translated, if any.
func (d *Driver) Current() (string, bool) {
	return d.current, d.inFlight
}

// Abort drops the address being translated, if any, and aborts the engine.
// Queued addresses stay queued.
func (d *Driver) Abort() {
	d.engine.Abort()
	d.current = ""
	d.inFlight = false
}

// Next runs one step. When the current address is finished, the next queued
// address is started. An address whose step fails is dropped.
func (d *Driver) Next() (Outcome, error) {
	if !d.inFlight {
		if len(d.queue) == 0 {
			return Outcome{}, ErrNoPendingAddress
		}

		d.engine.Abort()

		d.current = d.queue[0]
		d.queue = d.queue[1:]
		d.inFlight = true
	}

	o, err := d.engine.Step(d.current, d.engine.NextStep())
	if err != nil {
		d.engine.Abort()
		d.inFlight = false

		return Outcome{}, fmt.Errorf("address %s: %w", d.current, err)
	}

	if o.Terminal {
		d.inFlight = false
	}

	return o, nil
}

// Drain steps until the queue is empty. The outcomes of every successful step
// are returned together with the errors of the dropped addresses.
func (d *Driver) Drain() ([]Outcome, error) {
	var (
		outcomes []Outcome
		errs     []error
	)

	for {
		o, err := d.Next()
		if errors.Is(err, ErrNoPendingAddress) {
			return outcomes, errors.Join(errs...)
		}

		if err != nil {
			errs = append(errs, err)
			continue
		}

		outcomes = append(outcomes, o)
	}
}
