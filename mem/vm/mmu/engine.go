// Package mmu provides the translation engine that walks a virtual address
// through the TLB, the page table and physical memory one step at a time.
package mmu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vmsim/instrumentation/hooking"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/bitcodec"
	"github.com/sarchlab/vmsim/mem/vm/tlb"
)

type inflight struct {
	address string
	vpn     vm.VPN
	offset  uint64
	frame   vm.Frame
}

// Engine owns one translation hierarchy. It is not safe for concurrent use;
// a concurrent host must serialize every call.
type Engine struct {
	*hooking.HookableBase

	name         string
	cfg          vm.Config
	configured   bool
	frameReclaim bool

	tlb       *tlb.TLB
	pageTable *vm.PageTable
	memory    *vm.PhysicalMemory

	stats   Stats
	state   State
	current inflight
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return e.name
}

// Config returns the current configuration. The bool is false if the engine
// has never been configured.
func (e *Engine) Config() (vm.Config, bool) {
	return e.cfg, e.configured
}

// Stats returns the hit and miss counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// State returns the state of the step state machine.
func (e *Engine) State() State {
	return e.state
}

// NextStep returns the step that the engine accepts next.
func (e *Engine) NextStep() StepNumber {
	switch e.state {
	case StateAwaitingStep2:
		return StepPageTableLookup
	case StateAwaitingStep3:
		return StepLoadPage
	case StateAwaitingStep4:
		return StepComplete
	default:
		return StepTLBLookup
	}
}

// Current returns the address being translated, if any.
func (e *Engine) Current() (string, bool) {
	if !e.state.InFlight() {
		return "", false
	}

	return e.current.address, true
}

// Configure resizes the hierarchy. All tables become empty, the counters are
// zeroed and any in-flight address is dropped. An invalid config leaves the
// engine untouched.
func (e *Engine) Configure(cfg vm.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.cfg = cfg
	e.configured = true

	e.tlb = tlb.MakeBuilder().
		WithNumWays(cfg.TLBCapacity).
		Build(e.name + ".TLB")
	e.pageTable.SetSize(cfg.PageTableSize())
	e.memory.SetSize(cfg.PhysicalFrameCount)

	e.stats = Stats{}
	e.state = StateAwaitingStep1
	e.current = inflight{}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosConfigure,
		Item:   cfg,
	})

	return nil
}

// Reset empties all three tables and zeroes the counters. The sizes are kept.
func (e *Engine) Reset() {
	if e.tlb != nil {
		e.tlb.Clear()
	}

	e.pageTable.Clear()
	e.memory.Clear()

	e.stats = Stats{}
	e.state = StateAwaitingStep1
	e.current = inflight{}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosReset,
	})
}

// Abort drops the in-flight address, if any. Tables and counters are kept.
func (e *Engine) Abort() {
	if !e.state.InFlight() {
		return
	}

	address := e.current.address
	e.state = StateAwaitingStep1
	e.current = inflight{}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosAbort,
		Item:   address,
	})
}

// SplitAddress decodes a hex address into its VPN and the two offset bits.
// The whole value is decoded, so an address with more significant bits than
// the configured width yields a VPN that does not fit the page table.
func (e *Engine) SplitAddress(address string) (vpn vm.VPN, offset uint64, err error) {
	if !e.configured {
		return 0, 0, ErrNotConfigured
	}

	if address == "" {
		return 0, 0, fmt.Errorf("%w: empty address", vm.ErrAddressLengthMismatch)
	}

	value, err := bitcodec.ParseHex(address)
	if errors.Is(err, bitcodec.ErrOverflow) {
		return 0, 0, fmt.Errorf("%w: %s is wider than 64 bits",
			vm.ErrAddressLengthMismatch, address)
	}

	if err != nil {
		return 0, 0, err
	}

	if e.cfg.StrictWidth && len(address) != e.cfg.HexDigits() {
		return 0, 0, fmt.Errorf("%w: %s has %d digits, want %d",
			vm.ErrAddressLengthMismatch, address, len(address), e.cfg.HexDigits())
	}

	vpn = vm.VPN(value >> vm.OffsetBits)
	offset = value & (vm.PageSize - 1)

	if uint64(vpn) >= uint64(e.cfg.PageTableSize()) {
		return 0, 0, fmt.Errorf("%w: VPN %s of address %s, page table has %d entries",
			vm.ErrAddressOutOfRange, vpn.Hex(), address, e.cfg.PageTableSize())
	}

	return vpn, offset, nil
}

// Step runs one phase of the translation of an address. The step must be the
// one NextStep returns, and steps 2 to 4 must name the address that step 1
// started. A failed step changes nothing.
func (e *Engine) Step(address string, step StepNumber) (Outcome, error) {
	if !e.configured {
		return Outcome{}, ErrNotConfigured
	}

	if step != e.NextStep() {
		return Outcome{}, fmt.Errorf("%w: expected step %d, got %d",
			vm.ErrInvalidStepSequence, e.NextStep(), step)
	}

	vpn, offset, err := e.SplitAddress(address)
	if err != nil {
		return Outcome{}, err
	}

	if step != StepTLBLookup &&
		(vpn != e.current.vpn || offset != e.current.offset) {
		return Outcome{}, fmt.Errorf("%w: step %d of %s while translating %s",
			vm.ErrInvalidStepSequence, step, address, e.current.address)
	}

	var outcome Outcome

	switch step {
	case StepTLBLookup:
		e.current = inflight{address: address, vpn: vpn, offset: offset}
		outcome = e.lookupTLB()
	case StepPageTableLookup:
		outcome = e.lookupPageTable()
	case StepLoadPage:
		outcome = e.loadPage()
	case StepComplete:
		outcome = e.complete()
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosStep,
		Item:   outcome,
		Detail: e.stats,
	})

	return outcome, nil
}

func (e *Engine) newOutcome(step StepNumber, kind OutcomeKind) Outcome {
	return Outcome{
		Step:    step,
		Kind:    kind,
		Address: e.current.address,
		VPN:     e.current.vpn,
		Offset:  e.current.offset,
	}
}

func (e *Engine) lookupTLB() Outcome {
	frame, found := e.tlb.Lookup(e.current.vpn)
	if !found {
		e.state = StateAwaitingStep2
		return e.newOutcome(StepTLBLookup, OutcomeMiss)
	}

	e.stats.Hits++
	e.state = StateDone

	o := e.newOutcome(StepTLBLookup, OutcomeHit)
	o.Frame = frame
	o.HasFrame = true
	o.Terminal = true

	return o
}

func (e *Engine) lookupPageTable() Outcome {
	frame, valid, err := e.pageTable.Lookup(e.current.vpn)
	if err != nil {
		panic(err)
	}

	if !valid {
		e.stats.Misses++
		e.state = StateAwaitingStep3

		return e.newOutcome(StepPageTableLookup, OutcomeMiss)
	}

	e.stats.Hits++
	e.state = StateDone
	e.insertIntoTLB(e.current.vpn, frame)

	o := e.newOutcome(StepPageTableLookup, OutcomeHit)
	o.Frame = frame
	o.HasFrame = true
	o.Terminal = true

	return o
}

func (e *Engine) loadPage() Outcome {
	vpn := e.current.vpn

	frame, previous := e.memory.Allocate(vpn)
	if previous.Occupied {
		e.reuseFrame(frame, previous.Owner, vpn)
	}

	if err := e.pageTable.Load(vpn, frame); err != nil {
		panic(err)
	}

	e.insertIntoTLB(vpn, frame)

	e.current.frame = frame
	e.state = StateAwaitingStep4

	o := e.newOutcome(StepLoadPage, OutcomeServiced)
	o.Frame = frame
	o.HasFrame = true

	return o
}

func (e *Engine) complete() Outcome {
	e.state = StateDone

	o := e.newOutcome(StepComplete, OutcomeCompleted)
	o.Frame = e.current.frame
	o.HasFrame = true
	o.Terminal = true

	return o
}

func (e *Engine) insertIntoTLB(vpn vm.VPN, frame vm.Frame) {
	evicted := e.tlb.Insert(vpn, frame)
	if !evicted.Valid {
		return
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosTLBEvict,
		Item:   evicted,
	})
}

func (e *Engine) reuseFrame(frame vm.Frame, previousOwner, newOwner vm.VPN) {
	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosFrameReuse,
		Item: FrameReuse{
			Frame:         frame,
			PreviousOwner: previousOwner,
			NewOwner:      newOwner,
		},
	})

	if !e.frameReclaim {
		return
	}

	entry, err := e.pageTable.Entry(previousOwner)
	if err == nil && entry.Valid && entry.Frame == frame {
		_ = e.pageTable.Invalidate(previousOwner)
	}

	e.tlb.Invalidate(frame)
}

// Translate runs every remaining step of an address and returns the outcome
// of each. It cannot start while a stepped translation is in flight.
func (e *Engine) Translate(address string) (Result, error) {
	if !e.configured {
		return Result{}, ErrNotConfigured
	}

	if e.state.InFlight() {
		return Result{}, fmt.Errorf("%w: %s is still being translated",
			vm.ErrInvalidStepSequence, e.current.address)
	}

	if _, _, err := e.SplitAddress(address); err != nil {
		return Result{}, err
	}

	result := Result{Events: make([]Outcome, 0, 4)}

	for {
		o, err := e.Step(address, e.NextStep())
		if err != nil {
			panic(err)
		}

		result.Events = append(result.Events, o)

		if o.Terminal {
			result.Final = o
			return result, nil
		}
	}
}

// Snapshot copies the three tables for display.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		PageTable:      e.pageTable.Rows(),
		PhysicalMemory: e.memory.Rows(),
	}

	if e.tlb != nil {
		s.TLB = e.tlb.Rows()
	}

	return s
}
