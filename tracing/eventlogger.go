package tracing

import (
	"log"

	"github.com/sarchlab/vmsim/instrumentation/hooking"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/bitcodec"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/tlb"
)

type configuredDomain interface {
	Config() (vm.Config, bool)
}

// EventLogger is a hook that narrates what the engine does, one line per
// event.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
}

// Func writes the event into the logger
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case mmu.HookPosConfigure:
		h.logConfig(ctx.Item.(vm.Config))
	case mmu.HookPosStep:
		h.logStep(ctx, ctx.Item.(mmu.Outcome))
	case mmu.HookPosTLBEvict:
		e := ctx.Item.(tlb.Entry)
		h.Printf("TLB entry for Virtual Page %s (Physical Page %s) evicted.",
			e.VPN.Hex(), e.Frame.Hex())
	case mmu.HookPosFrameReuse:
		r := ctx.Item.(mmu.FrameReuse)
		h.Printf("Physical Page %s taken from Virtual Page %s for Virtual Page %s.",
			r.Frame.Hex(), r.PreviousOwner.Hex(), r.NewOwner.Hex())
	case mmu.HookPosReset:
		h.Printf("Simulator reset successfully.")
	case mmu.HookPosAbort:
		h.Printf("Translation of %s abandoned.", ctx.Item.(string))
	}
}

func (h *EventLogger) logConfig(c vm.Config) {
	h.Printf("Memory visualization initialized successfully.")
	h.Printf("TLB Size: %d", c.TLBCapacity)
	h.Printf("Page Table Rows: Virtual Memory Size / 2^offset = %d",
		c.PageTableSize())
	h.Printf("Physical Memory Rows: Physical Memory Size / 2^offset = %d",
		c.PhysicalFrameCount)
	h.Printf("Virtual Address Length: log2(Virtual Memory Size) = %d bits",
		c.AddressBits)
	h.Printf("Physical Address Length: log2(Physical Memory Size) = %d bits",
		c.PhysicalAddressBits())
}

func (h *EventLogger) logStep(ctx hooking.HookCtx, o mmu.Outcome) {
	switch o.Step {
	case mmu.StepTLBLookup:
		h.Printf("Step 1: Checking TLB for Virtual Page Number (Hex): %s",
			o.VPNHex())

		if o.Kind == mmu.OutcomeHit {
			h.Printf("TLB Hit! Virtual Address %s (Binary: %s), Physical Page: %s",
				o.Address, h.binary(ctx, o.Address), o.FrameHex())
		} else {
			h.Printf("TLB Miss! Proceeding to Page Table.")
		}
	case mmu.StepPageTableLookup:
		h.Printf("Step 2: Checking Page Table for Virtual Page Number (Hex): %s",
			o.VPNHex())

		if o.Kind == mmu.OutcomeHit {
			h.Printf("Page Table HIT! At Virtual Address %s (Binary: %s), Physical Page: %s",
				o.Address, h.binary(ctx, o.Address), o.FrameHex())
		} else {
			h.Printf("Page Table Miss! Loading from secondary memory.")
		}
	case mmu.StepLoadPage:
		h.Printf("Step 3: Data will be loaded from Secondary Memory.")
		h.Printf("Virtual Page %s loaded into Physical Page %s.",
			o.VPNHex(), o.FrameHex())
	case mmu.StepComplete:
		h.Printf("Final Step: Simulation complete for this address. Submit another one!")
	}
}

func (h *EventLogger) binary(ctx hooking.HookCtx, address string) string {
	d, ok := ctx.Domain.(configuredDomain)
	if !ok {
		return "?"
	}

	c, ok := d.Config()
	if !ok {
		return "?"
	}

	b, err := bitcodec.HexToBinary(address, c.AddressBits)
	if err != nil {
		return "?"
	}

	return b
}
