package mmu

import "github.com/sarchlab/vmsim/instrumentation/hooking"

var (
	// HookPosConfigure fires after a successful Configure. Item is the new
	// vm.Config.
	HookPosConfigure = &hooking.HookPos{Name: "Configure"}

	// HookPosStep fires after every successful step. Item is the Outcome and
	// Detail is the Stats after the step.
	HookPosStep = &hooking.HookPos{Name: "Step"}

	// HookPosTLBEvict fires when an insert overwrites an occupied TLB slot.
	// Item is the evicted tlb.Entry.
	HookPosTLBEvict = &hooking.HookPos{Name: "TLBEvict"}

	// HookPosFrameReuse fires when an occupied frame is given to a new page.
	// Item is a FrameReuse.
	HookPosFrameReuse = &hooking.HookPos{Name: "FrameReuse"}

	// HookPosReset fires after Reset.
	HookPosReset = &hooking.HookPos{Name: "Reset"}

	// HookPosAbort fires when an in-flight address is dropped. Item is the
	// address.
	HookPosAbort = &hooking.HookPos{Name: "Abort"}
)
