package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
)

// StepNumber identifies one of the four phases of a translation.
type StepNumber int

// The phases of a translation, in the order they must be invoked.
const (
	StepTLBLookup StepNumber = iota + 1
	StepPageTableLookup
	StepLoadPage
	StepComplete
)

// Valid tells if the step number names one of the four phases.
func (s StepNumber) Valid() bool {
	return s >= StepTLBLookup && s <= StepComplete
}

func (s StepNumber) String() string {
	switch s {
	case StepTLBLookup:
		return "TLB lookup"
	case StepPageTableLookup:
		return "page table lookup"
	case StepLoadPage:
		return "page load"
	case StepComplete:
		return "completion"
	default:
		return fmt.Sprintf("step %d", int(s))
	}
}

// State is the position of the engine within the translation of one address.
type State int

// The states of the step state machine.
const (
	StateAwaitingStep1 State = iota
	StateAwaitingStep2
	StateAwaitingStep3
	StateAwaitingStep4
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingStep1:
		return "AwaitingStep1"
	case StateAwaitingStep2:
		return "AwaitingStep2"
	case StateAwaitingStep3:
		return "AwaitingStep3"
	case StateAwaitingStep4:
		return "AwaitingStep4"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// InFlight tells if an address has started but not finished translating.
func (s State) InFlight() bool {
	return s >= StateAwaitingStep2 && s <= StateAwaitingStep4
}

// OutcomeKind classifies what a step found.
type OutcomeKind int

// The kinds of outcome.
const (
	OutcomeHit OutcomeKind = iota
	OutcomeMiss
	OutcomeServiced
	OutcomeCompleted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeHit:
		return "Hit"
	case OutcomeMiss:
		return "Miss"
	case OutcomeServiced:
		return "Serviced"
	case OutcomeCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// MarshalText renders the kind by name.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// An Outcome reports the effect of one step.
type Outcome struct {
	Step    StepNumber  `json:"step"`
	Kind    OutcomeKind `json:"kind"`
	Address string      `json:"address"`
	VPN     vm.VPN      `json:"vpn"`
	Offset  uint64      `json:"offset"`

	// Frame is only meaningful when HasFrame is set. A miss does not know the
	// frame yet.
	Frame    vm.Frame `json:"frame"`
	HasFrame bool     `json:"has_frame"`

	// Terminal marks the last step of the address.
	Terminal bool `json:"terminal"`
}

// VPNHex returns the VPN in canonical hex.
func (o Outcome) VPNHex() string {
	return o.VPN.Hex()
}

// FrameHex returns the frame in canonical hex, or an empty string if the
// outcome does not carry a frame.
func (o Outcome) FrameHex() string {
	if !o.HasFrame {
		return ""
	}

	return o.Frame.Hex()
}

// Result is what a one-shot translation produces.
type Result struct {
	Final  Outcome   `json:"final"`
	Events []Outcome `json:"events"`
}

// Hit tells if the address was found in the TLB or the page table.
func (r Result) Hit() bool {
	return r.Final.Kind == OutcomeHit
}

// Stats counts translated addresses. Each address counts once, either as a
// hit or as a miss.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Total returns the number of counted addresses.
func (s Stats) Total() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns the percentage of hits, or 0 if nothing is counted.
func (s Stats) HitRate() float64 {
	if s.Total() == 0 {
		return 0
	}

	return float64(s.Hits) * 100 / float64(s.Total())
}

// MissRate returns the percentage of misses, or 0 if nothing is counted.
func (s Stats) MissRate() float64 {
	if s.Total() == 0 {
		return 0
	}

	return float64(s.Misses) * 100 / float64(s.Total())
}

// A Snapshot is a display copy of the three tables.
type Snapshot struct {
	TLB            vm.Table `json:"tlb"`
	PageTable      vm.Table `json:"page_table"`
	PhysicalMemory vm.Table `json:"physical_memory"`
}

// FrameReuse describes a frame that is handed to a new page while an older
// page still occupies it.
type FrameReuse struct {
	Frame         vm.Frame `json:"frame"`
	PreviousOwner vm.VPN   `json:"previous_owner"`
	NewOwner      vm.VPN   `json:"new_owner"`
}
