package mmu

import (
	"github.com/sarchlab/vmsim/instrumentation/hooking"
	"github.com/sarchlab/vmsim/mem/vm"
)

// A Builder can build translation engines.
type Builder struct {
	cfg          vm.Config
	hasConfig    bool
	frameReclaim bool
	hooks        []hooking.Hook
}

// MakeBuilder creates a new builder. Without a config, the engine it builds
// stays unconfigured until Configure is called.
func MakeBuilder() Builder {
	return Builder{}
}

// WithConfig sets the sizes of the hierarchy.
func (b Builder) WithConfig(cfg vm.Config) Builder {
	b.cfg = cfg
	b.hasConfig = true

	return b
}

// WithAddressBits sets the width of a virtual address.
func (b Builder) WithAddressBits(n int) Builder {
	b.cfg.AddressBits = n
	b.hasConfig = true

	return b
}

// WithTLBCapacity sets the number of TLB slots.
func (b Builder) WithTLBCapacity(n int) Builder {
	b.cfg.TLBCapacity = n
	b.hasConfig = true

	return b
}

// WithPhysicalFrameCount sets the number of physical frames.
func (b Builder) WithPhysicalFrameCount(n int) Builder {
	b.cfg.PhysicalFrameCount = n
	b.hasConfig = true

	return b
}

// WithFrameReclaim makes the engine drop the page-table entry and the TLB
// slots of a page whose frame is given to another page. By default the stale
// mappings are kept.
func (b Builder) WithFrameReclaim(enabled bool) Builder {
	b.frameReclaim = enabled
	return b
}

// WithHooks attaches hooks to the engine before it is configured, so that
// they also observe the initial configuration.
func (b Builder) WithHooks(hooks ...hooking.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], hooks...)
	return b
}

// Build creates a new engine.
func (b Builder) Build(name string) (*Engine, error) {
	e := &Engine{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		frameReclaim: b.frameReclaim,
		pageTable:    vm.NewPageTable(0),
		memory:       vm.NewPhysicalMemory(0),
	}

	for _, h := range b.hooks {
		e.AcceptHook(h)
	}

	if !b.hasConfig {
		return e, nil
	}

	if err := e.Configure(b.cfg); err != nil {
		return nil, err
	}

	return e, nil
}
