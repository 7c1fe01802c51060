package vm

import (
	"fmt"
	"math/bits"
)

// Config describes the sizes of one translation hierarchy. A Config is
// immutable for the lifetime of a simulation run.
type Config struct {
	// AddressBits is the width of a virtual address.
	AddressBits int `json:"address_bits"`

	// TLBCapacity is the number of TLB slots.
	TLBCapacity int `json:"tlb_capacity"`

	// PhysicalFrameCount is the number of frames in physical memory. It must
	// be a power of two.
	PhysicalFrameCount int `json:"physical_frame_count"`

	// StrictWidth requires every address to be written with exactly
	// HexDigits() digits.
	StrictWidth bool `json:"strict_width,omitempty"`
}

// PageTableSize returns the number of page-table entries, one per VPN.
func (c Config) PageTableSize() int {
	return 1 << (c.AddressBits - OffsetBits)
}

// VPNBits returns the number of address bits that form the VPN.
func (c Config) VPNBits() int {
	return c.AddressBits - OffsetBits
}

// HexDigits returns the number of hexadecimal digits needed to write an
// address.
func (c Config) HexDigits() int {
	return (c.AddressBits + 3) / 4
}

// VirtualMemorySize returns the size of the virtual address space in bytes.
func (c Config) VirtualMemorySize() uint64 {
	return 1 << c.AddressBits
}

// PhysicalMemorySize returns the size of physical memory in bytes.
func (c Config) PhysicalMemorySize() uint64 {
	return uint64(c.PhysicalFrameCount) * PageSize
}

// PhysicalAddressBits returns the width of a physical address.
func (c Config) PhysicalAddressBits() int {
	return bits.TrailingZeros64(c.PhysicalMemorySize())
}

// Validate checks that a hierarchy can be built from the config.
func (c Config) Validate() error {
	switch {
	case c.AddressBits <= OffsetBits:
		return fmt.Errorf("%w: address must be wider than %d bits, got %d",
			ErrInvalidConfiguration, OffsetBits, c.AddressBits)
	case c.AddressBits > MaxAddressBits:
		return fmt.Errorf("%w: address must be at most %d bits, got %d",
			ErrInvalidConfiguration, MaxAddressBits, c.AddressBits)
	case c.TLBCapacity < 1:
		return fmt.Errorf("%w: TLB capacity must be positive, got %d",
			ErrInvalidConfiguration, c.TLBCapacity)
	case !isPowerOfTwo(uint64(max(c.PhysicalFrameCount, 0))):
		return fmt.Errorf(
			"%w: physical frame count must be a positive power of 2, got %d",
			ErrInvalidConfiguration, c.PhysicalFrameCount)
	}

	return nil
}

// ConfigFromSizes derives a Config from the size of the virtual address space
// and the size of physical memory, both in bytes.
func ConfigFromSizes(
	virtualMemorySize, physicalMemorySize uint64,
	tlbCapacity int,
) (Config, error) {
	if !isPowerOfTwo(virtualMemorySize) {
		return Config{}, fmt.Errorf(
			"%w: virtual memory size must be a power of 2, got %d",
			ErrInvalidConfiguration, virtualMemorySize)
	}

	if !isPowerOfTwo(physicalMemorySize) || physicalMemorySize < PageSize {
		return Config{}, fmt.Errorf(
			"%w: physical memory size must be a power of 2 "+
				"no smaller than a page, got %d",
			ErrInvalidConfiguration, physicalMemorySize)
	}

	c := Config{
		AddressBits:        bits.TrailingZeros64(virtualMemorySize),
		TLBCapacity:        tlbCapacity,
		PhysicalFrameCount: int(physicalMemorySize / PageSize),
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}
