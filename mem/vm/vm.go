// Package vm provides the models for address translations.
//
// A translation hierarchy is made of a TLB, a single-level page table and a
// physical memory. This package holds the page table, the physical memory and
// the types shared by the packages that build on them.
package vm

import (
	"strconv"
	"strings"
)

// OffsetBits is the number of low-order address bits that select a byte
// within a page. It does not depend on the configured address width.
const OffsetBits = 2

// PageSize is the number of bytes in a page.
const PageSize = 1 << OffsetBits

// MaxAddressBits bounds the virtual address width so that the page table
// stays small enough to be allocated eagerly.
const MaxAddressBits = 24

// VPN stands for virtual page number.
type VPN uint64

// Hex returns the canonical rendering of the VPN.
func (v VPN) Hex() string {
	return hexString(uint64(v))
}

// Frame is the index of a physical frame.
type Frame uint64

// Hex returns the canonical rendering of the frame number.
func (f Frame) Hex() string {
	return hexString(uint64(f))
}

func hexString(v uint64) string {
	return strings.ToUpper(strconv.FormatUint(v, 16))
}
