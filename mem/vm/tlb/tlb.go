// Package tlb provides a fully-associative translation lookaside buffer with
// FIFO replacement.
package tlb

import (
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/tlb/internal"
)

// An Entry maps a virtual page to the frame that holds it.
type Entry = internal.Entry

// TLB caches VPN-to-frame mappings in a fixed number of slots. Slots are
// overwritten in insertion order regardless of what they hold, so the same VPN
// may live in more than one slot. Lookups scan the slots in order and the
// first match wins.
type TLB struct {
	name string
	set  internal.Set
}

// Name returns the name of the TLB.
func (t *TLB) Name() string {
	return t.name
}

// SetSize discards every entry and resizes the TLB to capacity slots.
func (t *TLB) SetSize(capacity int) {
	t.set = internal.NewSet(capacity)
}

// Capacity returns the number of slots.
func (t *TLB) Capacity() int {
	return t.set.NumWays()
}

// Lookup returns the frame that the VPN maps to.
func (t *TLB) Lookup(vpn vm.VPN) (vm.Frame, bool) {
	_, entry, found := t.set.Lookup(vpn)

	return entry.Frame, found
}

// LookupSlot returns the first slot that holds the VPN.
func (t *TLB) LookupSlot(vpn vm.VPN) (slot int, entry Entry, found bool) {
	return t.set.Lookup(vpn)
}

// Insert writes a mapping into the oldest slot. The previous content of the
// slot is returned; its Valid field tells if a mapping was evicted.
func (t *TLB) Insert(vpn vm.VPN, frame vm.Frame) (evicted Entry) {
	wayID := t.set.Evict()
	evicted = t.set.Entry(wayID)
	t.set.Update(wayID, Entry{VPN: vpn, Frame: frame, Valid: true})

	return evicted
}

// Invalidate empties every slot that maps to the frame and returns how many
// slots were emptied. The replacement order is not affected.
func (t *TLB) Invalidate(frame vm.Frame) int {
	n := 0

	for wayID := 0; wayID < t.set.NumWays(); wayID++ {
		e := t.set.Entry(wayID)
		if e.Valid && e.Frame == frame {
			t.set.Update(wayID, Entry{})
			n++
		}
	}

	return n
}

// Entries returns the content of every slot in slot order.
func (t *TLB) Entries() []Entry {
	entries := make([]Entry, t.set.NumWays())
	for i := range entries {
		entries[i] = t.set.Entry(i)
	}

	return entries
}

// Clear empties every slot and rewinds the replacement order. The capacity
// does not change.
func (t *TLB) Clear() {
	t.SetSize(t.set.NumWays())
}

// Rows renders the TLB for display.
func (t *TLB) Rows() vm.Table {
	table := vm.Table{
		Name:    "TLB",
		Columns: []string{"Index", "Virtual Page", "Physical Page"},
		Rows:    make([]vm.Row, 0, t.set.NumWays()),
	}

	for i, e := range t.Entries() {
		row := vm.Row{strings.ToUpper(strconv.FormatInt(int64(i), 16)), "", ""}
		if e.Valid {
			row[1] = e.VPN.Hex()
			row[2] = e.Frame.Hex()
		}

		table.Rows = append(table.Rows, row)
	}

	return table
}
