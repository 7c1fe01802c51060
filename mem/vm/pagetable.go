package vm

import "fmt"

// A PageTableEntry maintains the information about how to translate one
// virtual page to a physical frame.
type PageTableEntry struct {
	Valid bool
	Frame Frame
}

// A PageTable maps every VPN of the address space to a PageTableEntry. The VPN
// is the index into the table.
type PageTable struct {
	entries []PageTableEntry
}

// NewPageTable creates a PageTable with size invalid entries.
func NewPageTable(size int) *PageTable {
	pt := &PageTable{}
	pt.SetSize(size)

	return pt
}

// SetSize reallocates the table to n invalid entries. Existing entries are
// discarded.
func (pt *PageTable) SetSize(n int) {
	pt.entries = make([]PageTableEntry, n)
}

// Size returns the number of entries.
func (pt *PageTable) Size() int {
	return len(pt.entries)
}

// Lookup reports whether the page is resident and, if so, which frame holds
// it.
func (pt *PageTable) Lookup(vpn VPN) (frame Frame, valid bool, err error) {
	if err := pt.vpnMustBeInRange(vpn); err != nil {
		return 0, false, err
	}

	e := pt.entries[vpn]

	return e.Frame, e.Valid, nil
}

// Entry returns the entry of a VPN.
func (pt *PageTable) Entry(vpn VPN) (PageTableEntry, error) {
	if err := pt.vpnMustBeInRange(vpn); err != nil {
		return PageTableEntry{}, err
	}

	return pt.entries[vpn], nil
}

// Load marks the page as resident in the given frame.
func (pt *PageTable) Load(vpn VPN, frame Frame) error {
	if err := pt.vpnMustBeInRange(vpn); err != nil {
		return err
	}

	pt.entries[vpn] = PageTableEntry{Valid: true, Frame: frame}

	return nil
}

// Invalidate marks the page as not resident.
func (pt *PageTable) Invalidate(vpn VPN) error {
	if err := pt.vpnMustBeInRange(vpn); err != nil {
		return err
	}

	pt.entries[vpn] = PageTableEntry{}

	return nil
}

// Clear invalidates every entry without resizing the table.
func (pt *PageTable) Clear() {
	for i := range pt.entries {
		pt.entries[i] = PageTableEntry{}
	}
}

// Rows renders the table for display.
func (pt *PageTable) Rows() Table {
	t := Table{
		Name:    "Page Table",
		Columns: []string{"Index", "Valid", "Physical Page"},
		Rows:    make([]Row, 0, len(pt.entries)),
	}

	for i, e := range pt.entries {
		valid := "0"
		frame := ""
		if e.Valid {
			valid = "1"
			frame = e.Frame.Hex()
		}

		t.Rows = append(t.Rows, Row{VPN(i).Hex(), valid, frame})
	}

	return t
}

func (pt *PageTable) vpnMustBeInRange(vpn VPN) error {
	if vpn >= VPN(len(pt.entries)) {
		return fmt.Errorf("%w: VPN %s does not fit in a page table of %d entries",
			ErrAddressOutOfRange, vpn.Hex(), len(pt.entries))
	}

	return nil
}
