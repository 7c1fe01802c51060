// Package internal provides the definition required for defining TLB.
package internal

import "github.com/sarchlab/vmsim/mem/vm"

// An Entry is the content of one way. Empty ways have Valid set to false.
type Entry struct {
	VPN   vm.VPN
	Frame vm.Frame
	Valid bool
}

// A Set holds a fixed number of ways that are replaced in FIFO order.
type Set interface {
	// Lookup returns the lowest way that holds the VPN.
	Lookup(vpn vm.VPN) (wayID int, entry Entry, found bool)

	// Update writes an entry into a way.
	Update(wayID int, entry Entry)

	// Evict picks the way to be overwritten next and moves the victim
	// pointer to the following way.
	Evict() (wayID int)

	// Entry returns the content of a way.
	Entry(wayID int) Entry

	// NumWays returns the number of ways.
	NumWays() int
}

// NewSet creates a new set with numWays empty ways.
func NewSet(numWays int) Set {
	if numWays < 1 {
		panic("a set must have at least one way")
	}

	s := &setImpl{}
	s.blocks = make([]*block, numWays)
	for i := range s.blocks {
		s.blocks[i] = &block{wayID: i}
	}

	return s
}

type block struct {
	wayID int
	entry Entry
}

type setImpl struct {
	blocks     []*block
	nextVictim int
}

func (s *setImpl) Lookup(vpn vm.VPN) (wayID int, entry Entry, found bool) {
	for _, b := range s.blocks {
		if b.entry.Valid && b.entry.VPN == vpn {
			return b.wayID, b.entry, true
		}
	}

	return 0, Entry{}, false
}

func (s *setImpl) Update(wayID int, entry Entry) {
	s.blocks[wayID].entry = entry
}

func (s *setImpl) Evict() (wayID int) {
	wayID = s.nextVictim

	s.nextVictim++
	if s.nextVictim == len(s.blocks) {
		s.nextVictim = 0
	}

	return wayID
}

func (s *setImpl) Entry(wayID int) Entry {
	return s.blocks[wayID].entry
}

func (s *setImpl) NumWays() int {
	return len(s.blocks)
}
