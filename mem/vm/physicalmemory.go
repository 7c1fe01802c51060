package vm

import "fmt"

// A PhysicalFrame records which virtual page, if any, occupies a frame.
type PhysicalFrame struct {
	Occupied bool
	Owner    VPN
}

// Content describes the occupant of the frame for display.
func (f PhysicalFrame) Content() string {
	if !f.Occupied {
		return ""
	}

	return fmt.Sprintf("Block %s from 0-%d", f.Owner.Hex(), PageSize)
}

// PhysicalMemory is a fixed number of frames handed out in round-robin order.
// Frames are never released by allocation; once the cursor wraps around, the
// next allocation takes the frame over from its previous occupant.
type PhysicalMemory struct {
	frames []PhysicalFrame
	next   int
}

// NewPhysicalMemory creates a PhysicalMemory with n free frames.
func NewPhysicalMemory(n int) *PhysicalMemory {
	m := &PhysicalMemory{}
	m.SetSize(n)

	return m
}

// SetSize reallocates memory to n free frames and rewinds the allocation
// cursor.
func (m *PhysicalMemory) SetSize(n int) {
	m.frames = make([]PhysicalFrame, n)
	m.next = 0
}

// Size returns the number of frames.
func (m *PhysicalMemory) Size() int {
	return len(m.frames)
}

// NextFrame returns the frame that the next allocation will use.
func (m *PhysicalMemory) NextFrame() Frame {
	return Frame(m.next)
}

// Allocate places the page in the frame under the cursor and advances the
// cursor. The previous state of the frame is returned so that the caller can
// tell whether a resident page was displaced.
func (m *PhysicalMemory) Allocate(vpn VPN) (Frame, PhysicalFrame) {
	if len(m.frames) == 0 {
		panic("physical memory has no frames")
	}

	frame := Frame(m.next)
	previous := m.frames[m.next]
	m.frames[m.next] = PhysicalFrame{Occupied: true, Owner: vpn}

	m.next++
	if m.next >= len(m.frames) {
		m.next = 0
	}

	return frame, previous
}

// Frame returns the state of a frame. The bool is false if the frame does not
// exist.
func (m *PhysicalMemory) Frame(f Frame) (PhysicalFrame, bool) {
	if f >= Frame(len(m.frames)) {
		return PhysicalFrame{}, false
	}

	return m.frames[f], true
}

// Clear frees every frame and rewinds the allocation cursor. The number of
// frames does not change.
func (m *PhysicalMemory) Clear() {
	for i := range m.frames {
		m.frames[i] = PhysicalFrame{}
	}

	m.next = 0
}

// Rows renders the memory for display.
func (m *PhysicalMemory) Rows() Table {
	t := Table{
		Name:    "Physical Memory",
		Columns: []string{"Physical Page", "Content"},
		Rows:    make([]Row, 0, len(m.frames)),
	}

	for i, f := range m.frames {
		t.Rows = append(t.Rows, Row{Frame(i).Hex(), f.Content()})
	}

	return t
}
