package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PhysicalMemory", func() {
	var m *PhysicalMemory

	BeforeEach(func() {
		m = NewPhysicalMemory(4)
	})

	It("should allocate frames in round-robin order", func() {
		for i := 0; i < 4; i++ {
			frame, previous := m.Allocate(VPN(i + 10))

			Expect(frame).To(Equal(Frame(i)))
			Expect(previous.Occupied).To(BeFalse())
		}

		frame, previous := m.Allocate(20)

		Expect(frame).To(Equal(Frame(0)))
		Expect(previous).To(Equal(PhysicalFrame{Occupied: true, Owner: 10}))
	})

	It("should record the owner of a frame", func() {
		m.Allocate(7)

		f, ok := m.Frame(0)

		Expect(ok).To(BeTrue())
		Expect(f.Owner).To(Equal(VPN(7)))
		Expect(f.Content()).To(Equal("Block 7 from 0-4"))
	})

	It("should not find frames beyond the end", func() {
		_, ok := m.Frame(4)
		Expect(ok).To(BeFalse())
	})

	It("should rewind on clear", func() {
		m.Allocate(1)
		m.Allocate(2)

		m.Clear()

		Expect(m.Size()).To(Equal(4))
		Expect(m.NextFrame()).To(Equal(Frame(0)))
		f, _ := m.Frame(0)
		Expect(f.Occupied).To(BeFalse())
	})

	It("should panic when there are no frames", func() {
		m.SetSize(0)
		Expect(func() { m.Allocate(0) }).To(Panic())
	})

	It("should render rows", func() {
		m.Allocate(0xB)

		t := m.Rows()

		Expect(t.Columns).To(Equal([]string{"Physical Page", "Content"}))
		Expect(t.Rows).To(Equal([]Row{
			{"0", "Block B from 0-4"},
			{"1", ""},
			{"2", ""},
			{"3", ""},
		}))
	})
})
