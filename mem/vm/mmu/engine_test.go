package mmu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/instrumentation/hooking"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/bitcodec"
	"github.com/sarchlab/vmsim/mem/vm/tlb"
	"go.uber.org/mock/gomock"
)

func kinds(events []Outcome) []OutcomeKind {
	ks := make([]OutcomeKind, 0, len(events))
	for _, e := range events {
		ks = append(ks, e.Kind)
	}

	return ks
}

var _ = Describe("Engine", func() {
	var (
		mockCtrl *gomock.Controller
		hook     *MockHook
		fired    []hooking.HookCtx
		engine   *Engine
	)

	build := func(cfg vm.Config, reclaim bool) *Engine {
		e, err := MakeBuilder().
			WithConfig(cfg).
			WithFrameReclaim(reclaim).
			WithHooks(hook).
			Build("MMU")
		Expect(err).NotTo(HaveOccurred())

		return e
	}

	firedAt := func(pos *hooking.HookPos) []hooking.HookCtx {
		var ctxs []hooking.HookCtx
		for _, ctx := range fired {
			if ctx.Pos == pos {
				ctxs = append(ctxs, ctx)
			}
		}

		return ctxs
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)
		fired = nil
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) { fired = append(fired, ctx) }).
			AnyTimes()

		engine = build(vm.Config{
			AddressBits:        4,
			TLBCapacity:        4,
			PhysicalFrameCount: 4,
		}, false)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report the configuration to hooks", func() {
		ctxs := firedAt(HookPosConfigure)

		Expect(ctxs).To(HaveLen(1))
		Expect(ctxs[0].Domain).To(BeIdenticalTo(engine))
		Expect(ctxs[0].Item).To(Equal(vm.Config{
			AddressBits:        4,
			TLBCapacity:        4,
			PhysicalFrameCount: 4,
		}))
	})

	It("should refuse to translate before it is configured", func() {
		e, err := MakeBuilder().Build("Empty")
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Translate("8")
		Expect(err).To(MatchError(ErrNotConfigured))

		_, err = e.Step("8", StepTLBLookup)
		Expect(err).To(MatchError(ErrNotConfigured))

		_, ok := e.Config()
		Expect(ok).To(BeFalse())
		Expect(e.Snapshot().TLB.NumRows()).To(Equal(0))
	})

	It("should fail to build with an invalid config", func() {
		_, err := MakeBuilder().
			WithAddressBits(2).
			WithTLBCapacity(4).
			WithPhysicalFrameCount(4).
			Build("Bad")

		Expect(err).To(MatchError(vm.ErrInvalidConfiguration))
	})

	Describe("SplitAddress", func() {
		It("should split off two offset bits", func() {
			vpn, offset, err := engine.SplitAddress("B")

			Expect(err).NotTo(HaveOccurred())
			Expect(vpn).To(Equal(vm.VPN(2)))
			Expect(offset).To(Equal(uint64(3)))
		})

		It("should accept leading zeros", func() {
			vpn, _, err := engine.SplitAddress("000c")

			Expect(err).NotTo(HaveOccurred())
			Expect(vpn).To(Equal(vm.VPN(3)))
		})

		It("should reject a VPN outside the page table", func() {
			_, _, err := engine.SplitAddress("14")

			Expect(err).To(MatchError(vm.ErrAddressOutOfRange))
		})

		It("should reject bad digits", func() {
			_, _, err := engine.SplitAddress("G")

			Expect(err).To(MatchError(bitcodec.ErrInvalidHexDigit))
		})

		It("should reject an empty address", func() {
			_, _, err := engine.SplitAddress("")

			Expect(err).To(MatchError(vm.ErrAddressLengthMismatch))
		})

		It("should reject addresses wider than 64 bits", func() {
			_, _, err := engine.SplitAddress("1FFFFFFFFFFFFFFFF")

			Expect(err).To(MatchError(vm.ErrAddressLengthMismatch))
		})

		It("should check the number of digits in strict mode", func() {
			e := build(vm.Config{
				AddressBits:        8,
				TLBCapacity:        4,
				PhysicalFrameCount: 4,
				StrictWidth:        true,
			}, false)

			_, _, err := e.SplitAddress("8")
			Expect(err).To(MatchError(vm.ErrAddressLengthMismatch))

			_, _, err = e.SplitAddress("08")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Translate", func() {
		It("should miss and then hit with the same frame", func() {
			first, err := engine.Translate("8")
			Expect(err).NotTo(HaveOccurred())

			second, err := engine.Translate("8")
			Expect(err).NotTo(HaveOccurred())

			Expect(kinds(first.Events)).To(Equal([]OutcomeKind{
				OutcomeMiss, OutcomeMiss, OutcomeServiced, OutcomeCompleted,
			}))
			Expect(first.Hit()).To(BeFalse())
			Expect(first.Final.FrameHex()).To(Equal("0"))

			Expect(second.Events).To(HaveLen(1))
			Expect(second.Hit()).To(BeTrue())
			Expect(second.Final.Step).To(Equal(StepTLBLookup))
			Expect(second.Final.Frame).To(Equal(first.Final.Frame))

			Expect(engine.Stats()).To(Equal(Stats{Hits: 1, Misses: 1}))
			Expect(engine.State()).To(Equal(StateDone))
		})

		It("should update the three tables on a page fault", func() {
			_, err := engine.Translate("9")
			Expect(err).NotTo(HaveOccurred())

			s := engine.Snapshot()
			Expect(s.TLB.Rows[0]).To(Equal(vm.Row{"0", "2", "0"}))
			Expect(s.PageTable.Rows[2]).To(Equal(vm.Row{"2", "1", "0"}))
			Expect(s.PageTable.Rows[1]).To(Equal(vm.Row{"1", "0", ""}))
			Expect(s.PhysicalMemory.Rows[0]).
				To(Equal(vm.Row{"0", "Block 2 from 0-4"}))
			Expect(s.PhysicalMemory.Rows[1]).To(Equal(vm.Row{"1", ""}))
		})

		It("should count k distinct addresses as misses and repeats as hits",
			func() {
				e := build(vm.Config{
					AddressBits:        6,
					TLBCapacity:        4,
					PhysicalFrameCount: 16,
				}, false)
				addresses := []string{"0", "4", "8", "C"}

				for _, a := range addresses {
					_, err := e.Translate(a)
					Expect(err).NotTo(HaveOccurred())
				}

				for _, a := range addresses {
					r, err := e.Translate(a)
					Expect(err).NotTo(HaveOccurred())
					Expect(r.Hit()).To(BeTrue())
				}

				Expect(e.Stats()).To(Equal(Stats{Hits: 4, Misses: 4}))
				Expect(e.Stats().HitRate()).To(BeNumerically("~", 50))
				Expect(e.Stats().MissRate()).To(BeNumerically("~", 50))
			})

		It("should refill the TLB from the page table", func() {
			e := build(vm.Config{
				AddressBits:        4,
				TLBCapacity:        2,
				PhysicalFrameCount: 4,
			}, false)

			for _, a := range []string{"0", "4", "8"} {
				_, err := e.Translate(a)
				Expect(err).NotTo(HaveOccurred())
			}

			r, err := e.Translate("0")

			Expect(err).NotTo(HaveOccurred())
			Expect(kinds(r.Events)).To(Equal([]OutcomeKind{
				OutcomeMiss, OutcomeHit,
			}))
			Expect(r.Final.Frame).To(Equal(vm.Frame(0)))
			Expect(e.Stats()).To(Equal(Stats{Hits: 1, Misses: 3}))

			evictions := firedAt(HookPosTLBEvict)
			Expect(evictions).To(HaveLen(2))
			Expect(evictions[0].Item).
				To(Equal(tlb.Entry{VPN: 0, Frame: 0, Valid: true}))
			Expect(evictions[1].Item).
				To(Equal(tlb.Entry{VPN: 1, Frame: 1, Valid: true}))
		})

		It("should hit VPN 2 in its frame once VPNs 0 to 3 are loaded", func() {
			for i, a := range []string{"0", "4", "8", "C"} {
				r, err := engine.Translate(a)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Hit()).To(BeFalse())
				Expect(r.Final.Frame).To(Equal(vm.Frame(i)))
			}

			before := engine.Snapshot()

			r, err := engine.Translate("8")

			Expect(err).NotTo(HaveOccurred())
			Expect(r.Hit()).To(BeTrue())
			Expect(r.Final.VPN).To(Equal(vm.VPN(2)))
			Expect(r.Final.Frame).To(Equal(vm.Frame(2)))
			Expect(engine.Stats()).To(Equal(Stats{Hits: 1, Misses: 4}))
			Expect(engine.Snapshot()).To(Equal(before))
		})

		It("should leave everything untouched for an out-of-range VPN", func() {
			_, err := engine.Translate("8")
			Expect(err).NotTo(HaveOccurred())
			before := engine.Snapshot()
			numFired := len(fired)

			_, err = engine.Translate("14")

			Expect(err).To(MatchError(vm.ErrAddressOutOfRange))
			Expect(engine.Snapshot()).To(Equal(before))
			Expect(engine.Stats()).To(Equal(Stats{Misses: 1}))
			Expect(engine.State()).To(Equal(StateDone))
			Expect(fired).To(HaveLen(numFired))
		})

		It("should not start while a stepped translation is in flight", func() {
			_, err := engine.Step("8", StepTLBLookup)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Translate("4")

			Expect(err).To(MatchError(vm.ErrInvalidStepSequence))
			Expect(engine.State()).To(Equal(StateAwaitingStep2))
		})
	})

	Describe("Step", func() {
		It("should walk the four steps of a miss", func() {
			o1, err := engine.Step("8", StepTLBLookup)
			Expect(err).NotTo(HaveOccurred())
			Expect(o1.Kind).To(Equal(OutcomeMiss))
			Expect(o1.HasFrame).To(BeFalse())
			Expect(o1.FrameHex()).To(BeEmpty())
			Expect(engine.NextStep()).To(Equal(StepPageTableLookup))
			Expect(engine.Stats().Total()).To(BeZero())

			o2, err := engine.Step("8", StepPageTableLookup)
			Expect(err).NotTo(HaveOccurred())
			Expect(o2.Kind).To(Equal(OutcomeMiss))
			Expect(engine.Stats()).To(Equal(Stats{Misses: 1}))

			o3, err := engine.Step("8", StepLoadPage)
			Expect(err).NotTo(HaveOccurred())
			Expect(o3.Kind).To(Equal(OutcomeServiced))
			Expect(o3.Terminal).To(BeFalse())
			Expect(engine.Stats()).To(Equal(Stats{Misses: 1}))

			o4, err := engine.Step("8", StepComplete)
			Expect(err).NotTo(HaveOccurred())
			Expect(o4.Kind).To(Equal(OutcomeCompleted))
			Expect(o4.Terminal).To(BeTrue())
			Expect(o4.VPNHex()).To(Equal("2"))
			Expect(engine.State()).To(Equal(StateDone))

			steps := firedAt(HookPosStep)
			Expect(steps).To(HaveLen(4))
			Expect(steps[3].Item).To(Equal(o4))
			Expect(steps[3].Detail).To(Equal(Stats{Misses: 1}))
		})

		It("should reject steps out of order", func() {
			_, err := engine.Step("8", StepPageTableLookup)
			Expect(err).To(MatchError(vm.ErrInvalidStepSequence))

			_, err = engine.Step("8", StepNumber(0))
			Expect(err).To(MatchError(vm.ErrInvalidStepSequence))

			Expect(engine.State()).To(Equal(StateAwaitingStep1))
		})

		It("should reject a different address in the middle", func() {
			_, err := engine.Step("8", StepTLBLookup)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Step("4", StepPageTableLookup)
			Expect(err).To(MatchError(vm.ErrInvalidStepSequence))
			Expect(engine.State()).To(Equal(StateAwaitingStep2))

			current, ok := engine.Current()
			Expect(ok).To(BeTrue())
			Expect(current).To(Equal("8"))

			_, err = engine.Step("08", StepPageTableLookup)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should not restart a step in flight", func() {
			_, err := engine.Step("8", StepTLBLookup)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Step("8", StepTLBLookup)
			Expect(err).To(MatchError(vm.ErrInvalidStepSequence))
		})
	})

	Describe("frame reuse", func() {
		var cfg vm.Config

		BeforeEach(func() {
			cfg = vm.Config{
				AddressBits:        4,
				TLBCapacity:        4,
				PhysicalFrameCount: 2,
			}
		})

		translateAll := func(e *Engine, addresses ...string) {
			for _, a := range addresses {
				_, err := e.Translate(a)
				Expect(err).NotTo(HaveOccurred())
			}
		}

		It("should wrap around and keep stale mappings by default", func() {
			e := build(cfg, false)

			translateAll(e, "0", "4", "8")

			reuses := firedAt(HookPosFrameReuse)
			Expect(reuses).To(HaveLen(1))
			Expect(reuses[0].Item).To(Equal(FrameReuse{
				Frame: 0, PreviousOwner: 0, NewOwner: 2,
			}))

			s := e.Snapshot()
			Expect(s.PageTable.Rows[0]).To(Equal(vm.Row{"0", "1", "0"}))
			Expect(s.PageTable.Rows[2]).To(Equal(vm.Row{"2", "1", "0"}))
			Expect(s.PhysicalMemory.Rows[0]).
				To(Equal(vm.Row{"0", "Block 2 from 0-4"}))

			r, err := e.Translate("0")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Hit()).To(BeTrue())
		})

		It("should drop stale mappings when reclaiming frames", func() {
			e := build(cfg, true)

			translateAll(e, "0", "4", "8")

			s := e.Snapshot()
			Expect(s.PageTable.Rows[0]).To(Equal(vm.Row{"0", "0", ""}))
			Expect(s.PageTable.Rows[2]).To(Equal(vm.Row{"2", "1", "0"}))

			_, found := e.tlb.Lookup(0)
			Expect(found).To(BeFalse())
			frame, found := e.tlb.Lookup(2)
			Expect(found).To(BeTrue())
			Expect(frame).To(Equal(vm.Frame(0)))

			r, err := e.Translate("0")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Hit()).To(BeFalse())
			Expect(r.Final.Frame).To(Equal(vm.Frame(1)))
		})
	})

	Describe("Reset", func() {
		It("should clear the tables and keep the sizes", func() {
			_, err := engine.Translate("8")
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Step("4", StepTLBLookup)
			Expect(err).NotTo(HaveOccurred())

			engine.Reset()

			Expect(engine.Stats()).To(Equal(Stats{}))
			Expect(engine.State()).To(Equal(StateAwaitingStep1))
			s := engine.Snapshot()
			Expect(s.TLB.NumRows()).To(Equal(4))
			Expect(s.TLB.Rows[0]).To(Equal(vm.Row{"0", "", ""}))
			Expect(s.PageTable.NumRows()).To(Equal(4))
			Expect(s.PageTable.Rows[2]).To(Equal(vm.Row{"2", "0", ""}))
			Expect(s.PhysicalMemory.Rows[0]).To(Equal(vm.Row{"0", ""}))
			Expect(firedAt(HookPosReset)).To(HaveLen(1))

			r, err := engine.Translate("4")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Final.Frame).To(Equal(vm.Frame(0)))
		})
	})

	Describe("Abort", func() {
		It("should drop the in-flight address only", func() {
			_, err := engine.Step("8", StepTLBLookup)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Step("8", StepPageTableLookup)
			Expect(err).NotTo(HaveOccurred())

			engine.Abort()

			Expect(engine.State()).To(Equal(StateAwaitingStep1))
			Expect(engine.Stats()).To(Equal(Stats{Misses: 1}))
			aborts := firedAt(HookPosAbort)
			Expect(aborts).To(HaveLen(1))
			Expect(aborts[0].Item).To(Equal("8"))

			_, err = engine.Step("4", StepTLBLookup)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should do nothing when idle", func() {
			engine.Abort()

			Expect(firedAt(HookPosAbort)).To(BeEmpty())
		})
	})

	Describe("Configure", func() {
		It("should keep the old setup when the config is invalid", func() {
			_, err := engine.Translate("8")
			Expect(err).NotTo(HaveOccurred())

			err = engine.Configure(vm.Config{
				AddressBits:        4,
				TLBCapacity:        4,
				PhysicalFrameCount: 3,
			})

			Expect(err).To(MatchError(vm.ErrInvalidConfiguration))
			cfg, _ := engine.Config()
			Expect(cfg.PhysicalFrameCount).To(Equal(4))
			Expect(engine.Stats()).To(Equal(Stats{Misses: 1}))
		})

		It("should resize and empty the tables", func() {
			_, err := engine.Translate("8")
			Expect(err).NotTo(HaveOccurred())

			err = engine.Configure(vm.Config{
				AddressBits:        6,
				TLBCapacity:        2,
				PhysicalFrameCount: 8,
			})

			Expect(err).NotTo(HaveOccurred())
			s := engine.Snapshot()
			Expect(s.TLB.NumRows()).To(Equal(2))
			Expect(s.PageTable.NumRows()).To(Equal(16))
			Expect(s.PhysicalMemory.NumRows()).To(Equal(8))
			Expect(engine.Stats()).To(Equal(Stats{}))
		})
	})
})
