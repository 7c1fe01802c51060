package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
)

func printOutcome(w io.Writer, o mmu.Outcome) {
	frame := ""
	if o.HasFrame {
		frame = ", Physical Page " + o.FrameHex()
	}

	fmt.Fprintf(w, "%s: step %d (%s) %s [Virtual Page %s%s]\n",
		o.Address, o.Step, o.Step, o.Kind, o.VPNHex(), frame)
}

func printTable(w io.Writer, t vm.Table) {
	fmt.Fprintln(w, t.Name)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))

	for _, r := range t.Rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}

	tw.Flush()
}

func printSnapshot(w io.Writer, s mmu.Snapshot) {
	printTable(w, s.TLB)
	fmt.Fprintln(w)
	printTable(w, s.PageTable)
	fmt.Fprintln(w)
	printTable(w, s.PhysicalMemory)
}

func printStats(w io.Writer, s mmu.Stats) {
	fmt.Fprintf(w, "Hits: %d, Misses: %d, Hit Rate: %.2f%%, Miss Rate: %.2f%%\n",
		s.Hits, s.Misses, s.HitRate(), s.MissRate())
}
