// Package cmd provides the command-line interface of vmsim.
package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables that override the built-in defaults. They can also be
// set in a .env file in the working directory.
const (
	envAddressBits = "VMSIM_ADDRESS_BITS"
	envTLBSize     = "VMSIM_TLB_SIZE"
	envFrames      = "VMSIM_FRAMES"
)

type options struct {
	addressBits        int
	tlbSize            int
	frames             int
	virtualMemorySize  uint64
	physicalMemorySize uint64
	strictWidth        bool
	reclaimFrames      bool
	logFile            string
	traceCSV           string
	recordDB           string
}

// NewRootCmd creates the vmsim command with all its subcommands.
func NewRootCmd() *cobra.Command {
	loadDotEnv()

	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "vmsim",
		Short: "vmsim simulates virtual address translation step by step.",
		Long: `vmsim walks virtual addresses through a TLB, a page table and ` +
			`physical memory, one step at a time, and shows how the three ` +
			`tables change.`,
		SilenceUsage: true,
	}

	f := rootCmd.PersistentFlags()
	f.IntVar(&opts.addressBits, "address-bits", envInt(envAddressBits, 8),
		"width of a virtual address in bits")
	f.IntVar(&opts.tlbSize, "tlb-size", envInt(envTLBSize, 4),
		"number of TLB entries")
	f.IntVar(&opts.frames, "frames", envInt(envFrames, 8),
		"number of physical frames, a power of 2")
	f.Uint64Var(&opts.virtualMemorySize, "virtual-memory-size", 0,
		"size of the virtual address space in bytes, "+
			"replaces --address-bits when given with --physical-memory-size")
	f.Uint64Var(&opts.physicalMemorySize, "physical-memory-size", 0,
		"size of physical memory in bytes, "+
			"replaces --frames when given with --virtual-memory-size")
	f.BoolVar(&opts.strictWidth, "strict-width", false,
		"require addresses to be written with exactly the configured number "+
			"of hex digits")
	f.BoolVar(&opts.reclaimFrames, "reclaim-frames", false,
		"drop the stale mappings of a page whose frame is reused")
	f.StringVar(&opts.logFile, "log-file", "",
		"write the event log to a file, - for stderr")
	f.StringVar(&opts.traceCSV, "trace-csv", "",
		"write one line per translation to <path>.csv")
	f.StringVar(&opts.recordDB, "record-db", "",
		"record every translation into <path>.sqlite3")

	rootCmd.AddCommand(
		newTranslateCmd(opts),
		newStepCmd(opts),
		newRandomCmd(opts),
		newServeCmd(opts),
		newTraceCmd(),
	)

	return rootCmd
}

// Execute runs the command line and exits. Registered exit handlers, such as
// the ones that flush traces, run before the process ends.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadDotEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}
}

func envInt(name string, defaultValue int) int {
	s, ok := os.LookupEnv(name)
	if !ok || s == "" {
		return defaultValue
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", name, s, err)
		return defaultValue
	}

	return v
}
