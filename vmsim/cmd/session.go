package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/instrumentation/hooking"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/tracing"
)

// A session is one configured engine plus the observers the flags ask for.
type session struct {
	engine  *mmu.Engine
	writers []tracing.TraceWriter
	closers []func() error
}

func (o *options) config() (vm.Config, error) {
	var (
		cfg vm.Config
		err error
	)

	switch {
	case o.virtualMemorySize != 0 && o.physicalMemorySize != 0:
		cfg, err = vm.ConfigFromSizes(
			o.virtualMemorySize, o.physicalMemorySize, o.tlbSize)
		if err != nil {
			return vm.Config{}, err
		}
	case o.virtualMemorySize != 0 || o.physicalMemorySize != 0:
		return vm.Config{}, fmt.Errorf(
			"%w: --virtual-memory-size and --physical-memory-size "+
				"must be given together", vm.ErrInvalidConfiguration)
	default:
		cfg = vm.Config{
			AddressBits:        o.addressBits,
			TLBCapacity:        o.tlbSize,
			PhysicalFrameCount: o.frames,
		}
	}

	cfg.StrictWidth = o.strictWidth

	return cfg, cfg.Validate()
}

// newSession builds the engine. Extra hooks are attached before the ones the
// flags ask for.
func newSession(
	o *options,
	stderr io.Writer,
	extraHooks ...hooking.Hook,
) (*session, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	s := &session{}
	hooks := append([]hooking.Hook{}, extraHooks...)

	if o.logFile != "" {
		w, err := s.openLog(o.logFile, stderr)
		if err != nil {
			return nil, err
		}

		hooks = append(hooks, tracing.NewEventLogger(log.New(w, "", 0)))
	}

	if o.traceCSV != "" {
		w := tracing.NewCSVTraceWriter(o.traceCSV)
		w.Init()
		s.writers = append(s.writers, w)
	}

	if o.recordDB != "" {
		recorder := datarecording.New(o.recordDB)
		w := tracing.NewDBTraceWriter(recorder)
		w.Init()
		s.writers = append(s.writers, w)
		s.closers = append(s.closers, recorder.Close)
	}

	for _, w := range s.writers {
		hooks = append(hooks, traceHook(w))
	}

	s.engine, err = mmu.MakeBuilder().
		WithConfig(cfg).
		WithFrameReclaim(o.reclaimFrames).
		WithHooks(hooks...).
		Build("MMU")
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	return s, nil
}

// traceHook attaches a tracer to the positions that start, advance or end a
// translation.
func traceHook(w tracing.TraceWriter) hooking.Hook {
	return hooking.NewPosFilter(tracing.NewTracer(w),
		mmu.HookPosStep,
		mmu.HookPosAbort,
		mmu.HookPosReset,
		mmu.HookPosConfigure,
	)
}

func (s *session) openLog(path string, stderr io.Writer) (io.Writer, error) {
	if path == "-" {
		return stderr, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	s.closers = append(s.closers, f.Close)

	return f, nil
}

// Close flushes the trace writers and releases the files.
func (s *session) Close() error {
	for _, w := range s.writers {
		w.Flush()
	}

	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}

	s.writers = nil
	s.closers = nil

	return errors.Join(errs...)
}
