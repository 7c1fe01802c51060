package tracing

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/vmsim/instrumentation/hooking"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
)

type namedDomain interface {
	Name() string
}

// Tracer is a hook that builds one Task per translated address and hands
// finished tasks to a TraceWriter. Steps are ordered with a sequence number
// that counts every step the tracer has seen.
type Tracer struct {
	writer  TraceWriter
	filter  TaskFilter
	seq     uint64
	current *Task
}

// NewTracer creates a Tracer that writes to the writer.
func NewTracer(writer TraceWriter) *Tracer {
	return &Tracer{writer: writer}
}

// WithFilter drops the tasks that the filter rejects.
func (t *Tracer) WithFilter(filter TaskFilter) *Tracer {
	t.filter = filter
	return t
}

// Func observes the engine.
func (t *Tracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case mmu.HookPosStep:
		t.step(ctx)
	case mmu.HookPosAbort, mmu.HookPosReset, mmu.HookPosConfigure:
		t.end(ResultAborted)
	}
}

func (t *Tracer) step(ctx hooking.HookCtx) {
	o := ctx.Item.(mmu.Outcome)
	t.seq++

	if o.Step == mmu.StepTLBLookup {
		t.end(ResultAborted)
		t.start(ctx, o)
	}

	if t.current == nil {
		return
	}

	t.current.Steps = append(t.current.Steps, TaskStep{
		Seq:  t.seq,
		What: fmt.Sprintf("%s: %s", o.Step, o.Kind),
	})

	if o.HasFrame {
		t.current.Frame = o.FrameHex()
	}

	if !o.Terminal {
		return
	}

	if o.Kind == mmu.OutcomeHit {
		t.end(ResultHit)
	} else {
		t.end(ResultMiss)
	}
}

func (t *Tracer) start(ctx hooking.HookCtx, o mmu.Outcome) {
	where := ""
	if d, ok := ctx.Domain.(namedDomain); ok {
		where = d.Name()
	}

	t.current = &Task{
		ID:    xid.New().String(),
		Kind:  TaskKindTranslation,
		What:  o.Address,
		Where: where,
		VPN:   o.VPNHex(),
		Start: t.seq,
	}
}

func (t *Tracer) end(result string) {
	if t.current == nil {
		return
	}

	task := *t.current
	t.current = nil

	task.Result = result
	task.End = t.seq

	if t.filter != nil && !t.filter(task) {
		return
	}

	t.writer.Write(task)
}
