package tracing

import (
	"context"
	"fmt"

	"github.com/sarchlab/vmsim/datarecording"
)

const (
	taskTableName = "trace"
	stepTableName = "trace_steps"
)

type taskTableEntry struct {
	ID       string
	Kind     string
	What     string
	Location string
	VPN      string
	Frame    string
	Result   string
	Start    uint64
	End      uint64
}

type stepTableEntry struct {
	TaskID string
	Seq    uint64
	What   string
}

// DBTraceWriter stores tasks in two tables of a data recorder, one row per
// task and one row per step.
type DBTraceWriter struct {
	recorder datarecording.DataRecorder
}

// NewDBTraceWriter creates a DBTraceWriter that writes to the recorder.
func NewDBTraceWriter(recorder datarecording.DataRecorder) *DBTraceWriter {
	return &DBTraceWriter{recorder: recorder}
}

// Init creates the tables.
func (w *DBTraceWriter) Init() {
	w.recorder.CreateTable(taskTableName, taskTableEntry{})
	w.recorder.CreateTable(stepTableName, stepTableEntry{})
}

// Write buffers the task and its steps in the recorder.
func (w *DBTraceWriter) Write(task Task) {
	w.recorder.InsertData(taskTableName, taskTableEntry{
		ID:       task.ID,
		Kind:     task.Kind,
		What:     task.What,
		Location: task.Where,
		VPN:      task.VPN,
		Frame:    task.Frame,
		Result:   task.Result,
		Start:    task.Start,
		End:      task.End,
	})

	for _, s := range task.Steps {
		w.recorder.InsertData(stepTableName, stepTableEntry{
			TaskID: task.ID,
			Seq:    s.Seq,
			What:   s.What,
		})
	}
}

// Flush flushes the recorder.
func (w *DBTraceWriter) Flush() {
	w.recorder.Flush()
}

// DBTraceReader reads back the tasks written by a DBTraceWriter.
type DBTraceReader struct {
	reader datarecording.DataReader
}

// NewDBTraceReader creates a DBTraceReader on top of a data reader.
func NewDBTraceReader(reader datarecording.DataReader) *DBTraceReader {
	reader.MapTable(taskTableName, taskTableEntry{})
	reader.MapTable(stepTableName, stepTableEntry{})

	return &DBTraceReader{reader: reader}
}

// ListTasks returns the tasks in the order they started. Tasks that the
// filter rejects are skipped. A nil filter keeps every task.
func (r *DBTraceReader) ListTasks(
	ctx context.Context,
	filter TaskFilter,
) ([]Task, error) {
	rows, _, err := r.reader.Query(ctx, taskTableName,
		datarecording.QueryParams{OrderBy: "Start"})
	if err != nil {
		return nil, fmt.Errorf("reading tasks: %w", err)
	}

	stepRows, _, err := r.reader.Query(ctx, stepTableName,
		datarecording.QueryParams{OrderBy: "Seq"})
	if err != nil {
		return nil, fmt.Errorf("reading steps: %w", err)
	}

	steps := make(map[string][]TaskStep)
	for _, row := range stepRows {
		s := row.(*stepTableEntry)
		steps[s.TaskID] = append(steps[s.TaskID],
			TaskStep{Seq: s.Seq, What: s.What})
	}

	tasks := make([]Task, 0, len(rows))
	for _, row := range rows {
		e := row.(*taskTableEntry)
		task := Task{
			ID:     e.ID,
			Kind:   e.Kind,
			What:   e.What,
			Where:  e.Location,
			VPN:    e.VPN,
			Frame:  e.Frame,
			Result: e.Result,
			Start:  e.Start,
			End:    e.End,
			Steps:  steps[e.ID],
		}

		if filter != nil && !filter(task) {
			continue
		}

		tasks = append(tasks, task)
	}

	return tasks, nil
}
