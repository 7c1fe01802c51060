package tracing

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVTraceWriter is a trace writer that can store the tasks into a CSV file.
type CSVTraceWriter struct {
	path string
	file *os.File

	tasks      []Task
	bufferSize int
}

// NewCSVTraceWriter creates a new CSVTraceWriter. The file is path + ".csv".
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Filename returns the name of the CSV file.
func (t *CSVTraceWriter) Filename() string {
	return t.path + ".csv"
}

// Init creates the tracing csv file. It panics if the file already exists.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "vmsim_trace_" + xid.New().String()
	}

	filename := t.Filename()
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "ID, Kind, What, Where, VPN, Frame, Result, Start, End, Steps\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Write buffers a task.
func (t *CSVTraceWriter) Write(task Task) {
	t.tasks = append(t.tasks, task)
	if len(t.tasks) >= t.bufferSize {
		t.Flush()
	}
}

// Flush flushes the tasks to the CSV file.
func (t *CSVTraceWriter) Flush() {
	for _, task := range t.tasks {
		steps := make([]string, 0, len(task.Steps))
		for _, s := range task.Steps {
			steps = append(steps, s.What)
		}

		fmt.Fprintf(t.file, "%s, %s, %s, %s, %s, %s, %s, %d, %d, %s\n",
			task.ID,
			task.Kind,
			task.What,
			task.Where,
			task.VPN,
			task.Frame,
			task.Result,
			task.Start,
			task.End,
			strings.Join(steps, " | "),
		)
	}

	t.tasks = nil
}
