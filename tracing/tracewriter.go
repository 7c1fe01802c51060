package tracing

// A TraceWriter stores finished tasks.
type TraceWriter interface {
	// Init prepares the storage. It must be called before Write.
	Init()

	// Write stores a task. Writers may buffer.
	Write(task Task)

	// Flush writes out buffered tasks.
	Flush()
}
