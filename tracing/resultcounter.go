package tracing

import "sync"

// ResultCounter is a TraceWriter that only counts how translations end and
// how many steps they take. It keeps no task.
type ResultCounter struct {
	filter      TaskFilter
	lock        sync.Mutex
	resultNames []string
	resultCount map[string]uint64
	taskCount   uint64
	stepCount   uint64
}

// NewResultCounter creates a ResultCounter. A nil filter counts every task.
func NewResultCounter(filter TaskFilter) *ResultCounter {
	return &ResultCounter{
		filter:      filter,
		resultCount: make(map[string]uint64),
	}
}

// Init does nothing.
func (c *ResultCounter) Init() {
	// Do nothing
}

// Write counts the task.
func (c *ResultCounter) Write(task Task) {
	if c.filter != nil && !c.filter(task) {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.resultCount[task.Result]; !ok {
		c.resultNames = append(c.resultNames, task.Result)
	}

	c.resultCount[task.Result]++
	c.taskCount++
	c.stepCount += uint64(len(task.Steps))
}

// Flush does nothing.
func (c *ResultCounter) Flush() {
	// Do nothing
}

// ResultNames returns the results seen so far, in the order they first
// appeared.
func (c *ResultCounter) ResultNames() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]string(nil), c.resultNames...)
}

// ResultCount returns the number of tasks that ended with the result.
func (c *ResultCounter) ResultCount(result string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.resultCount[result]
}

// TaskCount returns the number of tasks counted.
func (c *ResultCounter) TaskCount() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.taskCount
}

// AverageSteps returns the mean number of steps per task, 0 if there is no
// task.
func (c *ResultCounter) AverageSteps() float64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.taskCount == 0 {
		return 0
	}

	return float64(c.stepCount) / float64(c.taskCount)
}
