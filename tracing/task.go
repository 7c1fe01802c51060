// Package tracing turns the translations performed by an engine into tasks
// and writes them to logs, CSV files and databases.
package tracing

// A TaskStep represents one step of a translation.
type TaskStep struct {
	Seq  uint64 `json:"seq"`
	What string `json:"what"`
}

// A Task is the translation of one address.
type Task struct {
	ID     string     `json:"id"`
	Kind   string     `json:"kind"`
	What   string     `json:"what"`
	Where  string     `json:"where"`
	VPN    string     `json:"vpn"`
	Frame  string     `json:"frame"`
	Result string     `json:"result"`
	Start  uint64     `json:"start"`
	End    uint64     `json:"end"`
	Steps  []TaskStep `json:"steps"`
}

// The results a translation task can end with.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultAborted = "aborted"
)

// TaskKindTranslation is the kind of every task produced by a Tracer.
const TaskKindTranslation = "translation"

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool
