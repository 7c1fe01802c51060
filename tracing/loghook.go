package tracing

import (
	"log"

	"github.com/sarchlab/vmsim/instrumentation/hooking"
)

// A LogHook is a hook that is responsible for recording information from the
// simulation
type LogHook interface {
	hooking.Hook
}

// LogHookBase provides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}
