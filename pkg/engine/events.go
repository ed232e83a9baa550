package engine

import (
	"github.com/start-out/starter/pkg/platform"
	"github.com/start-out/starter/pkg/report"
)

// EventType names an observer event.
type EventType string

const (
	EventStarted  EventType = "started"
	EventPhase    EventType = "phase"
	EventFinished EventType = "finished"
)

// Event describes one engine progress notification. The TUI renders these;
// plain mode uses the Out writer instead.
type Event struct {
	Type   EventType
	Entity string
	Phase  platform.Phase
	Status report.Status
	Detail string
}

// Observer receives engine events. Called from worker goroutines, so
// implementations must be safe for concurrent use.
type Observer func(Event)

func (e *Engine) emit(ev Event) {
	if e.opts.Observer != nil {
		e.opts.Observer(ev)
	}
}
