package tracing

import (
	"sync"

	"github.com/sarchlab/nicsim/sim"
)

// DBTracer is a port hook that writes one record for every message a port
// sends or receives.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    RecordWriter
	count      int
}

// NewDBTracer creates a tracer that writes to the backend.
func NewDBTracer(tt sim.TimeTeller, backend RecordWriter) *DBTracer {
	return &DBTracer{
		timeTeller: tt,
		backend:    backend,
	}
}

// Func implements sim.Hook.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	var dir Direction

	switch ctx.Pos {
	case sim.HookPosPortMsgSend:
		dir = DirSend
	case sim.HookPosPortMsgRecvd:
		dir = DirRecv
	default:
		return
	}

	port, ok := ctx.Domain.(sim.Port)
	if !ok {
		return
	}

	msg, ok := ctx.Item.(sim.Msg)
	if !ok {
		return
	}

	r := Record{
		TimePs:    uint64(t.timeTeller.CurrentTime()),
		Port:      port.Name(),
		Direction: dir,
	}
	describe(msg, &r)

	t.mu.Lock()
	t.count++
	t.mu.Unlock()

	t.backend.Write(r)
}

// Count returns the number of records written.
func (t *DBTracer) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.count
}

// CollectTrace attaches the tracer to every port of the component.
func CollectTrace(c sim.Component, t *DBTracer) {
	for _, p := range c.Ports() {
		p.AcceptHook(t)
	}
}
