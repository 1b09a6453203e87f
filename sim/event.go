package sim

// VTimeInPs is a point on the simulated timeline, counted in picoseconds.
type VTimeInPs uint64

// Units of simulated time.
const (
	Picosecond  VTimeInPs = 1
	Nanosecond            = 1000 * Picosecond
	Microsecond           = 1000 * Nanosecond
	Millisecond           = 1000 * Microsecond
)

// An Event is something going to happen in the future.
type Event interface {
	// Return the time that the event should happen
	Time() VTimeInPs

	// Returns the handler that should handle the event
	Handler() Handler
}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	ID      string
	time    VTimeInPs
	handler Handler
}

// NewEventBase creates a new EventBase
func NewEventBase(t VTimeInPs, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.handler = handler

	return e
}

// Time return the time that the event is going to happen
func (e EventBase) Time() VTimeInPs {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// A Handler defines a domain for the events.
//
// One event is always constraint to one Handler, which means the event can
// only be scheduled by one handler and can only directly modify that handler.
type Handler interface {
	Handle(e Event) error
}
