package sim

import (
	"fmt"
	"log"
)

type deliveryEvent struct {
	*EventBase
	msg Msg
}

// FixedLatencyConnection delivers every message a fixed amount of simulated
// time after it is sent. Messages between the same pair of ports arrive in
// the order they were sent. Each source port may only have a bounded number
// of messages in flight; a send beyond the bound is refused. A port can be
// given its own bound with SetInFlightLimit.
type FixedLatencyConnection struct {
	HookableBase

	name        string
	engine      Engine
	latency     VTimeInPs
	maxInFlight int

	ports    map[RemotePort]Port
	limits   map[RemotePort]int
	inFlight map[RemotePort]int
	stalled  map[RemotePort][]Msg
}

// NewFixedLatencyConnection creates a new FixedLatencyConnection.
func NewFixedLatencyConnection(
	name string,
	engine Engine,
	latency VTimeInPs,
	maxInFlight int,
) *FixedLatencyConnection {
	if maxInFlight <= 0 {
		log.Panicf("connection %s: in-flight bound must be positive", name)
	}

	return &FixedLatencyConnection{
		name:        name,
		engine:      engine,
		latency:     latency,
		maxInFlight: maxInFlight,
		ports:       make(map[RemotePort]Port),
		limits:      make(map[RemotePort]int),
		inFlight:    make(map[RemotePort]int),
		stalled:     make(map[RemotePort][]Msg),
	}
}

// Name returns the name of the connection.
func (c *FixedLatencyConnection) Name() string {
	return c.name
}

// Latency returns the delivery latency.
func (c *FixedLatencyConnection) Latency() VTimeInPs {
	return c.latency
}

// PlugIn marks the port connects to this connection.
func (c *FixedLatencyConnection) PlugIn(port Port) {
	if _, found := c.ports[port.AsRemote()]; found {
		panic(fmt.Sprintf("port %s already plugged in %s", port.Name(), c.name))
	}

	c.ports[port.AsRemote()] = port
	port.SetConnection(c)
}

// NoInFlightLimit lets a port have any number of messages in flight.
const NoInFlightLimit = -1

// SetInFlightLimit replaces the connection-wide bound for messages sent by
// src. The port must be plugged in.
func (c *FixedLatencyConnection) SetInFlightLimit(src Port, limit int) {
	c.portMustBeConnected(src.AsRemote())

	if limit == 0 || limit < NoInFlightLimit {
		log.Panicf("connection %s: invalid in-flight limit %d for %s",
			c.name, limit, src.Name())
	}

	c.limits[src.AsRemote()] = limit
}

func (c *FixedLatencyConnection) hasRoom(src RemotePort) bool {
	limit, ok := c.limits[src]
	if !ok {
		limit = c.maxInFlight
	}

	return limit == NoInFlightLimit || c.inFlight[src] < limit
}

// CanSend checks if the port can send one more message.
func (c *FixedLatencyConnection) CanSend(src Port) bool {
	return c.hasRoom(src.AsRemote())
}

// InFlight returns the number of messages sent by the port and not yet
// delivered.
func (c *FixedLatencyConnection) InFlight(src RemotePort) int {
	return c.inFlight[src]
}

// Send schedules the delivery of the message.
func (c *FixedLatencyConnection) Send(msg Msg) *SendError {
	c.portMustBeConnected(msg.Meta().Src)
	c.portMustBeConnected(msg.Meta().Dst)

	src := msg.Meta().Src
	if !c.hasRoom(src) {
		return NewSendError()
	}

	now := c.engine.CurrentTime()
	msg.Meta().SendTime = now
	c.inFlight[src]++

	evt := &deliveryEvent{
		EventBase: NewEventBase(now+c.latency, c),
		msg:       msg,
	}
	c.engine.Schedule(evt)

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosConnStartTrans,
		Item:   msg,
	})

	return nil
}

// Handle delivers messages whose latency has elapsed.
func (c *FixedLatencyConnection) Handle(e Event) error {
	evt, ok := e.(*deliveryEvent)
	if !ok {
		return fmt.Errorf("connection %s cannot handle %T", c.name, e)
	}

	dst := evt.msg.Meta().Dst
	if len(c.stalled[dst]) > 0 {
		c.stalled[dst] = append(c.stalled[dst], evt.msg)
		return nil
	}

	if !c.deliver(evt.msg) {
		c.stalled[dst] = append(c.stalled[dst], evt.msg)
	}

	return nil
}

// NotifyAvailable retries the messages that the port refused before.
func (c *FixedLatencyConnection) NotifyAvailable(port Port) {
	dst := port.AsRemote()
	for len(c.stalled[dst]) > 0 {
		if !c.deliver(c.stalled[dst][0]) {
			return
		}

		c.stalled[dst] = c.stalled[dst][1:]
	}
}

func (c *FixedLatencyConnection) deliver(msg Msg) bool {
	meta := msg.Meta()
	meta.RecvTime = c.engine.CurrentTime()

	if err := c.ports[meta.Dst].Deliver(msg); err != nil {
		return false
	}

	c.inFlight[meta.Src]--

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosConnDeliver,
		Item:   msg,
	})

	return true
}

func (c *FixedLatencyConnection) portMustBeConnected(port RemotePort) {
	if _, connected := c.ports[port]; !connected {
		panic(fmt.Sprintf("port %s is not connected to %s", port, c.name))
	}
}
