package sim

import (
	"fmt"
	"sync"
)

// Hook positions of a port.
var (
	// HookPosPortMsgSend is invoked after a connection accepts a message.
	HookPosPortMsgSend = &HookPos{Name: "Port Msg Send"}

	// HookPosPortMsgRecvd is invoked when a message lands in the incoming
	// queue.
	HookPosPortMsgRecvd = &HookPos{Name: "Port Msg Recv"}

	// HookPosPortMsgRetrieve is invoked when the owner takes a message out
	// of the incoming queue.
	HookPosPortMsgRetrieve = &HookPos{Name: "Port Msg Retrieve"}
)

// A Port is the end point a component exposes to a connection. Outbound
// messages go straight to the connection; inbound ones wait in a bounded
// queue until the owner retrieves them.
type Port interface {
	Named
	Hookable

	AsRemote() RemotePort

	SetConnection(conn Connection)
	Component() Component

	// Deliver is called by the connection.
	Deliver(msg Msg) *SendError

	// The rest is called by the owner.
	CanSend() bool
	Send(msg Msg) *SendError
	RetrieveIncoming() Msg
	PeekIncoming() Msg
}

type bufferedPort struct {
	HookableBase

	name string
	comp Component
	conn Connection

	mu       sync.Mutex
	incoming *Queue[Msg]
}

// NewPort creates a port owned by comp that queues up to incomingCap
// inbound messages.
func NewPort(comp Component, incomingCap int, name string) Port {
	return &bufferedPort{
		name:     name,
		comp:     comp,
		incoming: NewQueue[Msg](incomingCap),
	}
}

func (p *bufferedPort) Name() string {
	return p.name
}

func (p *bufferedPort) AsRemote() RemotePort {
	return RemotePort(p.name)
}

func (p *bufferedPort) Component() Component {
	return p.comp
}

// SetConnection plugs conn into the port. A port takes one connection only.
func (p *bufferedPort) SetConnection(conn Connection) {
	if p.conn != nil {
		panic(fmt.Sprintf("port %s is already connected to %s, cannot connect to %s",
			p.name, p.conn.Name(), conn.Name()))
	}

	p.conn = conn
}

func (p *bufferedPort) CanSend() bool {
	return p.conn.CanSend(p)
}

func (p *bufferedPort) Send(msg Msg) *SendError {
	p.mustOwn(msg)

	if err := p.conn.Send(msg); err != nil {
		return err
	}

	p.hook(HookPosPortMsgSend, msg)

	return nil
}

func (p *bufferedPort) Deliver(msg Msg) *SendError {
	p.mu.Lock()
	if p.incoming.Full() {
		p.mu.Unlock()
		return NewSendError()
	}

	first := p.incoming.Size() == 0
	p.incoming.Push(msg)
	p.mu.Unlock()

	p.hook(HookPosPortMsgRecvd, msg)

	// The owner drains the queue once notified, so only the first arrival
	// needs to wake it.
	if first && p.comp != nil {
		p.comp.NotifyRecv(p)
	}

	return nil
}

func (p *bufferedPort) RetrieveIncoming() Msg {
	p.mu.Lock()
	wasFull := p.incoming.Full()
	msg, ok := p.incoming.Pop()
	p.mu.Unlock()

	if !ok {
		return nil
	}

	if wasFull && p.conn != nil {
		p.conn.NotifyAvailable(p)
	}

	p.hook(HookPosPortMsgRetrieve, msg)

	return msg
}

func (p *bufferedPort) PeekIncoming() Msg {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg, _ := p.incoming.Peek()

	return msg
}

func (p *bufferedPort) hook(pos *HookPos, msg Msg) {
	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(HookCtx{Domain: p, Pos: pos, Item: msg})
}

func (p *bufferedPort) mustOwn(msg Msg) {
	meta := msg.Meta()

	switch {
	case meta.Src != p.AsRemote():
		panic(fmt.Sprintf("port %s sending a message from %s", p.name, meta.Src))
	case meta.Dst == "":
		panic(fmt.Sprintf("port %s sending a message without destination", p.name))
	case meta.Dst == meta.Src:
		panic(fmt.Sprintf("port %s sending a message to itself", p.name))
	}
}
