package nic

// EventRing tells the host that completions were written. It emits at most
// one event per arm, and drops events when the host has not consumed
// earlier ones.
type EventRing struct {
	Ring

	irq InterruptRaiser
}

// IssueEvent writes an event if the ring is armed.
func (r *EventRing) IssueEvent(kind EventKind, source uint16) {
	if kind != EventTxCpl && kind != EventRxCpl {
		violate(UnknownEventKind, r.name, "event type %d", kind)
	}

	if !r.armed {
		return
	}

	if r.Full() {
		r.stats.EventDrops++
		r.log.WithField("type", kind).Warn("event ring is full, event dropped")

		return
	}

	op := &DMAOp{
		Kind:  DMAEvent,
		Addr:  r.slotAddr(r.currHead, EventSize),
		Len:   EventSize,
		Write: true,
		Tag:   r.currHead,
	}
	Event{Type: kind, Source: source}.Encode(op.Data[:])

	r.issue(r, op)
	r.currHead++
	r.armed = false
}

func (r *EventRing) dmaDone(op *DMAOp) {
	if op.Kind != DMAEvent || !op.Write {
		r.unknownKind(op)
	}

	r.mustBeInOrder(op, "head", r.headPtr)
	r.headPtr++

	r.stats.Interrupts++
	r.log.WithField("vector", 0).Trace("interrupt")
	r.irq.RaiseInterrupt(0)

	r.finish(op)
}
