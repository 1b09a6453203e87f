package nic

type cplData struct {
	index uint32
	len   int
	tx    bool
}

// CplRing writes completion records for finished transmits or receives.
// Records that do not fit wait in a FIFO; none is ever dropped.
type CplRing struct {
	Ring

	events  *EventRing
	pending []cplData
}

// Complete queues a completion for the given ring slot and writes as many
// queued completions as the ring has room for.
func (r *CplRing) Complete(index uint32, length int, tx bool) {
	r.pending = append(r.pending, cplData{index: index, len: length, tx: tx})
	r.drain()
}

// SetTailPtr sets the tail pointer and writes the completions that now fit.
func (r *CplRing) SetTailPtr(ptr uint32) {
	r.Ring.SetTailPtr(ptr)
	r.drain()
}

// Pending returns the number of completions waiting for room.
func (r *CplRing) Pending() int {
	return len(r.pending)
}

func (r *CplRing) drain() {
	for !r.Full() && len(r.pending) > 0 {
		data := r.pending[0]
		r.pending[0] = cplData{}
		r.pending = r.pending[1:]

		kind := DMARxCpl
		if data.tx {
			kind = DMATxCpl
		}

		op := &DMAOp{
			Kind:  kind,
			Addr:  r.slotAddr(r.currHead, CplSize),
			Len:   CplSize,
			Write: true,
			Tag:   r.currHead,
		}
		Cpl{Index: uint16(data.index), Len: uint16(data.len)}.Encode(op.Data[:])

		r.issue(r, op)
		r.currHead++
	}

	if len(r.pending) == 0 {
		r.pending = nil
	}
}

func (r *CplRing) dmaDone(op *DMAOp) {
	if !op.Write || (op.Kind != DMATxCpl && op.Kind != DMARxCpl) {
		r.unknownKind(op)
	}

	r.mustBeInOrder(op, "head", r.headPtr)
	r.headPtr++

	kind := EventRxCpl
	if op.Kind == DMATxCpl {
		kind = EventTxCpl
	}

	r.finish(op)
	r.events.IssueEvent(kind, 0)
}
