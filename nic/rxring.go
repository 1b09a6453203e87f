package nic

// RxRing places arriving frames into buffers the host made available.
type RxRing struct {
	Ring

	cpl *CplRing
}

// Receive starts moving a frame into host memory. The frame is dropped if
// the host has not made a descriptor available or if it is larger than a
// DMA buffer.
func (r *RxRing) Receive(frame []byte) {
	if r.Empty() {
		r.stats.RxDropsEmpty++
		r.log.WithField("len", len(frame)).Warn("rx ring is empty, frame dropped")

		return
	}

	if len(frame) > MaxDMALen {
		r.stats.RxDropsOversize++
		r.log.WithField("len", len(frame)).Warn("frame too large, frame dropped")

		return
	}

	op := &DMAOp{
		Kind:  DMADesc,
		Addr:  r.slotAddr(r.currTail, DescSize),
		Len:   DescSize,
		Tag:   r.currTail,
		frame: frame,
	}

	r.stats.FramesReceived++
	r.issue(r, op)
	r.currTail++
}

func (r *RxRing) dmaDone(op *DMAOp) {
	switch {
	case op.Kind == DMADesc && !op.Write:
		r.descFetched(op)
	case op.Kind == DMAMem && op.Write:
		r.payloadWritten(op)
	default:
		r.unknownKind(op)
	}
}

func (r *RxRing) descFetched(op *DMAOp) {
	desc := DecodeDesc(op.Payload())

	op.Kind = DMAMem
	op.Addr = desc.Addr
	op.Len = copy(op.Data[:], op.frame)
	op.frame = nil
	op.Write = true

	r.issue(r, op)
}

func (r *RxRing) payloadWritten(op *DMAOp) {
	r.mustBeInOrder(op, "tail", r.tailPtr)
	r.tailPtr++

	tag, length := op.Tag, op.Len
	r.finish(op)
	r.cpl.Complete(tag, length, false)
}
