package nic

// TxRing fetches descriptors the host makes available, reads the payloads
// they point to, and sends them as frames.
//
// The host writes the head pointer to publish descriptors. The device
// advances the tail pointer as frames leave.
type TxRing struct {
	Ring

	cpl *CplRing
	eth FrameSender
}

// SetHeadPtr sets the head pointer and fetches every newly published
// descriptor.
func (r *TxRing) SetHeadPtr(ptr uint32) {
	r.Ring.SetHeadPtr(ptr)

	for r.currTail != r.headPtr {
		op := &DMAOp{
			Kind: DMADesc,
			Addr: r.slotAddr(r.currTail, DescSize),
			Len:  DescSize,
			Tag:  r.currTail,
		}

		r.issue(r, op)
		r.currTail++
	}
}

func (r *TxRing) dmaDone(op *DMAOp) {
	switch {
	case op.Kind == DMADesc && !op.Write:
		r.descFetched(op)
	case op.Kind == DMAMem && !op.Write:
		r.payloadFetched(op)
	default:
		r.unknownKind(op)
	}
}

func (r *TxRing) descFetched(op *DMAOp) {
	desc := DecodeDesc(op.Payload())
	if desc.Len > MaxDMALen {
		violate(DMAOverflow, r.name,
			"descriptor %d asks for %d bytes, buffer holds %d",
			op.Tag, desc.Len, MaxDMALen)
	}

	op.Kind = DMAMem
	op.Addr = desc.Addr
	op.Len = int(desc.Len)
	op.Write = false

	r.issue(r, op)
}

func (r *TxRing) payloadFetched(op *DMAOp) {
	frame := make([]byte, op.Len)
	copy(frame, op.Payload())

	r.stats.FramesSent++
	r.eth.SendFrame(frame)

	r.mustBeInOrder(op, "tail", r.tailPtr)
	r.tailPtr++

	tag, length := op.Tag, op.Len
	r.finish(op)
	r.cpl.Complete(tag, length, true)
}
