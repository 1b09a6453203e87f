package nic

import (
	"github.com/sirupsen/logrus"
)

// Ring holds the state shared by all the queues of the device. Pointers are
// free-running counters; the low sizeLog bits select a slot.
type Ring struct {
	name  string
	dma   DMAIssuer
	log   *logrus.Entry
	stats *Stats

	dmaAddr  uint64
	sizeLog  uint32
	size     uint32
	sizeMask uint32
	index    uint32
	headPtr  uint32
	tailPtr  uint32
	currHead uint32
	currTail uint32
	active   bool
	armed    bool
}

func (r *Ring) init(name string, dma DMAIssuer, log *logrus.Logger, stats *Stats) {
	r.name = name
	r.dma = dma
	r.log = log.WithField("ring", name)
	r.stats = stats
}

// Name returns the name of the ring.
func (r *Ring) Name() string {
	return r.name
}

// DMAAddr returns the base address of the ring in host memory.
func (r *Ring) DMAAddr() uint64 {
	return r.dmaAddr
}

// SizeLog returns log2 of the number of slots.
func (r *Ring) SizeLog() uint32 {
	return r.sizeLog
}

// Size returns the number of slots.
func (r *Ring) Size() uint32 {
	return r.size
}

// SizeMask returns Size()-1.
func (r *Ring) SizeMask() uint32 {
	return r.sizeMask
}

// Index returns the interrupt or completion queue index of the ring.
func (r *Ring) Index() uint32 {
	return r.index
}

// HeadPtr returns the host-visible head pointer.
func (r *Ring) HeadPtr() uint32 {
	return r.headPtr
}

// TailPtr returns the host-visible tail pointer.
func (r *Ring) TailPtr() uint32 {
	return r.tailPtr
}

// CurrHead counts the writes the ring has issued.
func (r *Ring) CurrHead() uint32 {
	return r.currHead
}

// CurrTail counts the descriptor fetches the ring has issued.
func (r *Ring) CurrTail() uint32 {
	return r.currTail
}

// Active tells if the host has marked the ring active.
func (r *Ring) Active() bool {
	return r.active
}

// Armed tells if the ring may raise one more notification.
func (r *Ring) Armed() bool {
	return r.armed
}

// SetDMALower replaces the low 32 bits of the base address.
func (r *Ring) SetDMALower(v uint32) {
	r.dmaAddr = r.dmaAddr&0xFFFFFFFF00000000 | uint64(v)
}

// SetDMAUpper replaces the high 32 bits of the base address.
func (r *Ring) SetDMAUpper(v uint32) {
	r.dmaAddr = r.dmaAddr&0xFFFFFFFF | uint64(v)<<32
}

// SetSizeLog takes the active flag from bit 31 and log2 of the size from
// the low byte.
func (r *Ring) SetSizeLog(v uint32) {
	r.active = v&QueueActiveMask != 0
	r.sizeLog = v & 0xFF
	r.size = 1 << r.sizeLog
	r.sizeMask = r.size - 1
}

// SetIndex takes the index from the low byte. Bit 31 arms the ring and bit
// 30, continuation, is not supported.
func (r *Ring) SetIndex(v uint32) {
	if v&QueueContMask != 0 {
		violate(IndexContinuation, r.name, "index write %#x", v)
	}

	if v&QueueArmMask != 0 {
		r.armed = true
	}

	r.index = v & 0xFF
}

// SetHeadPtr sets the head pointer.
func (r *Ring) SetHeadPtr(ptr uint32) {
	r.headPtr = ptr
}

// SetTailPtr sets the tail pointer.
func (r *Ring) SetTailPtr(ptr uint32) {
	r.tailPtr = ptr
}

// Empty tells if every slot the host made available has been fetched.
func (r *Ring) Empty() bool {
	return r.headPtr == r.currTail
}

// Full tells if the ring has no free slot to write to.
func (r *Ring) Full() bool {
	return r.currHead-r.tailPtr >= r.size
}

func (r *Ring) slotAddr(ptr uint32, recordSize int) uint64 {
	return r.dmaAddr + uint64(ptr&r.sizeMask)*uint64(recordSize)
}

func (r *Ring) issue(owner dmaCompleter, op *DMAOp) {
	op.ring = owner
	op.inFlight = true
	r.stats.DMAIssued++

	r.log.WithFields(logrus.Fields{
		"kind":  op.Kind,
		"addr":  op.Addr,
		"len":   op.Len,
		"write": op.Write,
		"tag":   op.Tag,
	}).Debug("dma issue")

	r.dma.IssueDMA(op)
}

func (r *Ring) mustBeInOrder(op *DMAOp, ptrName string, ptr uint32) {
	if op.Tag != ptr {
		violate(OutOfOrderCompletion, r.name,
			"%s completion tag %d, %s is %d", op.Kind, op.Tag, ptrName, ptr)
	}
}

func (r *Ring) unknownKind(op *DMAOp) {
	violate(UnknownDMAKind, r.name, "cannot complete %s", op)
}

func (r *Ring) finish(op *DMAOp) {
	op.release()
}
