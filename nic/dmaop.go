package nic

import "fmt"

// Sizes of the records the device exchanges with host memory.
const (
	MaxDMALen = 2048
	DescSize  = 16
	CplSize   = 32
	EventSize = 32
)

// DMAKind tells which stage of a ring's work a DMA operation belongs to.
type DMAKind int

// The DMA operation kinds.
const (
	DMADesc DMAKind = iota
	DMAMem
	DMATxCpl
	DMARxCpl
	DMAEvent
)

func (k DMAKind) String() string {
	switch k {
	case DMADesc:
		return "desc"
	case DMAMem:
		return "mem"
	case DMATxCpl:
		return "tx_cpl"
	case DMARxCpl:
		return "rx_cpl"
	case DMAEvent:
		return "event"
	}

	return fmt.Sprintf("dma(%d)", int(k))
}

// A DMAIssuer carries DMA operations to host memory. Every issued operation
// must eventually be handed back through Device.DispatchCompletion, in issue
// order per ring.
type DMAIssuer interface {
	IssueDMA(op *DMAOp)
}

// A FrameSender puts frames on the wire.
type FrameSender interface {
	SendFrame(data []byte)
}

// An InterruptRaiser raises MSI vectors on the host.
type InterruptRaiser interface {
	RaiseInterrupt(vector uint8)
}

type dmaCompleter interface {
	Name() string
	dmaDone(op *DMAOp)
}

// A DMAOp is one DMA transaction. It belongs to the ring that issued it
// until its completion is dispatched back to that ring.
type DMAOp struct {
	Kind  DMAKind
	Addr  uint64
	Len   int
	Write bool
	Tag   uint32

	// Data holds the bytes to write, or receives the bytes read.
	Data [MaxDMALen]byte

	ring     dmaCompleter
	frame    []byte
	inFlight bool
}

// Payload returns the bytes of the operation.
func (op *DMAOp) Payload() []byte {
	return op.Data[:op.Len]
}

// Fill copies the bytes returned by a read into the operation. It returns
// the number of bytes copied.
func (op *DMAOp) Fill(data []byte) int {
	return copy(op.Data[:op.Len], data)
}

// Ring returns the name of the ring that owns the operation, or an empty
// string once the operation is released.
func (op *DMAOp) Ring() string {
	if op.ring == nil {
		return ""
	}

	return op.ring.Name()
}

// InFlight tells if the operation waits for its completion.
func (op *DMAOp) InFlight() bool {
	return op.inFlight
}

func (op *DMAOp) String() string {
	dir := "rd"
	if op.Write {
		dir = "wr"
	}

	return fmt.Sprintf("%s %s %s @%#x+%d tag %d",
		op.Ring(), op.Kind, dir, op.Addr, op.Len, op.Tag)
}

func (op *DMAOp) release() {
	op.ring = nil
	op.frame = nil
	op.inFlight = false
}
