package nic

import (
	"github.com/sirupsen/logrus"
)

// Stats counts what the device has done.
type Stats struct {
	FramesSent      uint64
	FramesReceived  uint64
	RxDropsEmpty    uint64
	RxDropsOversize uint64
	EventDrops      uint64
	Interrupts      uint64
	DMAIssued       uint64
	DMACompleted    uint64
	RegReads        uint64
	RegWrites       uint64
}

// Device is a single-port, single-queue mqnic. It decodes register
// accesses, owns the rings, and routes DMA completions back to the ring
// that issued them. It never blocks: every DMA is issued and its
// continuation runs when DispatchCompletion is called.
type Device struct {
	log      *logrus.Logger
	features uint32
	stats    Stats

	port      Port
	eventRing EventRing
	txCplRing CplRing
	rxCplRing CplRing
	txRing    TxRing
	rxRing    RxRing
}

// NewDevice creates a device that talks to the host through dma and irq and
// to the wire through eth.
func NewDevice(
	dma DMAIssuer,
	eth FrameSender,
	irq InterruptRaiser,
	log *logrus.Logger,
) *Device {
	d := &Device{log: log}

	d.eventRing.init("EventRing", dma, log, &d.stats)
	d.eventRing.irq = irq

	d.txCplRing.init("TxCplRing", dma, log, &d.stats)
	d.txCplRing.events = &d.eventRing
	d.rxCplRing.init("RxCplRing", dma, log, &d.stats)
	d.rxCplRing.events = &d.eventRing

	d.txRing.init("TxRing", dma, log, &d.stats)
	d.txRing.cpl = &d.txCplRing
	d.txRing.eth = eth
	d.rxRing.init("RxRing", dma, log, &d.stats)
	d.rxRing.cpl = &d.rxCplRing

	d.port.SetID(0)
	d.port.SetFeatures(d.features)
	d.port.SetMTU(2048)
	d.port.SetSchedCount(1)
	d.port.SetSchedOffset(0x100000)
	d.port.SetSchedStride(0x100000)
	d.port.SetSchedType(0)
	d.port.SetRSSMask(0)
	d.port.SetSchedEnable(false)

	return d
}

// EventRing returns the event ring.
func (d *Device) EventRing() *EventRing { return &d.eventRing }

// TxCplRing returns the transmit completion ring.
func (d *Device) TxCplRing() *CplRing { return &d.txCplRing }

// RxCplRing returns the receive completion ring.
func (d *Device) RxCplRing() *CplRing { return &d.rxCplRing }

// TxRing returns the transmit ring.
func (d *Device) TxRing() *TxRing { return &d.txRing }

// RxRing returns the receive ring.
func (d *Device) RxRing() *RxRing { return &d.rxRing }

// Port returns the network port.
func (d *Device) Port() *Port { return &d.port }

// Stats returns a snapshot of the counters.
func (d *Device) Stats() Stats { return d.stats }

// ReadRegister returns the value of the 32-bit register at addr. Reading an
// address the device does not decode is a protocol violation.
func (d *Device) ReadRegister(addr uint64) uint32 {
	d.stats.RegReads++

	return d.peekRegister(addr)
}

// A RegisterValue is the content of one register at some point in time.
type RegisterValue struct {
	RegisterInfo
	Value uint32
}

// DumpRegisters returns every readable register. It is not counted as
// register traffic.
func (d *Device) DumpRegisters() []RegisterValue {
	var out []RegisterValue

	for _, r := range Registers() {
		if !r.Access.Readable() {
			continue
		}

		out = append(out, RegisterValue{
			RegisterInfo: r,
			Value:        d.peekRegister(r.Address),
		})
	}

	return out
}

func (d *Device) peekRegister(addr uint64) uint32 {
	switch addr {
	case RegFWID:
		return 32
	case RegFWVer:
		return 1
	case RegBoardID:
		return 0x43215678
	case RegBoardVer:
		return 1
	case RegPHCCount:
		return 1
	case RegPHCOffset:
		return 0x200
	case RegPHCStride:
		return 0x80
	case RegIFCount:
		return 1
	case RegIFStride:
		return 0x80000
	case RegIFCSROffset:
		return 0x80000
	case PHCRegFeatures:
		return 0x1
	case PHCRegPTPCurSecL, PHCRegPTPCurSecH:
		return 0
	case IFRegIFID:
		return 0
	case IFRegIFFeatures:
		return d.features
	case IFRegEventQueueCount, IFRegTxQueueCount, IFRegTxCplQueueCount,
		IFRegRxQueueCount, IFRegRxCplQueueCount, IFRegPortCount:
		return 1
	case IFRegEventQueueOffset:
		return EventQueueBase
	case IFRegTxQueueOffset:
		return TxQueueBase
	case IFRegTxCplQueueOffset:
		return TxCplQueueBase
	case IFRegRxQueueOffset:
		return RxQueueBase
	case IFRegRxCplQueueOffset:
		return RxCplQueueBase
	case IFRegPortOffset:
		return 0x800000
	case IFRegPortStride:
		return 0x200000
	case EventQueueBase + QueueHeadPtrReg:
		return d.eventRing.HeadPtr()
	case TxQueueBase + QueueActiveLogSizeReg:
		return d.txRing.SizeLog()
	case TxQueueBase + QueueTailPtrReg:
		return d.txRing.TailPtr()
	case TxCplQueueBase + QueueHeadPtrReg:
		return d.txCplRing.HeadPtr()
	case RxQueueBase + QueueTailPtrReg:
		return d.rxRing.TailPtr()
	case RxCplQueueBase + QueueHeadPtrReg:
		return d.rxCplRing.HeadPtr()
	case PortRegPortID:
		return d.port.ID()
	case PortRegPortFeatures:
		return d.port.Features()
	case PortRegPortMTU:
		return d.port.MTU()
	case PortRegSchedCount:
		return d.port.SchedCount()
	case PortRegSchedOffset:
		return d.port.SchedOffset()
	case PortRegSchedStride:
		return d.port.SchedStride()
	case PortRegSchedType:
		return d.port.SchedType()
	}

	violate(UnknownRegisterRead, "Device", "read of %#x", addr)

	return 0
}

// WriteRegister stores val into the register at addr and runs whatever the
// write triggers. Writing an address the device does not decode is a
// protocol violation.
func (d *Device) WriteRegister(addr uint64, val uint32) {
	d.stats.RegWrites++

	switch addr {
	case RegFWID, RegFWVer, RegBoardID, RegBoardVer,
		RegPHCCount, RegPHCOffset, RegPHCStride,
		RegIFCount, RegIFStride, RegIFCSROffset,
		PHCRegFeatures,
		PHCRegPTPSetFNS, PHCRegPTPSetNS, PHCRegPTPSetSecL, PHCRegPTPSetSecH:
		return
	case PortRegSchedEnable:
		d.port.SetSchedEnable(val != 0)
		return
	case PortRegRSSMask:
		d.port.SetRSSMask(val)
		return
	case PortQueueEnable:
		d.port.SetQueueEnable(val != 0)
		return
	}

	if d.writeQueueReg(addr, val) {
		return
	}

	violate(UnknownRegisterWrite, "Device", "write of %#x to %#x", val, addr)
}

type queueSetters struct {
	ring    *Ring
	setHead func(uint32)
	setTail func(uint32)
}

func (d *Device) queueAt(base uint64) (queueSetters, bool) {
	switch base {
	case EventQueueBase:
		r := &d.eventRing
		return queueSetters{&r.Ring, r.SetHeadPtr, r.SetTailPtr}, true
	case TxQueueBase:
		r := &d.txRing
		return queueSetters{&r.Ring, r.SetHeadPtr, r.SetTailPtr}, true
	case TxCplQueueBase:
		r := &d.txCplRing
		return queueSetters{&r.Ring, r.SetHeadPtr, r.SetTailPtr}, true
	case RxQueueBase:
		r := &d.rxRing
		return queueSetters{&r.Ring, r.SetHeadPtr, r.SetTailPtr}, true
	case RxCplQueueBase:
		r := &d.rxCplRing
		return queueSetters{&r.Ring, r.SetHeadPtr, r.SetTailPtr}, true
	}

	return queueSetters{}, false
}

func (d *Device) writeQueueReg(addr uint64, val uint32) bool {
	const queueRegSpan = 0x20

	q, ok := d.queueAt(addr &^ (queueRegSpan - 1))
	if !ok {
		return false
	}

	switch addr & (queueRegSpan - 1) {
	case QueueBaseAddrReg:
		q.ring.SetDMALower(val)
	case QueueBaseAddrReg + 4:
		q.ring.SetDMAUpper(val)
	case QueueActiveLogSizeReg:
		q.ring.SetSizeLog(val)
	case QueueIndexReg:
		q.ring.SetIndex(val)
	case QueueHeadPtrReg:
		q.setHead(val)
	case QueueTailPtrReg:
		q.setTail(val)
	default:
		return false
	}

	return true
}

// DispatchCompletion hands a finished DMA operation back to the ring that
// issued it.
func (d *Device) DispatchCompletion(op *DMAOp) {
	if op == nil {
		violate(StaleCompletion, "Device", "nil operation")
	}

	if op.ring == nil || !op.inFlight {
		violate(StaleCompletion, "Device", "%s", op)
	}

	op.inFlight = false
	d.stats.DMACompleted++
	op.ring.dmaDone(op)
}

// ReceiveFrame hands an arriving frame to the receive ring. There is a
// single port, so port is not used.
func (d *Device) ReceiveFrame(port uint8, frame []byte) {
	d.rxRing.Receive(frame)
}
