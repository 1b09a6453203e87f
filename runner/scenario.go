package runner

import (
	"github.com/sarchlab/nicsim/host"
	"github.com/sarchlab/nicsim/nic"
)

// Where the loopback scenario places things in host memory.
const (
	LoopbackTxBuf   = 0x10000
	LoopbackRxBuf   = 0x20000
	LoopbackTxRing  = 0x30000
	LoopbackRxRing  = 0x31000
	LoopbackTxCpl   = 0x32000
	LoopbackRxCpl   = 0x33000
	LoopbackEvents  = 0x34000
	loopbackSizeLog = 3
)

func regWrite(addr uint64, val uint32) host.Step {
	return host.Step{Op: host.OpWriteReg, Addr: addr, Value: val}
}

func regExpect(addr uint64, val uint32) host.Step {
	return host.Step{Op: host.OpReadReg, Addr: addr, Expect: &val}
}

func setupRing(base uint64, addr uint64) []host.Step {
	return []host.Step{
		regWrite(base+nic.QueueBaseAddrReg, uint32(addr)),
		regWrite(base+nic.QueueBaseAddrReg+4, uint32(addr>>32)),
		regWrite(base+nic.QueueActiveLogSizeReg,
			nic.QueueActiveMask|loopbackSizeLog),
	}
}

// LoopbackScenario is a driver script that sends one frame and expects the
// wire to reflect it back. It configures every ring, transmits the frame,
// waits for the transmit interrupt, re-arms the event ring, waits for the
// receive interrupt and checks what the NIC wrote to host memory. The event
// ring is re-armed first thing after the transmit interrupt so that the
// receive event is not lost.
func LoopbackScenario(frame []byte) host.Script {
	desc := func(addr uint64, n int) host.HexBytes {
		b := make([]byte, nic.DescSize)
		nic.Desc{Addr: addr, Len: uint32(n)}.Encode(b)

		return b
	}

	cpl := func(n int) host.HexBytes {
		b := make([]byte, nic.CplSize)
		nic.Cpl{Index: 0, Len: uint16(n)}.Encode(b)

		return b
	}

	event := func(kind nic.EventKind) host.HexBytes {
		b := make([]byte, nic.EventSize)
		nic.Event{Type: kind}.Encode(b)

		return b
	}

	s := host.Script{
		regExpect(nic.RegFWID, 32),
		regExpect(nic.IFRegTxQueueOffset, nic.TxQueueBase),
		{Op: host.OpWriteMem, Addr: LoopbackTxBuf, Data: frame},
		{Op: host.OpWriteMem, Addr: LoopbackTxRing, Data: desc(LoopbackTxBuf, len(frame))},
		{Op: host.OpWriteMem, Addr: LoopbackRxRing, Data: desc(LoopbackRxBuf, nic.MaxDMALen)},
	}

	s = append(s, setupRing(nic.EventQueueBase, LoopbackEvents)...)
	s = append(s, regWrite(nic.EventQueueBase+nic.QueueIndexReg, nic.QueueArmMask))
	s = append(s, setupRing(nic.TxCplQueueBase, LoopbackTxCpl)...)
	s = append(s, setupRing(nic.RxCplQueueBase, LoopbackRxCpl)...)
	s = append(s, setupRing(nic.RxQueueBase, LoopbackRxRing)...)
	s = append(s, regWrite(nic.RxQueueBase+nic.QueueHeadPtrReg, 1))
	s = append(s, setupRing(nic.TxQueueBase, LoopbackTxRing)...)
	s = append(s, regWrite(nic.PortQueueEnable, 1))
	s = append(s, regWrite(nic.TxQueueBase+nic.QueueHeadPtrReg, 1))

	s = append(s,
		host.Step{Op: host.OpWaitIRQ, Vector: 0, Count: 1},
		regWrite(nic.EventQueueBase+nic.QueueIndexReg, nic.QueueArmMask),
		host.Step{Op: host.OpExpectMem, Addr: LoopbackEvents, Data: event(nic.EventTxCpl)},
		host.Step{Op: host.OpExpectMem, Addr: LoopbackTxCpl, Data: cpl(len(frame))},
		regExpect(nic.TxQueueBase+nic.QueueTailPtrReg, 1),
		regExpect(nic.TxCplQueueBase+nic.QueueHeadPtrReg, 1),
		host.Step{Op: host.OpWaitIRQ, Vector: 0, Count: 1},
		host.Step{Op: host.OpExpectMem, Addr: LoopbackRxBuf, Data: frame},
		host.Step{Op: host.OpExpectMem, Addr: LoopbackRxCpl, Data: cpl(len(frame))},
		host.Step{
			Op:   host.OpExpectMem,
			Addr: LoopbackEvents + nic.EventSize,
			Data: event(nic.EventRxCpl),
		},
		regExpect(nic.RxQueueBase+nic.QueueTailPtrReg, 1),
		regExpect(nic.RxCplQueueBase+nic.QueueHeadPtrReg, 1),
		regExpect(nic.EventQueueBase+nic.QueueHeadPtrReg, 2),
	)

	return s
}
