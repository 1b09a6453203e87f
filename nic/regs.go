package nic

// Global registers.
const (
	RegFWID        = 0x0000
	RegFWVer       = 0x0004
	RegBoardID     = 0x0008
	RegBoardVer    = 0x000C
	RegPHCCount    = 0x0010
	RegPHCOffset   = 0x0014
	RegPHCStride   = 0x0018
	RegIFCount     = 0x0020
	RegIFStride    = 0x0024
	RegIFCSROffset = 0x002C
)

// PTP hardware clock registers.
const (
	PHCRegFeatures   = 0x0200
	PHCRegPTPCurSecL = 0x0218
	PHCRegPTPCurSecH = 0x021C
	PHCRegPTPSetFNS  = 0x0230
	PHCRegPTPSetNS   = 0x0234
	PHCRegPTPSetSecL = 0x0238
	PHCRegPTPSetSecH = 0x023C
)

// Interface registers.
const (
	IFRegIFID             = 0x80000
	IFRegIFFeatures       = 0x80004
	IFRegEventQueueCount  = 0x80010
	IFRegEventQueueOffset = 0x80014
	IFRegTxQueueCount     = 0x80020
	IFRegTxQueueOffset    = 0x80024
	IFRegTxCplQueueCount  = 0x80028
	IFRegTxCplQueueOffset = 0x8002C
	IFRegRxQueueCount     = 0x80030
	IFRegRxQueueOffset    = 0x80034
	IFRegRxCplQueueCount  = 0x80038
	IFRegRxCplQueueOffset = 0x8003C
	IFRegPortCount        = 0x80040
	IFRegPortOffset       = 0x80044
	IFRegPortStride       = 0x80048
)

// Queue bases.
const (
	EventQueueBase = 0x100000
	TxQueueBase    = 0x200000
	TxCplQueueBase = 0x400000
	RxQueueBase    = 0x600000
	RxCplQueueBase = 0x700000
)

// Offsets of the per-queue registers from a queue base.
const (
	QueueBaseAddrReg      = 0x00
	QueueActiveLogSizeReg = 0x08
	QueueIndexReg         = 0x0C
	QueueHeadPtrReg       = 0x10
	QueueTailPtrReg       = 0x18
)

// Bits of the queue registers.
const (
	QueueActiveMask = 0x80000000
	QueueArmMask    = 0x80000000
	QueueContMask   = 0x40000000
)

// Port registers.
const (
	PortRegPortID       = 0x800000
	PortRegPortFeatures = 0x800004
	PortRegPortMTU      = 0x800008
	PortRegSchedCount   = 0x800010
	PortRegSchedOffset  = 0x800014
	PortRegSchedStride  = 0x800018
	PortRegSchedType    = 0x80001C
	PortRegSchedEnable  = 0x800040
	PortRegRSSMask      = 0x800080
	PortQueueEnable     = 0x900000
)

// Interface feature bits.
const (
	IFFeatureRSS    = 1 << 0
	IFFeaturePTPTS  = 1 << 4
	IFFeatureTxCsum = 1 << 8
	IFFeatureRxCsum = 1 << 9
	IFFeatureRxHash = 1 << 10
)

// Access describes what the host may do with a register.
type Access int

// Register access kinds.
const (
	ReadOnly Access = iota
	WriteOnly
	ReadWrite
	// Ignored registers accept writes that have no effect.
	ReadIgnoreWrite
	IgnoreWrite
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "R"
	case WriteOnly:
		return "W"
	case ReadWrite:
		return "RW"
	case ReadIgnoreWrite:
		return "R,W0"
	case IgnoreWrite:
		return "W0"
	}

	return "?"
}

// Readable reports whether a read of the register is defined.
func (a Access) Readable() bool {
	return a == ReadOnly || a == ReadWrite || a == ReadIgnoreWrite
}

// Writable reports whether a write to the register is accepted.
func (a Access) Writable() bool {
	return a != ReadOnly
}

// RegisterInfo names one register of the device.
type RegisterInfo struct {
	Name    string
	Address uint64
	Access  Access
}

type queueRegs struct {
	prefix   string
	base     uint64
	indexReg string
	sizeRead bool
	headRead bool
	tailRead bool
}

var queues = []queueRegs{
	{"EVENT_QUEUE", EventQueueBase, "INTERRUPT_INDEX", false, true, false},
	{"TX_QUEUE", TxQueueBase, "CPL_QUEUE_INDEX", true, false, true},
	{"TX_CPL_QUEUE", TxCplQueueBase, "INTERRUPT_INDEX", false, true, false},
	{"RX_QUEUE", RxQueueBase, "CPL_QUEUE_INDEX", false, false, true},
	{"RX_CPL_QUEUE", RxCplQueueBase, "INTERRUPT_INDEX", false, true, false},
}

func rw(readable bool) Access {
	if readable {
		return ReadWrite
	}

	return WriteOnly
}

// Registers lists every register the device decodes, in address order.
func Registers() []RegisterInfo {
	regs := []RegisterInfo{
		{"FW_ID", RegFWID, ReadIgnoreWrite},
		{"FW_VER", RegFWVer, ReadIgnoreWrite},
		{"BOARD_ID", RegBoardID, ReadIgnoreWrite},
		{"BOARD_VER", RegBoardVer, ReadIgnoreWrite},
		{"PHC_COUNT", RegPHCCount, ReadIgnoreWrite},
		{"PHC_OFFSET", RegPHCOffset, ReadIgnoreWrite},
		{"PHC_STRIDE", RegPHCStride, ReadIgnoreWrite},
		{"IF_COUNT", RegIFCount, ReadIgnoreWrite},
		{"IF_STRIDE", RegIFStride, ReadIgnoreWrite},
		{"IF_CSR_OFFSET", RegIFCSROffset, ReadIgnoreWrite},
		{"PHC_FEATURES", PHCRegFeatures, ReadIgnoreWrite},
		{"PHC_PTP_CUR_SEC_L", PHCRegPTPCurSecL, ReadOnly},
		{"PHC_PTP_CUR_SEC_H", PHCRegPTPCurSecH, ReadOnly},
		{"PHC_PTP_SET_FNS", PHCRegPTPSetFNS, IgnoreWrite},
		{"PHC_PTP_SET_NS", PHCRegPTPSetNS, IgnoreWrite},
		{"PHC_PTP_SET_SEC_L", PHCRegPTPSetSecL, IgnoreWrite},
		{"PHC_PTP_SET_SEC_H", PHCRegPTPSetSecH, IgnoreWrite},
		{"IF_ID", IFRegIFID, ReadOnly},
		{"IF_FEATURES", IFRegIFFeatures, ReadOnly},
		{"EVENT_QUEUE_COUNT", IFRegEventQueueCount, ReadOnly},
		{"EVENT_QUEUE_OFFSET", IFRegEventQueueOffset, ReadOnly},
		{"TX_QUEUE_COUNT", IFRegTxQueueCount, ReadOnly},
		{"TX_QUEUE_OFFSET", IFRegTxQueueOffset, ReadOnly},
		{"TX_CPL_QUEUE_COUNT", IFRegTxCplQueueCount, ReadOnly},
		{"TX_CPL_QUEUE_OFFSET", IFRegTxCplQueueOffset, ReadOnly},
		{"RX_QUEUE_COUNT", IFRegRxQueueCount, ReadOnly},
		{"RX_QUEUE_OFFSET", IFRegRxQueueOffset, ReadOnly},
		{"RX_CPL_QUEUE_COUNT", IFRegRxCplQueueCount, ReadOnly},
		{"RX_CPL_QUEUE_OFFSET", IFRegRxCplQueueOffset, ReadOnly},
		{"PORT_COUNT", IFRegPortCount, ReadOnly},
		{"PORT_OFFSET", IFRegPortOffset, ReadOnly},
		{"PORT_STRIDE", IFRegPortStride, ReadOnly},
	}

	for _, q := range queues {
		regs = append(regs,
			RegisterInfo{q.prefix + "_BASE_ADDR_L", q.base + QueueBaseAddrReg, WriteOnly},
			RegisterInfo{q.prefix + "_BASE_ADDR_H", q.base + QueueBaseAddrReg + 4, WriteOnly},
			RegisterInfo{q.prefix + "_ACTIVE_LOG_SIZE", q.base + QueueActiveLogSizeReg, rw(q.sizeRead)},
			RegisterInfo{q.prefix + "_" + q.indexReg, q.base + QueueIndexReg, WriteOnly},
			RegisterInfo{q.prefix + "_HEAD_PTR", q.base + QueueHeadPtrReg, rw(q.headRead)},
			RegisterInfo{q.prefix + "_TAIL_PTR", q.base + QueueTailPtrReg, rw(q.tailRead)},
		)
	}

	regs = append(regs,
		RegisterInfo{"PORT_ID", PortRegPortID, ReadOnly},
		RegisterInfo{"PORT_FEATURES", PortRegPortFeatures, ReadOnly},
		RegisterInfo{"PORT_MTU", PortRegPortMTU, ReadOnly},
		RegisterInfo{"PORT_SCHED_COUNT", PortRegSchedCount, ReadOnly},
		RegisterInfo{"PORT_SCHED_OFFSET", PortRegSchedOffset, ReadOnly},
		RegisterInfo{"PORT_SCHED_STRIDE", PortRegSchedStride, ReadOnly},
		RegisterInfo{"PORT_SCHED_TYPE", PortRegSchedType, ReadOnly},
		RegisterInfo{"PORT_SCHED_ENABLE", PortRegSchedEnable, WriteOnly},
		RegisterInfo{"PORT_RSS_MASK", PortRegRSSMask, WriteOnly},
		RegisterInfo{"PORT_QUEUE_ENABLE", PortQueueEnable, WriteOnly},
	)

	return regs
}
