package nic

// FeatureMask is the set of interface features a port may advertise.
const FeatureMask = IFFeatureRSS | IFFeaturePTPTS | IFFeatureTxCsum |
	IFFeatureRxCsum | IFFeatureRxHash

// Port is the scheduler and capability state of the single network port.
type Port struct {
	id          uint32
	features    uint32
	mtu         uint32
	schedCount  uint32
	schedOffset uint32
	schedStride uint32
	schedType   uint32
	rssMask     uint32
	schedEnable bool
	queueEnable bool
}

// ID returns the port ID.
func (p *Port) ID() uint32 { return p.id }

// SetID sets the port ID.
func (p *Port) SetID(id uint32) { p.id = id }

// Features returns the advertised feature bits.
func (p *Port) Features() uint32 { return p.features }

// SetFeatures stores the recognized bits of f and drops the others.
func (p *Port) SetFeatures(f uint32) { p.features = f & FeatureMask }

// MTU returns the maximum frame size.
func (p *Port) MTU() uint32 { return p.mtu }

// SetMTU sets the maximum frame size.
func (p *Port) SetMTU(mtu uint32) { p.mtu = mtu }

// SchedCount returns the number of scheduler slots.
func (p *Port) SchedCount() uint32 { return p.schedCount }

// SetSchedCount sets the number of scheduler slots.
func (p *Port) SetSchedCount(n uint32) { p.schedCount = n }

// SchedOffset returns the register offset of the schedulers.
func (p *Port) SchedOffset() uint32 { return p.schedOffset }

// SetSchedOffset sets the register offset of the schedulers.
func (p *Port) SetSchedOffset(o uint32) { p.schedOffset = o }

// SchedStride returns the register stride between schedulers.
func (p *Port) SchedStride() uint32 { return p.schedStride }

// SetSchedStride sets the register stride between schedulers.
func (p *Port) SetSchedStride(s uint32) { p.schedStride = s }

// SchedType returns the scheduler type.
func (p *Port) SchedType() uint32 { return p.schedType }

// SetSchedType sets the scheduler type.
func (p *Port) SetSchedType(t uint32) { p.schedType = t }

// RSSMask returns the receive-side scaling mask.
func (p *Port) RSSMask() uint32 { return p.rssMask }

// SetRSSMask sets the receive-side scaling mask.
func (p *Port) SetRSSMask(m uint32) { p.rssMask = m }

// SchedEnabled tells if the scheduler is enabled.
func (p *Port) SchedEnabled() bool { return p.schedEnable }

// SetSchedEnable enables or disables the scheduler.
func (p *Port) SetSchedEnable(on bool) { p.schedEnable = on }

// QueueEnabled tells if the port queues are enabled.
func (p *Port) QueueEnabled() bool { return p.queueEnable }

// SetQueueEnable enables or disables the port queues.
func (p *Port) SetQueueEnable(on bool) { p.queueEnable = on }
