package nic

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/nicsim/pcie"
	"github.com/sarchlab/nicsim/sim"
)

// DefaultDeviceInfo is the PCIe identity of a Corundum NIC.
var DefaultDeviceInfo = pcie.DeviceInfo{
	VendorID:   0x5543,
	DeviceID:   0x1001,
	ClassCode:  0x02,
	Subclass:   0x00,
	Revision:   0x00,
	BAR0Size:   1 << 24,
	BAR0Is64:   true,
	MSIVectors: 32,
}

// Builder can build NIC components.
type Builder struct {
	engine  sim.Engine
	log     *logrus.Logger
	info    pcie.DeviceInfo
	bufSize int
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		info:    DefaultDeviceInfo,
		bufSize: 64,
	}
}

// WithEngine sets the engine that the component uses to tell time.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithLogger sets the logger of the device.
func (b Builder) WithLogger(log *logrus.Logger) Builder {
	b.log = log
	return b
}

// WithDeviceInfo sets the PCIe identity of the device.
func (b Builder) WithDeviceInfo(info pcie.DeviceInfo) Builder {
	b.info = info
	return b
}

// WithBufferSize sets the number of messages each port can hold.
func (b Builder) WithBufferSize(n int) Builder {
	b.bufSize = n
	return b
}

// Build creates a new NIC component.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		engine:   b.engine,
		log:      b.log,
		info:     b.info,
		inflight: make(map[string]*DMAOp),
	}

	if c.log == nil {
		c.log = logrus.New()
		c.log.SetOutput(io.Discard)
	}

	c.ComponentBase = sim.NewComponentBase(name)
	c.device = NewDevice(c, c, c, c.log)

	c.HostPort = sim.NewPort(c, b.bufSize, name+".PCIe")
	c.AddPort("PCIe", c.HostPort)
	c.WirePort = sim.NewPort(c, b.bufSize, name+".Eth")
	c.AddPort("Eth", c.WirePort)

	return c
}
