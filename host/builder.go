package host

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/nicsim/sim"
)

// Builder can build hosts.
type Builder struct {
	engine        sim.Engine
	log           *logrus.Logger
	memSize       uint64
	bufSize       int
	retryInterval sim.VTimeInPs
	script        Script
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		memSize:       1 << 30,
		bufSize:       64,
		retryInterval: sim.Nanosecond,
	}
}

// WithEngine sets the engine that schedules the script.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log *logrus.Logger) Builder {
	b.log = log
	return b
}

// WithMemorySize sets the capacity of host memory in bytes.
func (b Builder) WithMemorySize(n uint64) Builder {
	b.memSize = n
	return b
}

// WithBufferSize sets the number of messages the port can hold.
func (b Builder) WithBufferSize(n int) Builder {
	b.bufSize = n
	return b
}

// WithRetryInterval sets how long the host waits before resending a message
// the link refused.
func (b Builder) WithRetryInterval(t sim.VTimeInPs) Builder {
	b.retryInterval = t
	return b
}

// WithScript sets the driver script.
func (b Builder) WithScript(s Script) Builder {
	b.script = s
	return b
}

// Build creates a host.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		engine:        b.engine,
		log:           b.log,
		storage:       NewStorage(b.memSize),
		retryInterval: b.retryInterval,
		script:        b.script,
		irqCount:      make(map[uint8]int),
		irqConsumed:   make(map[uint8]int),
	}

	if c.log == nil {
		c.log = logrus.New()
		c.log.SetOutput(io.Discard)
	}

	c.ComponentBase = sim.NewComponentBase(name)
	c.Port = sim.NewPort(c, b.bufSize, name+".PCIe")
	c.AddPort("PCIe", c.Port)

	return c
}
