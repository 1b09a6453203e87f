package ethernet

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/nicsim/sim"
)

// ReflectorBuilder can build reflectors.
type ReflectorBuilder struct {
	engine        sim.Engine
	log           *logrus.Logger
	loopback      bool
	recorder      FrameRecorder
	injections    []Injection
	bufSize       int
	retryInterval sim.VTimeInPs
}

// MakeReflectorBuilder returns a ReflectorBuilder with default parameters.
func MakeReflectorBuilder() ReflectorBuilder {
	return ReflectorBuilder{
		bufSize:       64,
		retryInterval: sim.Nanosecond,
	}
}

// WithEngine sets the engine.
func (b ReflectorBuilder) WithEngine(engine sim.Engine) ReflectorBuilder {
	b.engine = engine
	return b
}

// WithLogger sets the logger.
func (b ReflectorBuilder) WithLogger(log *logrus.Logger) ReflectorBuilder {
	b.log = log
	return b
}

// WithLoopback makes the reflector send received frames back.
func (b ReflectorBuilder) WithLoopback(on bool) ReflectorBuilder {
	b.loopback = on
	return b
}

// WithRecorder sets where frames in both directions are recorded.
func (b ReflectorBuilder) WithRecorder(rec FrameRecorder) ReflectorBuilder {
	b.recorder = rec
	return b
}

// WithInjections sets the frames to inject.
func (b ReflectorBuilder) WithInjections(inj []Injection) ReflectorBuilder {
	b.injections = inj
	return b
}

// WithBufferSize sets the number of messages the port can hold.
func (b ReflectorBuilder) WithBufferSize(n int) ReflectorBuilder {
	b.bufSize = n
	return b
}

// WithRetryInterval sets how long to wait before resending a refused frame.
func (b ReflectorBuilder) WithRetryInterval(t sim.VTimeInPs) ReflectorBuilder {
	b.retryInterval = t
	return b
}

// Build creates a reflector.
func (b ReflectorBuilder) Build(name string) *Reflector {
	r := &Reflector{
		engine:        b.engine,
		log:           b.log,
		loopback:      b.loopback,
		recorder:      b.recorder,
		injections:    b.injections,
		retryInterval: b.retryInterval,
	}

	if r.log == nil {
		r.log = logrus.New()
		r.log.SetOutput(io.Discard)
	}

	r.ComponentBase = sim.NewComponentBase(name)
	r.Port = sim.NewPort(r, b.bufSize, name+".Eth")
	r.AddPort("Eth", r.Port)

	return r
}
