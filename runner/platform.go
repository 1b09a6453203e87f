// Package runner builds a simulated platform out of a config and runs it.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/nicsim/config"
	"github.com/sarchlab/nicsim/ethernet"
	"github.com/sarchlab/nicsim/host"
	"github.com/sarchlab/nicsim/monitoring"
	"github.com/sarchlab/nicsim/nic"
	"github.com/sarchlab/nicsim/sim"
	"github.com/sarchlab/nicsim/tracing"
)

var (
	// ErrTimeLimit is returned when simulated time passes max_time_ns.
	ErrTimeLimit = errors.New("simulated time limit reached")

	// ErrScriptStalled is returned when the simulation runs out of events
	// before the host script finishes.
	ErrScriptStalled = errors.New("host script stalled")
)

// Platform is a host and a NIC joined by a PCIe link, with the NIC's
// Ethernet port attached to a reflector.
type Platform struct {
	Engine     *sim.SerialEngine
	Simulation *sim.Simulation
	NIC        *nic.Comp
	Host       *host.Comp
	Wire       *ethernet.Reflector
	PCIeLink   *sim.FixedLatencyConnection
	EthLink    *sim.FixedLatencyConnection
	Monitor    *monitoring.Monitor
	Tracer     *tracing.DBTracer

	log          *logrus.Logger
	start        sim.VTimeInPs
	maxTime      sim.VTimeInPs
	cancel       context.CancelCauseFunc
	closers      []func() error
	monitorURL   string
	openMonitor  bool
	scriptLength int
}

// Result sums up a finished run.
type Result struct {
	EndTime      sim.VTimeInPs
	Stats        nic.Stats
	Interrupts   int
	FramesOnWire int
	FramesToNIC  int
}

// Build creates the platform described by the config. The returned platform
// must be closed.
func Build(cfg config.Config, log *logrus.Logger) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := sim.VTimeInPs(cfg.StartNs) * sim.Nanosecond

	p := &Platform{
		Engine:       sim.NewSerialEngineAt(start),
		log:          log,
		start:        start,
		maxTime:      sim.VTimeInPs(cfg.MaxTimeNs) * sim.Nanosecond,
		scriptLength: len(cfg.Scenario),
		openMonitor:  cfg.Monitor.OpenBrowser,
	}
	p.Simulation = sim.NewSimulation(p.Engine)

	p.NIC = nic.MakeBuilder().
		WithEngine(p.Engine).
		WithLogger(log).
		WithBufferSize(cfg.PCIe.Buffer).
		Build("NIC")

	p.Host = host.MakeBuilder().
		WithEngine(p.Engine).
		WithLogger(log).
		WithBufferSize(cfg.PCIe.Buffer).
		WithMemorySize(cfg.Host.MemoryBytes).
		WithScript(cfg.Scenario).
		Build("Host")

	if err := p.buildWire(cfg); err != nil {
		p.Close()
		return nil, err
	}

	p.connect(cfg)

	p.Simulation.RegisterComponent(p.NIC)
	p.Simulation.RegisterComponent(p.Host)
	p.Simulation.RegisterComponent(p.Wire)

	if err := p.attachTools(cfg); err != nil {
		p.Close()
		return nil, err
	}

	p.Engine.RegisterSimulationEndHandler(&summaryLogger{p: p})

	return p, nil
}

func (p *Platform) buildWire(cfg config.Config) error {
	var recorder ethernet.FrameRecorder

	if cfg.Pcap != "" {
		pcap, err := ethernet.CreatePcapFile(cfg.Pcap)
		if err != nil {
			return fmt.Errorf("pcap: %w", err)
		}

		p.closers = append(p.closers, pcap.Close)
		recorder = pcap
	}

	injections := make([]ethernet.Injection, 0, len(cfg.Frames))
	for _, f := range cfg.Frames {
		injections = append(injections, ethernet.Injection{
			At:   p.start + sim.VTimeInPs(f.AtNs)*sim.Nanosecond,
			Port: f.Port,
			Data: f.Data,
		})
	}

	p.Wire = ethernet.MakeReflectorBuilder().
		WithEngine(p.Engine).
		WithLogger(p.log).
		WithBufferSize(cfg.Ethernet.Buffer).
		WithLoopback(cfg.Wire.Loopback).
		WithInjections(injections).
		WithRecorder(recorder).
		Build("Wire")

	return nil
}

func (p *Platform) connect(cfg config.Config) {
	p.PCIeLink = sim.NewFixedLatencyConnection("PCIeLink", p.Engine,
		sim.VTimeInPs(cfg.PCIe.LatencyNs)*sim.Nanosecond, cfg.PCIe.MaxInFlight)
	p.PCIeLink.PlugIn(p.NIC.HostPort)
	p.PCIeLink.PlugIn(p.Host.Port)
	// The device cannot retry a refused send, so its ports are unbounded.
	// max_in_flight only limits the peers.
	p.PCIeLink.SetInFlightLimit(p.NIC.HostPort, sim.NoInFlightLimit)
	p.NIC.HostRemote = p.Host.Port.AsRemote()
	p.Host.NICRemote = p.NIC.HostPort.AsRemote()

	p.EthLink = sim.NewFixedLatencyConnection("EthLink", p.Engine,
		sim.VTimeInPs(cfg.Ethernet.LatencyNs)*sim.Nanosecond,
		cfg.Ethernet.MaxInFlight)
	p.EthLink.PlugIn(p.NIC.WirePort)
	p.EthLink.PlugIn(p.Wire.Port)
	p.EthLink.SetInFlightLimit(p.NIC.WirePort, sim.NoInFlightLimit)
	p.NIC.WireRemote = p.Wire.Port.AsRemote()
	p.Wire.NICRemote = p.NIC.WirePort.AsRemote()
}

func (p *Platform) attachTools(cfg config.Config) error {
	if cfg.Trace.Enabled {
		w, err := tracing.NewSQLiteWriter(cfg.Trace.Path)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}

		p.closers = append(p.closers, w.Close)
		p.Tracer = tracing.NewDBTracer(p.Engine, w)

		for _, c := range p.Simulation.Components() {
			tracing.CollectTrace(c, p.Tracer)
		}
	}

	if p.log.IsLevelEnabled(logrus.TraceLevel) {
		msgLogger := sim.NewPortMsgLogger(p.log, p.Engine)
		for _, c := range p.Simulation.Components() {
			for _, port := range c.Ports() {
				port.AcceptHook(msgLogger)
			}
		}
	}

	if p.maxTime > 0 {
		p.Engine.AcceptHook(sim.HookFunc(p.checkTimeLimit))
	}

	if cfg.Monitor.Enabled {
		p.Monitor = monitoring.NewMonitor(p.Simulation).
			WithLogger(p.log).
			WithPortNumber(cfg.Monitor.Port)

		url, err := p.Monitor.StartServer()
		if err != nil {
			return fmt.Errorf("monitor: %w", err)
		}

		p.monitorURL = url
		p.closers = append(p.closers, func() error {
			return p.Monitor.Shutdown(context.Background())
		})

		bar := p.Monitor.CreateProgressBar("Host script", uint64(p.scriptLength))
		p.Engine.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			if ctx.Pos == sim.HookPosAfterEvent {
				bar.SetFinished(uint64(p.Host.Position()))
			}
		}))
	}

	return nil
}

func (p *Platform) checkTimeLimit(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBeforeEvent || p.cancel == nil {
		return
	}

	if p.Engine.CurrentTime()-p.start > p.maxTime {
		p.cancel(ErrTimeLimit)
	}
}

// MonitorURL returns where the monitor serves, or "" without a monitor.
func (p *Platform) MonitorURL() string {
	return p.monitorURL
}

// Run starts the host script and the wire injections and runs the engine
// until nothing is left to do.
func (p *Platform) Run(ctx context.Context) (Result, error) {
	ctx, p.cancel = context.WithCancelCause(ctx)
	defer func() {
		p.cancel(nil)
		p.cancel = nil
	}()

	if p.Monitor != nil && p.openMonitor {
		if err := p.Monitor.OpenInBrowser(p.monitorURL); err != nil {
			p.log.WithError(err).Warn("cannot open the monitor in a browser")
		}
	}

	p.Host.Start()
	p.Wire.Start()

	err := p.Engine.Run(ctx)
	p.Engine.Finished()

	res := p.result()

	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrTimeLimit) {
			return res, fmt.Errorf("%w at %d ps", ErrTimeLimit, res.EndTime)
		}

		return res, err
	}

	if err := p.Host.Err(); err != nil {
		return res, err
	}

	if step, ok := p.Host.CurrentStep(); ok {
		return res, fmt.Errorf("%w at step %d (%s)",
			ErrScriptStalled, p.Host.Position(), step)
	}

	return res, nil
}

func (p *Platform) result() Result {
	return Result{
		EndTime:      p.Engine.CurrentTime(),
		Stats:        p.NIC.Stats(),
		Interrupts:   p.Host.Interrupts(0),
		FramesOnWire: len(p.Wire.Received()),
		FramesToNIC:  p.Wire.NumSent(),
	}
}

// Close releases the files and servers the platform opened.
func (p *Platform) Close() error {
	var errs []error

	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}

	p.closers = nil

	return errors.Join(errs...)
}

type summaryLogger struct {
	p *Platform
}

func (s *summaryLogger) Handle(now sim.VTimeInPs) {
	st := s.p.NIC.Stats()

	s.p.log.WithFields(logrus.Fields{
		"time_ps":       uint64(now),
		"frames_sent":   st.FramesSent,
		"frames_recv":   st.FramesReceived,
		"rx_drops":      st.RxDropsEmpty + st.RxDropsOversize,
		"event_drops":   st.EventDrops,
		"interrupts":    st.Interrupts,
		"dma_issued":    st.DMAIssued,
		"inflight_dma":  s.p.NIC.NumInflightDMA(),
		"script_steps":  s.p.Host.Position(),
		"script_length": s.p.scriptLength,
	}).Info("simulation finished")
}
