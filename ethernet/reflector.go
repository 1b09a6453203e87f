package ethernet

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/nicsim/sim"
)

// An Injection is a frame the Reflector puts on the wire at a given time.
type Injection struct {
	At   sim.VTimeInPs
	Port uint8
	Data []byte
}

type injectEvent struct {
	*sim.EventBase
	injection Injection
}

type retryEvent struct {
	*sim.EventBase
}

// Reflector sits at the far end of the NIC's Ethernet link. It can send every
// frame it receives back to the NIC, inject frames at scheduled times, and
// record the frames in both directions.
type Reflector struct {
	*sim.ComponentBase

	engine        sim.Engine
	log           *logrus.Logger
	loopback      bool
	recorder      FrameRecorder
	injections    []Injection
	retryInterval sim.VTimeInPs

	Port      sim.Port
	NICRemote sim.RemotePort

	received       [][]byte
	numSent        int
	outgoing       []*FrameMsg
	retryScheduled bool
	processing     bool
}

// Received returns the frames that arrived from the NIC, oldest first.
func (r *Reflector) Received() [][]byte {
	return r.received
}

// NumSent returns the number of frames put on the link.
func (r *Reflector) NumSent() int {
	return r.numSent
}

// Start schedules the injections.
func (r *Reflector) Start() {
	for _, inj := range r.injections {
		r.engine.Schedule(&injectEvent{
			EventBase: sim.NewEventBase(inj.At, r),
			injection: inj,
		})
	}
}

// Handle injects frames and retries refused sends.
func (r *Reflector) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *injectEvent:
		r.logWithTime().WithField("frame", Summarize(e.injection.Data)).
			Debug("inject")
		r.send(e.injection.Port, e.injection.Data)
	case *retryEvent:
		r.retryScheduled = false
		r.flush()
	default:
		return fmt.Errorf("%s cannot handle event of %s",
			r.Name(), reflect.TypeOf(e))
	}

	return nil
}

// NotifyRecv takes every frame waiting on the port.
func (r *Reflector) NotifyRecv(_ sim.Port) {
	if r.processing {
		return
	}

	r.processing = true
	defer func() { r.processing = false }()

	for {
		msg := r.Port.RetrieveIncoming()
		if msg == nil {
			return
		}

		frame, ok := msg.(*FrameMsg)
		if !ok {
			r.log.WithField("type", reflect.TypeOf(msg).String()).
				Warn("unsupported ethernet message, ignored")

			continue
		}

		r.receive(frame)
	}
}

func (r *Reflector) receive(frame *FrameMsg) {
	r.received = append(r.received, frame.Data)

	if r.log.IsLevelEnabled(logrus.DebugLevel) {
		r.logWithTime().WithFields(logrus.Fields{
			"port":  frame.Port,
			"frame": Summarize(frame.Data),
		}).Debug("frame received")
	}

	r.record(frame.Data)

	if r.loopback {
		r.send(frame.Port, append([]byte(nil), frame.Data...))
	}
}

func (r *Reflector) send(port uint8, data []byte) {
	msg := FrameMsgBuilder{}.
		WithSrc(r.Port.AsRemote()).
		WithDst(r.NICRemote).
		WithPort(port).
		WithData(data).
		Build()
	r.outgoing = append(r.outgoing, msg)
	r.flush()
}

func (r *Reflector) flush() {
	for len(r.outgoing) > 0 {
		msg := r.outgoing[0]
		if err := r.Port.Send(msg); err != nil {
			r.scheduleRetry()
			return
		}

		r.outgoing = r.outgoing[1:]
		r.numSent++
		r.record(msg.Data)
	}
}

func (r *Reflector) scheduleRetry() {
	if r.retryScheduled {
		return
	}

	r.retryScheduled = true
	r.engine.Schedule(&retryEvent{
		EventBase: sim.NewEventBase(
			r.engine.CurrentTime()+r.retryInterval, r),
	})
}

func (r *Reflector) record(data []byte) {
	if r.recorder == nil {
		return
	}

	if err := r.recorder.Record(r.engine.CurrentTime(), data); err != nil {
		r.log.WithError(err).Error("failed to record frame")
	}
}

func (r *Reflector) logWithTime() *logrus.Entry {
	return r.log.WithFields(logrus.Fields{
		"comp":    r.Name(),
		"time_ps": uint64(r.engine.CurrentTime()),
	})
}
