package nic

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/nicsim/ethernet"
	"github.com/sarchlab/nicsim/pcie"
	"github.com/sarchlab/nicsim/sim"
)

// Comp attaches a Device to a simulated PCIe link and an Ethernet link.
//
// Register accesses arriving on HostPort are answered right away. DMA
// operations the device issues become ReadReq and WriteReq messages to
// HostRemote, and their responses are dispatched back to the device. Frames
// travel over WirePort.
type Comp struct {
	*sim.ComponentBase

	engine sim.Engine
	log    *logrus.Logger
	info   pcie.DeviceInfo

	HostPort   sim.Port
	WirePort   sim.Port
	HostRemote sim.RemotePort
	WireRemote sim.RemotePort

	device     *Device
	inflight   map[string]*DMAOp
	processing bool
}

// Device returns the device model behind the component.
func (c *Comp) Device() *Device {
	return c.device
}

// Info returns the PCIe identity of the device.
func (c *Comp) Info() pcie.DeviceInfo {
	return c.info
}

// Stats returns the device counters.
func (c *Comp) Stats() Stats {
	return c.device.Stats()
}

// NumInflightDMA returns the number of DMA requests waiting for a response.
func (c *Comp) NumInflightDMA() int {
	return len(c.inflight)
}

// Handle implements sim.Handler. The component has no events of its own.
func (c *Comp) Handle(e sim.Event) error {
	return fmt.Errorf("%s cannot handle event of %s", c.Name(), reflect.TypeOf(e))
}

// NotifyRecv processes every message waiting on the ports.
func (c *Comp) NotifyRecv(_ sim.Port) {
	if c.processing {
		return
	}

	c.processing = true
	defer func() { c.processing = false }()

	for {
		madeProgress := false

		if msg := c.HostPort.RetrieveIncoming(); msg != nil {
			c.handleHostMsg(msg)
			madeProgress = true
		}

		if msg := c.WirePort.RetrieveIncoming(); msg != nil {
			c.handleWireMsg(msg)
			madeProgress = true
		}

		if !madeProgress {
			return
		}
	}
}

func (c *Comp) handleHostMsg(msg sim.Msg) {
	switch msg := msg.(type) {
	case *pcie.ReadReq:
		c.handleMMIORead(msg)
	case *pcie.WriteReq:
		c.handleMMIOWrite(msg)
	case *pcie.DataReadyRsp:
		op := c.takeInflight(msg.RespondTo)
		op.Fill(msg.Data)
		c.device.DispatchCompletion(op)
	case *pcie.WriteDoneRsp:
		c.device.DispatchCompletion(c.takeInflight(msg.RespondTo))
	default:
		c.log.WithField("type", reflect.TypeOf(msg).String()).
			Warn("unsupported pcie message, ignored")
	}
}

func (c *Comp) handleWireMsg(msg sim.Msg) {
	frame, ok := msg.(*ethernet.FrameMsg)
	if !ok {
		c.log.WithField("type", reflect.TypeOf(msg).String()).
			Warn("unsupported ethernet message, ignored")

		return
	}

	if c.log.IsLevelEnabled(logrus.DebugLevel) {
		c.logWithTime().WithField("frame", ethernet.Summarize(frame.Data)).
			Debug("frame in")
	}

	c.device.ReceiveFrame(frame.Port, frame.Data)
}

func (c *Comp) mmioMustBeInBAR0(addr, size uint64) {
	if size > 4 || !c.info.InBAR0(addr, size) {
		violate(MMIOOutOfRange, c.Name(), "%d bytes at %#x", size, addr)
	}
}

func (c *Comp) handleMMIORead(req *pcie.ReadReq) {
	c.mmioMustBeInBAR0(req.Address, req.AccessByteSize)

	val := c.device.ReadRegister(req.Address)

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], val)

	rsp := pcie.DataReadyRspBuilder{}.
		WithSrc(c.HostPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(buf[:req.AccessByteSize]).
		Build()
	c.send(c.HostPort, rsp)
}

func (c *Comp) handleMMIOWrite(req *pcie.WriteReq) {
	c.mmioMustBeInBAR0(req.Address, uint64(len(req.Data)))

	var buf [4]byte
	copy(buf[:], req.Data)
	c.device.WriteRegister(req.Address, binary.LittleEndian.Uint32(buf[:]))

	rsp := pcie.WriteDoneRspBuilder{}.
		WithSrc(c.HostPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		Build()
	c.send(c.HostPort, rsp)
}

func (c *Comp) takeInflight(id string) *DMAOp {
	op, found := c.inflight[id]
	if !found {
		violate(StaleCompletion, c.Name(), "response to unknown request %s", id)
	}

	delete(c.inflight, id)

	return op
}

// IssueDMA sends the operation to host memory.
func (c *Comp) IssueDMA(op *DMAOp) {
	var msg sim.Msg

	if op.Write {
		msg = pcie.WriteReqBuilder{}.
			WithSrc(c.HostPort.AsRemote()).
			WithDst(c.HostRemote).
			WithAddress(op.Addr).
			WithData(append([]byte(nil), op.Payload()...)).
			Build()
	} else {
		msg = pcie.ReadReqBuilder{}.
			WithSrc(c.HostPort.AsRemote()).
			WithDst(c.HostRemote).
			WithAddress(op.Addr).
			WithByteSize(uint64(op.Len)).
			Build()
	}

	c.inflight[msg.Meta().ID] = op
	c.send(c.HostPort, msg)
}

// SendFrame puts a frame on the wire.
func (c *Comp) SendFrame(data []byte) {
	if c.log.IsLevelEnabled(logrus.DebugLevel) {
		c.logWithTime().WithField("frame", ethernet.Summarize(data)).
			Debug("frame out")
	}

	msg := ethernet.FrameMsgBuilder{}.
		WithSrc(c.WirePort.AsRemote()).
		WithDst(c.WireRemote).
		WithData(data).
		Build()
	c.send(c.WirePort, msg)
}

// RaiseInterrupt posts an MSI to the host.
func (c *Comp) RaiseInterrupt(vector uint8) {
	if int(vector) >= c.info.MSIVectors {
		c.log.WithField("vector", vector).Warn("msi vector not available")
		return
	}

	c.send(c.HostPort, pcie.NewInterruptReq(
		c.HostPort.AsRemote(), c.HostRemote, vector))
}

func (c *Comp) send(port sim.Port, msg sim.Msg) {
	if err := port.Send(msg); err != nil {
		violate(TransportExhausted, c.Name(),
			"%s refused %s: %v", port.Name(), reflect.TypeOf(msg), err)
	}
}

func (c *Comp) logWithTime() *logrus.Entry {
	return c.log.WithFields(logrus.Fields{
		"comp":    c.Name(),
		"time_ps": uint64(c.engine.CurrentTime()),
	})
}
