// Package host models the host side of the PCIe link: host memory that the
// NIC reaches over DMA, and a driver script that programs the NIC through
// its registers.
package host

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/nicsim/pcie"
	"github.com/sarchlab/nicsim/sim"
)

type stepEvent struct {
	*sim.EventBase
}

type retryEvent struct {
	*sim.EventBase
}

// Comp is the host. It serves DMA requests from Storage and runs a Script
// one step at a time.
type Comp struct {
	*sim.ComponentBase

	engine        sim.Engine
	log           *logrus.Logger
	storage       *Storage
	retryInterval sim.VTimeInPs

	Port      sim.Port
	NICRemote sim.RemotePort

	script Script
	pc     int

	pendingMMIO    string
	waitingIRQ     bool
	irqCount       map[uint8]int
	irqConsumed    map[uint8]int
	outgoing       []sim.Msg
	retryScheduled bool
	processing     bool

	err error
}

// Storage returns the host memory.
func (c *Comp) Storage() *Storage {
	return c.storage
}

// SetScript replaces the script. It must be called before Start.
func (c *Comp) SetScript(s Script) {
	c.script = s
	c.pc = 0
}

// Start schedules the first step of the script.
func (c *Comp) Start() {
	c.scheduleStep(c.engine.CurrentTime())
}

// Done tells whether every step has completed.
func (c *Comp) Done() bool {
	return c.pc >= len(c.script)
}

// Err returns the first failure of the script, if any.
func (c *Comp) Err() error {
	return c.err
}

// Position returns the index of the step being executed.
func (c *Comp) Position() int {
	return c.pc
}

// CurrentStep returns the step being executed. It returns false when the
// script has finished.
func (c *Comp) CurrentStep() (Step, bool) {
	if c.Done() {
		return Step{}, false
	}

	return c.script[c.pc], true
}

// Interrupts returns the number of interrupts received on a vector.
func (c *Comp) Interrupts(vector uint8) int {
	return c.irqCount[vector]
}

// Handle runs steps and retries refused sends.
func (c *Comp) Handle(e sim.Event) error {
	switch e.(type) {
	case *stepEvent:
		c.runSteps()
	case *retryEvent:
		c.retryScheduled = false
		c.flush()
	default:
		return fmt.Errorf("%s cannot handle event of %s",
			c.Name(), reflect.TypeOf(e))
	}

	return nil
}

// NotifyRecv processes every message waiting on the port.
func (c *Comp) NotifyRecv(_ sim.Port) {
	if c.processing {
		return
	}

	c.processing = true
	defer func() { c.processing = false }()

	for {
		msg := c.Port.RetrieveIncoming()
		if msg == nil {
			return
		}

		c.handleMsg(msg)
	}
}

func (c *Comp) handleMsg(msg sim.Msg) {
	switch msg := msg.(type) {
	case *pcie.ReadReq:
		c.serveDMARead(msg)
	case *pcie.WriteReq:
		c.serveDMAWrite(msg)
	case *pcie.DataReadyRsp:
		c.finishRegRead(msg)
	case *pcie.WriteDoneRsp:
		c.finishRegWrite(msg)
	case *pcie.InterruptReq:
		c.receiveInterrupt(msg)
	default:
		c.log.WithField("type", reflect.TypeOf(msg).String()).
			Warn("unsupported pcie message, ignored")
	}
}

func (c *Comp) serveDMARead(req *pcie.ReadReq) {
	data, err := c.storage.Read(req.Address, req.AccessByteSize)
	if err != nil {
		c.fail(fmt.Errorf("dma read: %w", err))
		data = make([]byte, req.AccessByteSize)
	}

	c.logWithTime().WithFields(logrus.Fields{
		"addr": req.Address,
		"len":  req.AccessByteSize,
	}).Trace("dma read")

	rsp := pcie.DataReadyRspBuilder{}.
		WithSrc(c.Port.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(data).
		Build()
	c.send(rsp)
}

func (c *Comp) serveDMAWrite(req *pcie.WriteReq) {
	if err := c.storage.Write(req.Address, req.Data); err != nil {
		c.fail(fmt.Errorf("dma write: %w", err))
	}

	c.logWithTime().WithFields(logrus.Fields{
		"addr": req.Address,
		"len":  len(req.Data),
	}).Trace("dma write")

	rsp := pcie.WriteDoneRspBuilder{}.
		WithSrc(c.Port.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		Build()
	c.send(rsp)
}

func (c *Comp) takePendingMMIO(rspTo string) bool {
	if c.pendingMMIO == "" || c.pendingMMIO != rspTo {
		c.log.WithField("rsp_to", rspTo).Warn("unexpected register response")
		return false
	}

	c.pendingMMIO = ""

	return true
}

func (c *Comp) finishRegRead(rsp *pcie.DataReadyRsp) {
	if !c.takePendingMMIO(rsp.RespondTo) {
		return
	}

	step := c.script[c.pc]

	var buf [4]byte
	copy(buf[:], rsp.Data)
	val := binary.LittleEndian.Uint32(buf[:])

	c.logWithTime().WithFields(logrus.Fields{
		"addr":  step.Addr,
		"value": val,
	}).Debug("register read")

	if step.Expect != nil && *step.Expect != val {
		c.fail(fmt.Errorf("step %d (%s): read %#x", c.pc, step, val))
		return
	}

	c.advance()
}

func (c *Comp) finishRegWrite(rsp *pcie.WriteDoneRsp) {
	if !c.takePendingMMIO(rsp.RespondTo) {
		return
	}

	c.advance()
}

func (c *Comp) receiveInterrupt(req *pcie.InterruptReq) {
	c.irqCount[req.Vector]++

	c.logWithTime().WithField("vector", req.Vector).Trace("interrupt")

	if c.waitingIRQ && c.irqSatisfied(c.script[c.pc]) {
		c.waitingIRQ = false
		c.advance()
	}
}

func (c *Comp) irqSatisfied(step Step) bool {
	want := c.irqConsumed[step.Vector] + step.irqCount()
	if c.irqCount[step.Vector] < want {
		return false
	}

	c.irqConsumed[step.Vector] = want

	return true
}

func (c *Comp) advance() {
	c.pc++
	c.scheduleStep(c.engine.CurrentTime())
}

func (c *Comp) scheduleStep(t sim.VTimeInPs) {
	if c.Done() || c.err != nil {
		return
	}

	c.engine.Schedule(&stepEvent{EventBase: sim.NewEventBase(t, c)})
}

// runSteps executes steps until one has to wait.
func (c *Comp) runSteps() {
	for !c.Done() && c.err == nil {
		step := c.script[c.pc]

		c.logWithTime().WithField("step", c.pc).Debug(step.String())

		if !c.execute(step) {
			return
		}

		c.pc++
	}
}

// execute performs a step. It returns true if the step has completed.
func (c *Comp) execute(step Step) bool {
	switch step.Op {
	case OpWriteReg:
		c.issueRegWrite(step)
		return false
	case OpReadReg:
		c.issueRegRead(step)
		return false
	case OpWriteMem:
		if err := c.storage.Write(step.Addr, step.Data); err != nil {
			c.fail(fmt.Errorf("step %d (%s): %w", c.pc, step, err))
			return false
		}
	case OpExpectMem:
		return c.checkMem(step)
	case OpWaitIRQ:
		if !c.irqSatisfied(step) {
			c.waitingIRQ = true
			return false
		}
	case OpWaitNs:
		c.pc++
		c.scheduleStep(c.engine.CurrentTime() +
			sim.VTimeInPs(step.Ns)*sim.Nanosecond)

		return false
	default:
		c.fail(fmt.Errorf("step %d: unknown op %q", c.pc, step.Op))
		return false
	}

	return true
}

func (c *Comp) checkMem(step Step) bool {
	got, err := c.storage.Read(step.Addr, uint64(len(step.Data)))
	if err != nil {
		c.fail(fmt.Errorf("step %d (%s): %w", c.pc, step, err))
		return false
	}

	if !bytes.Equal(got, step.Data) {
		c.fail(fmt.Errorf("step %d (%s): memory holds %x, want %x",
			c.pc, step, got, []byte(step.Data)))

		return false
	}

	return true
}

func (c *Comp) issueRegWrite(step Step) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], step.Value)

	req := pcie.WriteReqBuilder{}.
		WithSrc(c.Port.AsRemote()).
		WithDst(c.NICRemote).
		WithAddress(step.Addr).
		WithData(buf[:step.accessSize()]).
		Build()
	c.pendingMMIO = req.ID
	c.send(req)
}

func (c *Comp) issueRegRead(step Step) {
	req := pcie.ReadReqBuilder{}.
		WithSrc(c.Port.AsRemote()).
		WithDst(c.NICRemote).
		WithAddress(step.Addr).
		WithByteSize(step.accessSize()).
		Build()
	c.pendingMMIO = req.ID
	c.send(req)
}

// send queues the message behind earlier refused messages.
func (c *Comp) send(msg sim.Msg) {
	c.outgoing = append(c.outgoing, msg)
	c.flush()
}

func (c *Comp) flush() {
	for len(c.outgoing) > 0 {
		if err := c.Port.Send(c.outgoing[0]); err != nil {
			c.scheduleRetry()
			return
		}

		c.outgoing = c.outgoing[1:]
	}
}

func (c *Comp) scheduleRetry() {
	if c.retryScheduled {
		return
	}

	c.retryScheduled = true
	c.engine.Schedule(&retryEvent{
		EventBase: sim.NewEventBase(
			c.engine.CurrentTime()+c.retryInterval, c),
	})
}

func (c *Comp) fail(err error) {
	if c.err != nil {
		return
	}

	c.err = err
	c.logWithTime().WithError(err).Error("script failed")
}

func (c *Comp) logWithTime() *logrus.Entry {
	return c.log.WithFields(logrus.Fields{
		"comp":    c.Name(),
		"time_ps": uint64(c.engine.CurrentTime()),
	})
}
