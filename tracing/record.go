// Package tracing records the messages that cross simulated ports.
package tracing

import (
	"fmt"

	"github.com/sarchlab/nicsim/ethernet"
	"github.com/sarchlab/nicsim/pcie"
	"github.com/sarchlab/nicsim/sim"
)

// Direction tells whether a message left or reached a port.
type Direction string

// Directions of a traced message.
const (
	DirSend Direction = "send"
	DirRecv Direction = "recv"
)

// A Record is one message seen at one port.
type Record struct {
	ID        string
	TimePs    uint64
	Port      string
	Direction Direction
	Kind      string
	Addr      uint64
	Len       int
}

// A RecordWriter stores records.
type RecordWriter interface {
	Write(r Record)
	Flush() error
}

// describe fills the message dependent fields of a record.
func describe(msg sim.Msg, r *Record) {
	r.ID = msg.Meta().ID

	switch msg := msg.(type) {
	case *pcie.ReadReq:
		r.Kind = "read_req"
		r.Addr = msg.Address
		r.Len = int(msg.AccessByteSize)
	case *pcie.WriteReq:
		r.Kind = "write_req"
		r.Addr = msg.Address
		r.Len = len(msg.Data)
	case *pcie.DataReadyRsp:
		r.Kind = "data_ready"
		r.Len = len(msg.Data)
	case *pcie.WriteDoneRsp:
		r.Kind = "write_done"
	case *pcie.InterruptReq:
		r.Kind = "interrupt"
		r.Addr = uint64(msg.Vector)
	case *ethernet.FrameMsg:
		r.Kind = "frame"
		r.Addr = uint64(msg.Port)
		r.Len = len(msg.Data)
	default:
		r.Kind = fmt.Sprintf("%T", msg)
	}
}
