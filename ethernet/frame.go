// Package ethernet carries frames between the device and the wire.
package ethernet

import (
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/sarchlab/nicsim/sim"
)

var frameByteOverhead = 4

// FrameMsg moves one raw Ethernet frame over a link.
type FrameMsg struct {
	sim.MsgMeta

	Port uint8
	Data []byte
}

// Meta returns the message meta.
func (m *FrameMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the frame with a new ID.
func (m *FrameMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()
	cloneMsg.Data = append([]byte(nil), m.Data...)

	return &cloneMsg
}

// FrameMsgBuilder can build frame messages.
type FrameMsgBuilder struct {
	src, dst sim.RemotePort
	port     uint8
	data     []byte
}

// WithSrc sets the source of the frame to build.
func (b FrameMsgBuilder) WithSrc(src sim.RemotePort) FrameMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the frame to build.
func (b FrameMsgBuilder) WithDst(dst sim.RemotePort) FrameMsgBuilder {
	b.dst = dst
	return b
}

// WithPort sets the device port index of the frame to build.
func (b FrameMsgBuilder) WithPort(port uint8) FrameMsgBuilder {
	b.port = port
	return b
}

// WithData sets the bytes of the frame to build.
func (b FrameMsgBuilder) WithData(data []byte) FrameMsgBuilder {
	b.data = data
	return b
}

// Build creates a new FrameMsg.
func (b FrameMsgBuilder) Build() *FrameMsg {
	m := &FrameMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.Port = b.port
	m.Data = b.data
	m.TrafficBytes = len(b.data) + frameByteOverhead

	return m
}

// Summarize decodes the frame and describes its layers in one line, such as
// "Ethernet 02:00:00:00:00:01>02:00:00:00:00:02 | IPv4 10.0.0.1>10.0.0.2 |
// UDP 1234>5678".
func Summarize(data []byte) string {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)

	if packet.Layer(layers.LayerTypeEthernet) == nil {
		return fmt.Sprintf("undecodable frame of %d bytes", len(data))
	}

	parts := make([]string, 0, 4)
	for _, l := range packet.Layers() {
		if l.LayerType() == gopacket.LayerTypeDecodeFailure {
			parts = append(parts, "?")
			continue
		}

		parts = append(parts, describeLayer(l))
	}

	return strings.Join(parts, " | ")
}

func describeLayer(l gopacket.Layer) string {
	switch l := l.(type) {
	case *layers.Ethernet:
		return fmt.Sprintf("Ethernet %s>%s", l.SrcMAC, l.DstMAC)
	case *layers.IPv4:
		return fmt.Sprintf("IPv4 %s>%s", l.SrcIP, l.DstIP)
	case *layers.IPv6:
		return fmt.Sprintf("IPv6 %s>%s", l.SrcIP, l.DstIP)
	case *layers.UDP:
		return fmt.Sprintf("UDP %d>%d", l.SrcPort, l.DstPort)
	case *layers.TCP:
		return fmt.Sprintf("TCP %d>%d", l.SrcPort, l.DstPort)
	case *layers.ARP:
		return "ARP"
	case *gopacket.Payload:
		return fmt.Sprintf("Payload %d", len(l.Payload()))
	}

	return l.LayerType().String()
}
