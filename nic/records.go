package nic

import "encoding/binary"

// EventKind is the type field of an event record.
type EventKind uint16

// Event types.
const (
	EventTxCpl EventKind = 0
	EventRxCpl EventKind = 1
)

// Desc is a descriptor as stored in a TX or RX ring.
type Desc struct {
	TxCsumCmd uint16
	Len       uint32
	Addr      uint64
}

// DecodeDesc reads a descriptor from its 16-byte form.
func DecodeDesc(b []byte) Desc {
	return Desc{
		TxCsumCmd: binary.LittleEndian.Uint16(b[2:4]),
		Len:       binary.LittleEndian.Uint32(b[4:8]),
		Addr:      binary.LittleEndian.Uint64(b[8:16]),
	}
}

// Encode writes the 16-byte form of the descriptor into b.
func (d Desc) Encode(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], 0)
	binary.LittleEndian.PutUint16(b[2:4], d.TxCsumCmd)
	binary.LittleEndian.PutUint32(b[4:8], d.Len)
	binary.LittleEndian.PutUint64(b[8:16], d.Addr)
}

// Cpl is a completion record.
type Cpl struct {
	Queue      uint16
	Index      uint16
	Len        uint16
	TsNs       uint32
	TsS        uint16
	RxCsum     uint16
	RxHash     uint32
	RxHashType uint8
}

// DecodeCpl reads a completion from its 32-byte form.
func DecodeCpl(b []byte) Cpl {
	return Cpl{
		Queue:      binary.LittleEndian.Uint16(b[0:2]),
		Index:      binary.LittleEndian.Uint16(b[2:4]),
		Len:        binary.LittleEndian.Uint16(b[4:6]),
		TsNs:       binary.LittleEndian.Uint32(b[8:12]),
		TsS:        binary.LittleEndian.Uint16(b[12:14]),
		RxCsum:     binary.LittleEndian.Uint16(b[14:16]),
		RxHash:     binary.LittleEndian.Uint32(b[16:20]),
		RxHashType: b[20],
	}
}

// Encode writes the 32-byte form of the completion into b, zeroing the
// reserved bytes.
func (c Cpl) Encode(b []byte) {
	clear(b[:CplSize])
	binary.LittleEndian.PutUint16(b[0:2], c.Queue)
	binary.LittleEndian.PutUint16(b[2:4], c.Index)
	binary.LittleEndian.PutUint16(b[4:6], c.Len)
	binary.LittleEndian.PutUint32(b[8:12], c.TsNs)
	binary.LittleEndian.PutUint16(b[12:14], c.TsS)
	binary.LittleEndian.PutUint16(b[14:16], c.RxCsum)
	binary.LittleEndian.PutUint32(b[16:20], c.RxHash)
	b[20] = c.RxHashType
}

// Event is an event record.
type Event struct {
	Type   EventKind
	Source uint16
}

// DecodeEvent reads an event from its 32-byte form.
func DecodeEvent(b []byte) Event {
	return Event{
		Type:   EventKind(binary.LittleEndian.Uint16(b[0:2])),
		Source: binary.LittleEndian.Uint16(b[2:4]),
	}
}

// Encode writes the 32-byte form of the event into b.
func (e Event) Encode(b []byte) {
	clear(b[:EventSize])
	binary.LittleEndian.PutUint16(b[0:2], uint16(e.Type))
	binary.LittleEndian.PutUint16(b[2:4], e.Source)
}
