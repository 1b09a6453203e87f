package nic

import (
	"errors"
	"fmt"
)

// ViolationKind classifies a fatal protocol violation.
type ViolationKind int

// The kinds of protocol violations the device can detect.
const (
	UnknownRegisterRead ViolationKind = iota
	UnknownRegisterWrite
	OutOfOrderCompletion
	IndexContinuation
	UnknownDMAKind
	UnknownEventKind
	DMAOverflow
	StaleCompletion
	TransportExhausted
	MMIOOutOfRange
)

var violationKindNames = map[ViolationKind]string{
	UnknownRegisterRead:  "unknown register read",
	UnknownRegisterWrite: "unknown register write",
	OutOfOrderCompletion: "out-of-order completion",
	IndexContinuation:    "index continuation bit set",
	UnknownDMAKind:       "unknown dma kind",
	UnknownEventKind:     "unknown event kind",
	DMAOverflow:          "dma overflow",
	StaleCompletion:      "completion for an op not in flight",
	TransportExhausted:   "transport exhausted",
	MMIOOutOfRange:       "mmio outside bar0",
}

func (k ViolationKind) String() string {
	if s, ok := violationKindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("violation(%d)", int(k))
}

// A ProtocolViolation means that the device, the host, or the transport
// between them no longer agree on the protocol. The device state cannot be
// trusted after a violation, so it is raised as a panic and never returned.
type ProtocolViolation struct {
	Kind  ViolationKind
	Where string
	Msg   string
}

func (v *ProtocolViolation) Error() string {
	return fmt.Sprintf("%s: %s: %s", v.Where, v.Kind, v.Msg)
}

func violate(kind ViolationKind, where string, format string, args ...any) {
	panic(&ProtocolViolation{
		Kind:  kind,
		Where: where,
		Msg:   fmt.Sprintf(format, args...),
	})
}

// AsViolation extracts a ProtocolViolation from a recovered panic value or
// an error chain.
func AsViolation(v any) (*ProtocolViolation, bool) {
	switch x := v.(type) {
	case *ProtocolViolation:
		return x, true
	case error:
		var pv *ProtocolViolation
		if errors.As(x, &pv) {
			return pv, true
		}
	}

	return nil, false
}
