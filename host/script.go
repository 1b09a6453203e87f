package host

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Op names what a script step does.
type Op string

// Operations a script step can perform.
const (
	OpWriteReg  Op = "write_reg"
	OpReadReg   Op = "read_reg"
	OpWriteMem  Op = "write_mem"
	OpExpectMem Op = "expect_mem"
	OpWaitIRQ   Op = "wait_irq"
	OpWaitNs    Op = "wait_ns"
)

// HexBytes is a byte string written in hex in scenario files. White space
// and underscores between digits are ignored.
type HexBytes []byte

// UnmarshalYAML decodes a hex string.
func (h *HexBytes) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	b, err := ParseHex(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*h = b

	return nil
}

// MarshalYAML encodes the bytes as a hex string.
func (h HexBytes) MarshalYAML() (any, error) {
	return hex.EncodeToString(h), nil
}

// ParseHex decodes a hex string, ignoring white space and underscores.
func ParseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '_':
			return -1
		}

		return r
	}, s)
	s = strings.TrimPrefix(s, "0x")

	return hex.DecodeString(s)
}

// A Step is one action of the host driver.
type Step struct {
	Op     Op       `yaml:"op"`
	Addr   uint64   `yaml:"addr,omitempty"`
	Value  uint32   `yaml:"value,omitempty"`
	Size   uint64   `yaml:"size,omitempty"`
	Expect *uint32  `yaml:"expect,omitempty"`
	Data   HexBytes `yaml:"data,omitempty"`
	Vector uint8    `yaml:"vector,omitempty"`
	Count  int      `yaml:"count,omitempty"`
	Ns     uint64   `yaml:"ns,omitempty"`
}

func (s Step) String() string {
	switch s.Op {
	case OpWriteReg:
		return fmt.Sprintf("write_reg %#x <- %#x", s.Addr, s.Value)
	case OpReadReg:
		if s.Expect != nil {
			return fmt.Sprintf("read_reg %#x == %#x", s.Addr, *s.Expect)
		}

		return fmt.Sprintf("read_reg %#x", s.Addr)
	case OpWriteMem, OpExpectMem:
		return fmt.Sprintf("%s %#x [%d bytes]", s.Op, s.Addr, len(s.Data))
	case OpWaitIRQ:
		return fmt.Sprintf("wait_irq %d x%d", s.Vector, s.irqCount())
	case OpWaitNs:
		return fmt.Sprintf("wait_ns %d", s.Ns)
	}

	return string(s.Op)
}

func (s Step) accessSize() uint64 {
	if s.Size == 0 {
		return 4
	}

	return s.Size
}

func (s Step) irqCount() int {
	if s.Count == 0 {
		return 1
	}

	return s.Count
}

// Validate checks that the step carries what its operation needs.
func (s Step) Validate() error {
	switch s.Op {
	case OpWriteReg:
		if s.Size > 4 {
			return fmt.Errorf("register writes are at most 4 bytes, got %d", s.Size)
		}
	case OpReadReg:
		if s.Size > 4 {
			return fmt.Errorf("register reads are at most 4 bytes, got %d", s.Size)
		}
	case OpWriteMem, OpExpectMem:
		if len(s.Data) == 0 {
			return errors.New("no data")
		}
	case OpWaitIRQ:
		if s.Count < 0 {
			return fmt.Errorf("negative interrupt count %d", s.Count)
		}
	case OpWaitNs:
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}

	return nil
}

// A Script is the sequence of steps the host runs.
type Script []Step

// Validate checks every step.
func (s Script) Validate() error {
	var errs []error

	for i, step := range s {
		if err := step.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
