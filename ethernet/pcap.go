package ethernet

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/sarchlab/nicsim/sim"
)

const pcapSnapLen = 65536

// A FrameRecorder keeps the frames seen on a link.
type FrameRecorder interface {
	Record(t sim.VTimeInPs, data []byte) error
}

// PcapRecorder writes frames to a pcap stream. Simulated time becomes the
// capture timestamp, counted from the Unix epoch.
type PcapRecorder struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	w      *pcapgo.Writer
	closer io.Closer
	count  int
}

// NewPcapRecorder writes the pcap file header to w and returns a recorder
// that appends to it.
func NewPcapRecorder(w io.Writer) (*PcapRecorder, error) {
	r := &PcapRecorder{buf: bufio.NewWriter(w)}
	r.w = pcapgo.NewWriterNanos(r.buf)

	if err := r.w.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
		return nil, err
	}

	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}

	return r, nil
}

// CreatePcapFile creates the file at path and returns a recorder writing to
// it.
func CreatePcapFile(path string) (*PcapRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	r, err := NewPcapRecorder(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return r, nil
}

// Record appends one frame.
func (r *PcapRecorder) Record(t sim.VTimeInPs, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ci := gopacket.CaptureInfo{
		Timestamp:     time.Unix(0, int64(t/sim.Nanosecond)).UTC(),
		CaptureLength: min(len(data), pcapSnapLen),
		Length:        len(data),
	}

	r.count++

	return r.w.WritePacket(ci, data[:ci.CaptureLength])
}

// Count returns the number of frames recorded.
func (r *PcapRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}

// Flush writes buffered frames out.
func (r *PcapRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.buf.Flush()
}

// Close flushes the recorder and closes the underlying writer if it can be
// closed.
func (r *PcapRecorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}

	if r.closer != nil {
		return r.closer.Close()
	}

	return nil
}
