//
//   date  : 2025-06-02
//   author: xjdrew
//

package toytcp

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
)

// Capture writes raw ipv4 packets to a pcap stream.
type Capture struct {
	mu      sync.Mutex
	bw      *bufio.Writer
	w       *pcapgo.Writer
	closer  io.Closer
	snaplen uint32
}

func newCapture(wr io.Writer, snaplen uint32) (*Capture, error) {
	bw := bufio.NewWriter(wr)
	w := pcapgo.NewWriter(bw)
	if err := w.WriteFileHeader(snaplen, layers.LinkTypeRaw); err != nil {
		return nil, err
	}
	return &Capture{bw: bw, w: w, snaplen: snaplen}, nil
}

func NewCapture(path string, snaplen uint32) (*Capture, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	c, err := newCapture(f, snaplen)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f

	logger.Infof("[capture] write packets to %s, snaplen %d", path, snaplen)
	return c, nil
}

func (c *Capture) WritePacket(packet []byte) error {
	n := len(packet)
	if n > int(c.snaplen) {
		n = int(c.snaplen)
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: n,
		Length:        len(packet),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.WritePacket(ci, packet[:n])
}

func (c *Capture) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bw.Flush()
}

func (c *Capture) Close() error {
	err := c.Flush()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
