//
//   date  : 2016-05-13
//   author: xjdrew
//

package toytcp

import (
	"io"

	"github.com/xjdrew/toytcp/tcpip"
)

// TCPFilter validates tcp segments arriving on the tun, and answers them with
// a reset when configured to. It keeps no connection state.
type TCPFilter struct {
	stats      *Stats
	capture    *Capture
	captureBad bool
	reset      bool
}

// segment length in sequence space
func seqLen(p tcpip.TCPPacket) uint32 {
	hl := p.HeaderLen()
	if hl < tcpip.TCPHeaderLen {
		hl = tcpip.TCPHeaderLen
	}
	n := uint32(len(p) - hl)

	flags := p.Flags()
	if flags.Has(tcpip.TCPSyn) {
		n++
	}
	if flags.Has(tcpip.TCPFin) {
		n++
	}
	return n
}

// buildReset returns the reset answering p as a closed port would, or nil
// when p is a reset itself.
func buildReset(ipPacket tcpip.IPv4Packet, p tcpip.TCPPacket) (tcpip.IPv4Packet, error) {
	flags := p.Flags()
	if flags.Has(tcpip.TCPRst) {
		return nil, nil
	}

	srcIP := ipPacket.SourceIP()
	dstIP := ipPacket.DestinationIP()

	rst := tcpip.NewTCPPacket(0)
	rst.SetSourcePort(p.DestinationPort())
	rst.SetDestinationPort(p.SourcePort())
	rst.SetDataOffset(tcpip.TCPHeaderLen / 4)
	if flags.Has(tcpip.TCPAck) {
		rst.SetSeqNum(p.AckNum())
		rst.SetFlags(tcpip.TCPRst)
	} else {
		rst.SetAckNum(p.SeqNum() + seqLen(p))
		rst.SetFlags(tcpip.TCPRst | tcpip.TCPAck)
	}

	if err := rst.UpdateChecksum(dstIP, srcIP); err != nil {
		return nil, err
	}
	return tcpip.NewIPv4Packet(dstIP, srcIP, tcpip.TCP, rst)
}

func (f *TCPFilter) writeCapture(packet []byte) {
	if f.capture == nil {
		return
	}
	if err := f.capture.WritePacket(packet); err != nil {
		logger.Errorf("[capture] write failed: %v", err)
		return
	}
	f.stats.Captured.Add(1)
}

func (f *TCPFilter) Filter(wr io.Writer, ipPacket tcpip.IPv4Packet) {
	f.stats.TCPReceived.Add(1)

	srcIP := ipPacket.SourceIP()
	dstIP := ipPacket.DestinationIP()

	tcpPacket, err := tcpip.ParseTCPPacket(ipPacket.Payload())
	if err != nil {
		f.stats.TCPMalformed.Add(1)
		logger.Debugf("[tcp filter] %s > %s: %v", srcIP, dstIP, err)
		return
	}

	srcPort := tcpPacket.SourcePort()
	dstPort := tcpPacket.DestinationPort()

	if !tcpPacket.IsCorrectChecksum(srcIP, dstIP) {
		f.stats.TCPBadChecksum.Add(1)
		logger.Debugf("[tcp filter] %s:%d > %s:%d: bad checksum 0x%04x, drop", srcIP, srcPort, dstIP, dstPort, tcpPacket.Checksum())
		if f.captureBad {
			f.writeCapture(ipPacket)
		}
		return
	}

	f.stats.TCPAccepted.Add(1)
	logger.Debugf("[tcp filter] %s > %s %s", srcIP, dstIP, tcpPacket)
	f.writeCapture(ipPacket)

	if !f.reset {
		return
	}

	reply, err := buildReset(ipPacket, tcpPacket)
	if err != nil {
		logger.Errorf("[tcp filter] build reset for %s:%d > %s:%d failed: %v", srcIP, srcPort, dstIP, dstPort, err)
		return
	}
	if reply == nil {
		return
	}

	// write back packet
	if _, err := wr.Write(reply); err != nil {
		logger.Errorf("[tcp filter] write reset failed: %v", err)
		return
	}
	f.stats.TCPResets.Add(1)
	f.writeCapture(reply)
	logger.Debugf("[tcp filter] reset %s:%d > %s:%d", dstIP, dstPort, srcIP, srcPort)
}

func NewTCPFilter(stats *Stats, capture *Capture, cfg *ToyConfig) *TCPFilter {
	return &TCPFilter{
		stats:      stats,
		capture:    capture,
		captureBad: cfg.Capture.BadChecksum,
		reset:      cfg.Core.TcpReset,
	}
}
