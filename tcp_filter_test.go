//
//   date  : 2025-06-02
//   author: xjdrew
//

package toytcp

import (
	"bytes"
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xjdrew/toytcp/tcpip"
)

var (
	peerIP = net.ParseIP("10.193.0.2")
	tunIP  = net.ParseIP("10.193.0.1")
)

// records every packet written to the tun
type packetRecorder struct {
	packets [][]byte
}

func (r *packetRecorder) Write(b []byte) (int, error) {
	r.packets = append(r.packets, append([]byte(nil), b...))
	return len(b), nil
}

func makeSegment(t *testing.T, flags tcpip.TCPFlags, seq, ack uint32, payload []byte) tcpip.IPv4Packet {
	t.Helper()

	p := tcpip.NewTCPPacket(len(payload))
	p.SetSourcePort(40000)
	p.SetDestinationPort(80)
	p.SetSeqNum(seq)
	p.SetAckNum(ack)
	p.SetDataOffset(5)
	p.SetFlags(flags)
	p.SetWindowSize(8192)
	require.NoError(t, p.SetPayload(payload))
	require.NoError(t, p.UpdateChecksum(peerIP, tunIP))

	ipPacket, err := tcpip.NewIPv4Packet(peerIP, tunIP, tcpip.TCP, p)
	require.NoError(t, err)
	return ipPacket
}

func newTestFilter(t *testing.T, reset bool) (*TCPFilter, *bytes.Buffer) {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	capture, err := newCapture(buf, DefaultSnaplen)
	require.NoError(t, err)

	f := &TCPFilter{
		stats:      new(Stats),
		capture:    capture,
		captureBad: true,
		reset:      reset,
	}
	return f, buf
}

func replySegment(t *testing.T, b []byte) (tcpip.IPv4Packet, tcpip.TCPPacket) {
	t.Helper()

	ipPacket, err := tcpip.ParseIPv4Packet(b)
	require.NoError(t, err)
	require.Equal(t, tcpip.TCP, ipPacket.Protocol())

	p, err := tcpip.ParseTCPPacket(ipPacket.Payload())
	require.NoError(t, err)
	return ipPacket, p
}

func TestTCPFilterResetSyn(t *testing.T) {
	f, _ := newTestFilter(t, true)
	rec := &packetRecorder{}

	f.Filter(rec, makeSegment(t, tcpip.TCPSyn, 1000, 0, nil))

	require.Len(t, rec.packets, 1)
	ipPacket, rst := replySegment(t, rec.packets[0])

	assert.True(t, tunIP.Equal(ipPacket.SourceIP()))
	assert.True(t, peerIP.Equal(ipPacket.DestinationIP()))
	assert.Equal(t, uint16(80), rst.SourcePort())
	assert.Equal(t, uint16(40000), rst.DestinationPort())
	assert.Equal(t, uint32(0), rst.SeqNum())
	assert.Equal(t, uint32(1001), rst.AckNum())
	assert.Equal(t, tcpip.TCPRst|tcpip.TCPAck, rst.Flags())
	assert.Equal(t, uint8(5), rst.DataOffset())
	assert.True(t, rst.IsCorrectChecksum(tunIP, peerIP))

	s := f.stats.Snapshot()
	assert.Equal(t, uint64(1), s.TCPReceived)
	assert.Equal(t, uint64(1), s.TCPAccepted)
	assert.Equal(t, uint64(1), s.TCPResets)
	assert.Equal(t, uint64(2), s.Captured)
}

func TestTCPFilterResetAck(t *testing.T) {
	f, _ := newTestFilter(t, true)
	rec := &packetRecorder{}

	f.Filter(rec, makeSegment(t, tcpip.TCPAck|tcpip.TCPPsh, 5000, 777, []byte("hello")))

	require.Len(t, rec.packets, 1)
	_, rst := replySegment(t, rec.packets[0])
	assert.Equal(t, uint32(777), rst.SeqNum())
	assert.Equal(t, uint32(0), rst.AckNum())
	assert.Equal(t, tcpip.TCPRst, rst.Flags())
	assert.True(t, rst.IsCorrectChecksum(tunIP, peerIP))
}

func TestTCPFilterResetDataFin(t *testing.T) {
	f, _ := newTestFilter(t, true)
	rec := &packetRecorder{}

	f.Filter(rec, makeSegment(t, tcpip.TCPFin|tcpip.TCPPsh, 0xfffffffe, 0, []byte("abc")))

	require.Len(t, rec.packets, 1)
	_, rst := replySegment(t, rec.packets[0])
	// wraps around
	assert.Equal(t, uint32(2), rst.AckNum())
}

func TestTCPFilterIgnoreReset(t *testing.T) {
	f, _ := newTestFilter(t, true)
	rec := &packetRecorder{}

	f.Filter(rec, makeSegment(t, tcpip.TCPRst, 1, 0, nil))

	assert.Empty(t, rec.packets)
	assert.Equal(t, uint64(1), f.stats.TCPAccepted.Load())
	assert.Equal(t, uint64(0), f.stats.TCPResets.Load())
}

func TestTCPFilterNoReset(t *testing.T) {
	f, _ := newTestFilter(t, false)
	rec := &packetRecorder{}

	f.Filter(rec, makeSegment(t, tcpip.TCPSyn, 1, 0, nil))

	assert.Empty(t, rec.packets)
	assert.Equal(t, uint64(1), f.stats.TCPAccepted.Load())
}

func TestTCPFilterBadChecksum(t *testing.T) {
	f, _ := newTestFilter(t, true)
	rec := &packetRecorder{}

	ipPacket := makeSegment(t, tcpip.TCPSyn, 1000, 0, []byte{1, 2, 3, 4})
	ipPacket.Payload()[tcpip.TCPHeaderLen] ^= 0xff

	f.Filter(rec, ipPacket)

	assert.Empty(t, rec.packets)
	s := f.stats.Snapshot()
	assert.Equal(t, uint64(1), s.TCPReceived)
	assert.Equal(t, uint64(0), s.TCPAccepted)
	assert.Equal(t, uint64(1), s.TCPBadChecksum)
	assert.Equal(t, uint64(1), s.Captured)
}

func TestTCPFilterMalformed(t *testing.T) {
	f, _ := newTestFilter(t, true)
	rec := &packetRecorder{}

	ipPacket, err := tcpip.NewIPv4Packet(peerIP, tunIP, tcpip.TCP, make([]byte, 12))
	require.NoError(t, err)

	f.Filter(rec, ipPacket)

	assert.Empty(t, rec.packets)
	assert.Equal(t, uint64(1), f.stats.TCPMalformed.Load())
	assert.Equal(t, uint64(0), f.stats.Captured.Load())
}

func TestBuildReset(t *testing.T) {
	ipPacket := makeSegment(t, tcpip.TCPSyn, 41, 0, nil)
	p, err := tcpip.ParseTCPPacket(ipPacket.Payload())
	require.NoError(t, err)

	reply, err := buildReset(ipPacket, p)
	require.NoError(t, err)
	require.NotNil(t, reply)

	// gopacket agrees on the wire bytes
	packet := gopacket.NewPacket(reply, layers.LayerTypeIPv4, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	require.True(t, ok)
	assert.True(t, tcp.RST)
	assert.True(t, tcp.ACK)
	assert.Equal(t, uint32(42), tcp.Ack)
	assert.Equal(t, layers.TCPPort(40000), tcp.DstPort)
}

func TestCaptureReadBack(t *testing.T) {
	f, buf := newTestFilter(t, true)
	rec := &packetRecorder{}

	in := makeSegment(t, tcpip.TCPSyn, 1000, 0, []byte{1, 2, 3, 4})
	f.Filter(rec, in)
	require.NoError(t, f.capture.Flush())

	r, err := pcapgo.NewReader(buf)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeRaw, r.LinkType())

	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte(in), data)
	assert.Equal(t, len(in), ci.Length)

	data, _, err = r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, rec.packets[0], data)

	packet := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.Default)
	tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	require.True(t, ok)
	assert.True(t, tcp.RST)
}

func TestCaptureSnaplen(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	c, err := newCapture(buf, 24)
	require.NoError(t, err)

	in := makeSegment(t, tcpip.TCPAck, 1, 1, make([]byte, 100))
	require.NoError(t, c.WritePacket(in))
	require.NoError(t, c.Close())

	r, err := pcapgo.NewReader(buf)
	require.NoError(t, err)
	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte(in[:24]), data)
	assert.Equal(t, 24, ci.CaptureLength)
	assert.Equal(t, len(in), ci.Length)
}

func TestICMPFilter(t *testing.T) {
	stats := new(Stats)
	filter := newICMPFilter(stats)
	rec := &packetRecorder{}

	icmp := tcpip.ICMPPacket{byte(tcpip.ICMPEchoRequest), 0, 0, 0, 0, 1, 0, 1, 'x'}
	icmp.ResetChecksum()
	ipPacket, err := tcpip.NewIPv4Packet(peerIP, tunIP, tcpip.ICMP, icmp)
	require.NoError(t, err)

	filter.Filter(rec, ipPacket)

	require.Len(t, rec.packets, 1)
	reply, err := tcpip.ParseIPv4Packet(rec.packets[0])
	require.NoError(t, err)
	assert.True(t, tunIP.Equal(reply.SourceIP()))
	assert.True(t, peerIP.Equal(reply.DestinationIP()))
	assert.Equal(t, tcpip.ICMPEchoReply, tcpip.ICMPPacket(reply.Payload()).Type())
	assert.Equal(t, uint16(0), tcpip.Checksum(0, reply.Payload()))
	assert.Equal(t, uint64(1), stats.ICMPEchoes.Load())
}
