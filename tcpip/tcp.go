//
//   date  : 2016-05-13
//   author: xjdrew
//

package tcpip

import (
	"encoding/binary"
	"fmt"
	"net"
)

// tcp header layout, options are not supported
const (
	tcpSrcPort    = 0
	tcpDstPort    = 2
	tcpSeqNum     = 4
	tcpAckNum     = 8
	tcpDataOffset = 12
	tcpFlags      = 13
	tcpWindowSize = 14
	tcpChecksum   = 16
	tcpUrgentPtr  = 18

	TCPHeaderLen = 20
)

// TCPPacket is a tcp segment: a fixed 20 bytes header followed by payload.
// It is not safe for concurrent use.
type TCPPacket []byte

// NewTCPPacket allocates a zeroed segment with room for payloadLen bytes.
func NewTCPPacket(payloadLen int) TCPPacket {
	return make(TCPPacket, TCPHeaderLen+payloadLen)
}

// ParseTCPPacket wraps b without copying.
func ParseTCPPacket(b []byte) (TCPPacket, error) {
	if len(b) < TCPHeaderLen {
		return nil, fmt.Errorf("%w: tcp segment %d bytes, need %d", ErrBufferTooShort, len(b), TCPHeaderLen)
	}

	p := TCPPacket(b)
	if hl := p.HeaderLen(); hl > len(b) {
		return nil, fmt.Errorf("%w: tcp header declares %d bytes, got %d", ErrBufferTooShort, hl, len(b))
	}
	return p, nil
}

func (p TCPPacket) SourcePort() uint16 {
	return binary.BigEndian.Uint16(p[tcpSrcPort:])
}

func (p TCPPacket) SetSourcePort(port uint16) {
	binary.BigEndian.PutUint16(p[tcpSrcPort:], port)
}

func (p TCPPacket) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(p[tcpDstPort:])
}

func (p TCPPacket) SetDestinationPort(port uint16) {
	binary.BigEndian.PutUint16(p[tcpDstPort:], port)
}

func (p TCPPacket) SeqNum() uint32 {
	return binary.BigEndian.Uint32(p[tcpSeqNum:])
}

func (p TCPPacket) SetSeqNum(seq uint32) {
	binary.BigEndian.PutUint32(p[tcpSeqNum:], seq)
}

func (p TCPPacket) AckNum() uint32 {
	return binary.BigEndian.Uint32(p[tcpAckNum:])
}

func (p TCPPacket) SetAckNum(ack uint32) {
	binary.BigEndian.PutUint32(p[tcpAckNum:], ack)
}

// DataOffset returns the header length in 32-bit words.
func (p TCPPacket) DataOffset() uint8 {
	return p[tcpDataOffset] >> 4
}

// SetDataOffset ORs off into the high nibble of byte 12. It does not clear
// the previous value: SetDataOffset(a) followed by SetDataOffset(b) leaves
// a|b. Set it once on a fresh packet.
func (p TCPPacket) SetDataOffset(off uint8) {
	p[tcpDataOffset] |= off << 4
}

// HeaderLen returns the header length in bytes declared by the data offset.
func (p TCPPacket) HeaderLen() int {
	return int(p.DataOffset()) * 4
}

func (p TCPPacket) Flags() TCPFlags {
	return TCPFlags(p[tcpFlags])
}

// SetFlags replaces the whole flags byte.
func (p TCPPacket) SetFlags(flags TCPFlags) {
	p[tcpFlags] = byte(flags)
}

func (p TCPPacket) WindowSize() uint16 {
	return binary.BigEndian.Uint16(p[tcpWindowSize:])
}

func (p TCPPacket) SetWindowSize(size uint16) {
	binary.BigEndian.PutUint16(p[tcpWindowSize:], size)
}

func (p TCPPacket) Checksum() uint16 {
	return binary.BigEndian.Uint16(p[tcpChecksum:])
}

func (p TCPPacket) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(p[tcpChecksum:], sum)
}

func (p TCPPacket) UrgentPointer() uint16 {
	return binary.BigEndian.Uint16(p[tcpUrgentPtr:])
}

func (p TCPPacket) Payload() []byte {
	return p[TCPHeaderLen:]
}

func (p TCPPacket) PayloadLen() int {
	return len(p) - TCPHeaderLen
}

// SetPayload copies payload after the header. The length must match the
// room reserved by NewTCPPacket.
func (p TCPPacket) SetPayload(payload []byte) error {
	if len(payload) != p.PayloadLen() {
		return fmt.Errorf("%w: got %d bytes, reserved %d", ErrPayloadLength, len(payload), p.PayloadLen())
	}
	copy(p[TCPHeaderLen:], payload)
	return nil
}

// sum skips the checksum field, as if it were zero
func (p TCPPacket) sum(psum uint32) uint16 {
	psum += Sum(p[:tcpChecksum])
	return Checksum(psum, p[tcpChecksum+2:])
}

// ComputeChecksum returns the checksum of the segment sent from local to
// remote. The stored checksum field does not take part.
func (p TCPPacket) ComputeChecksum(local, remote net.IP) (uint16, error) {
	if !isIPv4Addr(local) || !isIPv4Addr(remote) {
		return 0, fmt.Errorf("%w: %s > %s", ErrNotIPv4, local, remote)
	}
	return p.sum(PseudoSum(local, remote, TCP, len(p))), nil
}

func (p TCPPacket) ResetChecksum(psum uint32) {
	p.SetChecksum(0)
	p.SetChecksum(Checksum(psum, p))
}

// UpdateChecksum computes the checksum for local > remote and stores it.
func (p TCPPacket) UpdateChecksum(local, remote net.IP) error {
	if !isIPv4Addr(local) || !isIPv4Addr(remote) {
		return fmt.Errorf("%w: %s > %s", ErrNotIPv4, local, remote)
	}
	p.ResetChecksum(PseudoSum(local, remote, TCP, len(p)))
	return nil
}

func (p TCPPacket) IsCorrectChecksum(local, remote net.IP) bool {
	sum, err := p.ComputeChecksum(local, remote)
	if err != nil {
		return false
	}
	return sum == p.Checksum()
}

func (p TCPPacket) String() string {
	return fmt.Sprintf("tcp %d > %d seq=%d ack=%d flags=%s win=%d len=%d",
		p.SourcePort(), p.DestinationPort(), p.SeqNum(), p.AckNum(),
		p.Flags(), p.WindowSize(), p.PayloadLen())
}
