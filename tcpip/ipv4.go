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

type IPProtocol byte

const (
	ICMP IPProtocol = 0x01
	TCP  IPProtocol = 0x06
	UDP  IPProtocol = 0x11
)

const (
	IPv4HeaderLen = 20

	ipv4DefaultTTL = 64
	ipv4FlagDF     = 0x4000
)

type IPv4Packet []byte

// NewIPv4Packet builds an ipv4 packet without options around payload.
func NewIPv4Packet(src, dst net.IP, proto IPProtocol, payload []byte) (IPv4Packet, error) {
	src4 := src.To4()
	dst4 := dst.To4()
	if src4 == nil || dst4 == nil {
		return nil, fmt.Errorf("%w: %s > %s", ErrNotIPv4, src, dst)
	}

	total := IPv4HeaderLen + len(payload)
	if total > 0xffff {
		return nil, fmt.Errorf("ipv4 packet too long: %d", total)
	}

	p := make(IPv4Packet, total)
	p[0] = 4<<4 | IPv4HeaderLen/4
	binary.BigEndian.PutUint16(p[2:], uint16(total))
	binary.BigEndian.PutUint16(p[6:], ipv4FlagDF)
	p[8] = ipv4DefaultTTL
	p[9] = byte(proto)
	copy(p[12:16], src4)
	copy(p[16:20], dst4)
	copy(p[IPv4HeaderLen:], payload)
	p.ResetChecksum()
	return p, nil
}

// ParseIPv4Packet checks version and lengths, and trims b to the total length.
func ParseIPv4Packet(b []byte) (IPv4Packet, error) {
	if len(b) < IPv4HeaderLen {
		return nil, fmt.Errorf("%w: ipv4 packet %d bytes", ErrBufferTooShort, len(b))
	}

	p := IPv4Packet(b)
	if v := p.Version(); v != 4 {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	hl := int(p.HeaderLen())
	tl := int(p.TotalLen())
	if hl < IPv4HeaderLen || tl < hl || tl > len(b) {
		return nil, fmt.Errorf("%w: ipv4 header %d, total %d, got %d", ErrBufferTooShort, hl, tl, len(b))
	}
	return p[:tl], nil
}

func (p IPv4Packet) Version() uint8 {
	return p[0] >> 4
}

func (p IPv4Packet) TotalLen() uint16 {
	return binary.BigEndian.Uint16(p[2:])
}

func (p IPv4Packet) HeaderLen() uint16 {
	return uint16(p[0]&0xf) * 4
}

func (p IPv4Packet) DataLen() uint16 {
	return p.TotalLen() - p.HeaderLen()
}

func (p IPv4Packet) Payload() []byte {
	return p[p.HeaderLen():p.TotalLen()]
}

func (p IPv4Packet) TTL() uint8 {
	return p[8]
}

func (p IPv4Packet) Protocol() IPProtocol {
	return IPProtocol(p[9])
}

func (p IPv4Packet) SourceIP() net.IP {
	var ip = [4]byte{p[12], p[13], p[14], p[15]}
	return net.IP(ip[:])
}

func (p IPv4Packet) SetSourceIP(ip net.IP) {
	ip = ip.To4()
	if ip != nil {
		copy(p[12:16], ip)
	}
}

func (p IPv4Packet) DestinationIP() net.IP {
	var ip = [4]byte{p[16], p[17], p[18], p[19]}
	return net.IP(ip[:])
}

func (p IPv4Packet) SetDestinationIP(ip net.IP) {
	ip = ip.To4()
	if ip != nil {
		copy(p[16:20], ip)
	}
}

func (p IPv4Packet) Checksum() uint16 {
	return binary.BigEndian.Uint16(p[10:])
}

func (p IPv4Packet) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(p[10:], sum)
}

func (p IPv4Packet) ResetChecksum() {
	p.SetChecksum(0)
	p.SetChecksum(Checksum(0, p[:p.HeaderLen()]))
}

// for tcp checksum
func (p IPv4Packet) PseudoSum() uint32 {
	return PseudoSum(p.SourceIP(), p.DestinationIP(), p.Protocol(), int(p.DataLen()))
}
