//
//   date  : 2016-05-13
//   author: xjdrew
//

package tcpip

import (
	"encoding/binary"
)

type ICMPType byte

const (
	ICMPEchoReply   ICMPType = 0x0
	ICMPEchoRequest ICMPType = 0x8
)

const icmpHeaderLen = 8

type ICMPPacket []byte

func (p ICMPPacket) Valid() bool {
	return len(p) >= icmpHeaderLen
}

func (p ICMPPacket) Type() ICMPType {
	return ICMPType(p[0])
}

func (p ICMPPacket) SetType(v ICMPType) {
	p[0] = byte(v)
}

func (p ICMPPacket) Code() byte {
	return p[1]
}

func (p ICMPPacket) Checksum() uint16 {
	return binary.BigEndian.Uint16(p[2:])
}

func (p ICMPPacket) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(p[2:], sum)
}

func (p ICMPPacket) ResetChecksum() {
	p.SetChecksum(0)
	p.SetChecksum(Checksum(0, p))
}
