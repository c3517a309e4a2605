//
//   date  : 2016-05-13
//   author: xjdrew
//

package tcpip

import (
	"net"
)

// Sum adds b as a sequence of big-endian 16-bit words. An odd trailing byte is
// padded with zero on the right.
func Sum(b []byte) uint32 {
	var sum uint32

	n := len(b)
	for i := 0; i < n; i = i + 2 {
		sum += (uint32(b[i]) << 8)
		if i+1 < n {
			sum += uint32(b[i+1])
		}
	}
	return sum
}

// checksum for Internet Protocol family headers
func Checksum(sum uint32, b []byte) uint16 {
	sum += Sum(b)
	for sum>>16 != 0 {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum)
}

// PseudoSum returns the partial sum of the ipv4 pseudo header used by tcp and
// udp: source, destination, zero, protocol, length.
func PseudoSum(src, dst net.IP, proto IPProtocol, length int) uint32 {
	src4 := src.To4()
	dst4 := dst.To4()
	if src4 == nil || dst4 == nil {
		return 0
	}

	sum := Sum(src4)
	sum += Sum(dst4)
	sum += uint32(proto)
	sum += uint32(uint16(length))
	return sum
}
