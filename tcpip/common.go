//
//   date  : 2016-05-13
//   author: xjdrew
//

package tcpip

import (
	"net"
)

func IsIPv4(packet []byte) bool {
	return len(packet) > 0 && (packet[0]>>4) == 4
}

func isIPv4Addr(ip net.IP) bool {
	return ip.To4() != nil
}
