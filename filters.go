//
//   date  : 2016-05-13
//   author: xjdrew
//

package toytcp

import (
	"io"

	"github.com/xjdrew/toytcp/tcpip"
)

type PacketFilter interface {
	Filter(wr io.Writer, p tcpip.IPv4Packet)
}

type PacketFilterFunc func(wr io.Writer, p tcpip.IPv4Packet)

func (f PacketFilterFunc) Filter(wr io.Writer, p tcpip.IPv4Packet) {
	f(wr, p)
}

// answers ping
func newICMPFilter(stats *Stats) PacketFilterFunc {
	return func(wr io.Writer, ipPacket tcpip.IPv4Packet) {
		icmpPacket := tcpip.ICMPPacket(ipPacket.Payload())
		if !icmpPacket.Valid() {
			logger.Debugf("[icmp filter] %s > %s: short packet", ipPacket.SourceIP(), ipPacket.DestinationIP())
			return
		}

		if icmpPacket.Type() == tcpip.ICMPEchoRequest && icmpPacket.Code() == 0 {
			logger.Debugf("[icmp filter] ping %s > %s", ipPacket.SourceIP(), ipPacket.DestinationIP())
			// forge a reply
			icmpPacket.SetType(tcpip.ICMPEchoReply)
			srcIP := ipPacket.SourceIP()
			dstIP := ipPacket.DestinationIP()
			ipPacket.SetSourceIP(dstIP)
			ipPacket.SetDestinationIP(srcIP)

			icmpPacket.ResetChecksum()
			ipPacket.ResetChecksum()
			if _, err := wr.Write(ipPacket); err != nil {
				logger.Errorf("[icmp filter] write reply failed: %v", err)
				return
			}
			stats.ICMPEchoes.Add(1)
		} else {
			logger.Debugf("[icmp filter] %s > %s type %d", ipPacket.SourceIP(), ipPacket.DestinationIP(), icmpPacket.Type())
		}
	}
}
