//
//   date  : 2016-05-13
//   author: xjdrew
//

package toytcp

import (
	"net"

	"github.com/songgao/water"

	"github.com/xjdrew/toytcp/tcpip"
)

type TunDriver struct {
	ifce    *water.Interface
	mtu     int
	stats   *Stats
	filters map[tcpip.IPProtocol]PacketFilter
}

func (tun *TunDriver) dispatch(packet []byte) {
	if !tcpip.IsIPv4(packet) {
		return
	}

	ipPacket, err := tcpip.ParseIPv4Packet(packet)
	if err != nil {
		logger.Debugf("[tun] drop packet: %v", err)
		return
	}

	protocol := ipPacket.Protocol()
	filter := tun.filters[protocol]
	if filter == nil {
		tun.stats.Unsupported.Add(1)
		logger.Noticef("[tun] %v > %v protocol %d unsupport", ipPacket.SourceIP(), ipPacket.DestinationIP(), protocol)
		return
	}

	filter.Filter(tun.ifce, ipPacket)
}

func (tun *TunDriver) Serve() error {
	ifce := tun.ifce

	buffer := make([]byte, tun.mtu)
	for {
		n, err := ifce.Read(buffer)
		if err != nil {
			logger.Errorf("[tun] read failed: %v", err)
			return err
		}
		tun.dispatch(buffer[:n])
	}
}

func (tun *TunDriver) Name() string {
	return tun.ifce.Name()
}

func (tun *TunDriver) Close() error {
	return tun.ifce.Close()
}

func createTun(ip net.IP, mask net.IPMask, mtu int) (*water.Interface, error) {
	ifce, err := water.New(water.Config{
		DeviceType: water.TUN,
	})

	if err != nil {
		return nil, err
	}

	logger.Infof("[tun] create %s", ifce.Name())

	ipNet := &net.IPNet{
		IP:   ip,
		Mask: mask,
	}

	if err := initTun(ifce.Name(), ipNet, mtu); err != nil {
		ifce.Close()
		return nil, err
	}
	return ifce, nil
}

func NewTunDriver(ip net.IP, subnet *net.IPNet, mtu int, stats *Stats, filters map[tcpip.IPProtocol]PacketFilter) (*TunDriver, error) {
	ifce, err := createTun(ip, subnet.Mask, mtu)
	if err != nil {
		return nil, err
	}
	return &TunDriver{ifce: ifce, mtu: mtu, stats: stats, filters: filters}, nil
}
