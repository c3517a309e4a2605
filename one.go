//
//   date  : 2016-05-13
//   author: xjdrew
//

package toytcp

import (
	"net"
	"sync"

	"github.com/xjdrew/toytcp/tcpip"
)

type One struct {
	// tun ip
	ip net.IP

	// tun virtual network
	subnet *net.IPNet

	stats     *Stats
	capture   *Capture
	tcpFilter *TCPFilter

	tun     *TunDriver
	echo    *EchoServer
	manager *Manager
}

func (one *One) Serve() {
	var wg sync.WaitGroup

	runAndWait := func(f func() error) {
		defer wg.Done()
		if err := f(); err != nil {
			logger.Errorf("%v", err)
		}
	}

	if one.tun != nil {
		wg.Add(1)
		go runAndWait(one.tun.Serve)
	}
	if one.echo != nil {
		wg.Add(1)
		go runAndWait(one.echo.Serve)
	}
	if one.manager != nil {
		wg.Add(1)
		go runAndWait(one.manager.Serve)
	}
	wg.Wait()
}

// Close stops the echo listener and the tun device, then flushes the capture.
func (one *One) Close() error {
	if one.echo != nil {
		one.echo.Close()
	}
	if one.tun != nil {
		one.tun.Close()
	}
	if one.capture != nil {
		logger.Infof("[capture] flush and close")
		return one.capture.Close()
	}
	return nil
}

func (one *One) Stats() StatsSnapshot {
	return one.stats.Snapshot()
}

func FromConfig(cfg *ToyConfig) (*One, error) {
	one := &One{
		stats: new(Stats),
	}

	var err error

	// new capture
	if cfg.Capture.File != "" {
		if one.capture, err = NewCapture(cfg.Capture.File, cfg.Capture.Snaplen); err != nil {
			return nil, err
		}
	}

	// new tun
	if cfg.Core.Network != "" {
		ip, subnet, _ := net.ParseCIDR(cfg.Core.Network)
		one.ip = ip.To4()
		one.subnet = subnet

		logger.Infof("[tun] ip:%s, subnet: %s", ip, subnet)

		one.tcpFilter = NewTCPFilter(one.stats, one.capture, cfg)
		filters := map[tcpip.IPProtocol]PacketFilter{
			tcpip.ICMP: newICMPFilter(one.stats),
			tcpip.TCP:  one.tcpFilter,
		}

		if one.tun, err = NewTunDriver(one.ip, subnet, cfg.Core.Mtu, one.stats, filters); err != nil {
			one.Close()
			return nil, err
		}
	}

	// new echo
	if cfg.Echo.Listen != "" {
		one.echo = NewEchoServer(cfg.Echo.Listen)
	}

	// new manager
	one.manager = NewManager(one, cfg)
	if one.manager != nil && one.echo != nil {
		one.echo.report = one.manager.Report
	}
	return one, nil
}
