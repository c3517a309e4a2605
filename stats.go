//
//   date  : 2025-06-02
//   author: xjdrew
//

package toytcp

import (
	"sync/atomic"
)

// Stats counts what the packet filters saw. Safe for concurrent use.
type Stats struct {
	TCPReceived    atomic.Uint64
	TCPAccepted    atomic.Uint64
	TCPMalformed   atomic.Uint64
	TCPBadChecksum atomic.Uint64
	TCPResets      atomic.Uint64
	ICMPEchoes     atomic.Uint64
	Captured       atomic.Uint64
	Unsupported    atomic.Uint64
}

type StatsSnapshot struct {
	TCPReceived    uint64
	TCPAccepted    uint64
	TCPMalformed   uint64
	TCPBadChecksum uint64
	TCPResets      uint64
	ICMPEchoes     uint64
	Captured       uint64
	Unsupported    uint64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TCPReceived:    s.TCPReceived.Load(),
		TCPAccepted:    s.TCPAccepted.Load(),
		TCPMalformed:   s.TCPMalformed.Load(),
		TCPBadChecksum: s.TCPBadChecksum.Load(),
		TCPResets:      s.TCPResets.Load(),
		ICMPEchoes:     s.ICMPEchoes.Load(),
		Captured:       s.Captured.Load(),
		Unsupported:    s.Unsupported.Load(),
	}
}
