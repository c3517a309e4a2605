//
//   date  : 2025-06-02
//   author: xjdrew
//

package tcpip

import "strings"

type TCPFlags uint8

const (
	TCPFin TCPFlags = 1 << iota
	TCPSyn
	TCPRst
	TCPPsh
	TCPAck
	TCPUrg
)

var flagNames = []struct {
	flag TCPFlags
	name string
}{
	{TCPUrg, "URG"},
	{TCPAck, "ACK"},
	{TCPPsh, "PSH"},
	{TCPRst, "RST"},
	{TCPSyn, "SYN"},
	{TCPFin, "FIN"},
}

// Has reports whether every bit of f is set.
func (flags TCPFlags) Has(f TCPFlags) bool {
	return flags&f == f
}

func (flags TCPFlags) String() string {
	var names []string
	for _, v := range flagNames {
		if flags.Has(v.flag) {
			names = append(names, v.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "|")
}
