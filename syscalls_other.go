//
//   date  : 2017-07-14
//   author: xjdrew
//

//go:build !linux && !darwin
// +build !linux,!darwin

package toytcp

import (
	"errors"
	"net"
)

var errOS = errors.New("unsupported os")

func initTun(tun string, ipNet *net.IPNet, mtu int) error {
	return errOS
}
