//
//   date  : 2017-07-14
//   author: xjdrew
//

package toytcp

import (
	"fmt"
	"net"
	"os/exec"
	"strings"
)

func execCommand(name, sargs string) error {
	args := strings.Split(sargs, " ")
	cmd := exec.Command(name, args...)
	logger.Infof("exec command: %s %s", name, sargs)
	return cmd.Run()
}

func initTun(tun string, ipNet *net.IPNet, mtu int) error {
	sargs := fmt.Sprintf("addr add %s dev %s", ipNet, tun)
	if err := execCommand("ip", sargs); err != nil {
		return err
	}

	// brings the link up
	sargs = fmt.Sprintf("link set dev %s up mtu %d qlen 1000", tun, mtu)
	return execCommand("ip", sargs)
}
