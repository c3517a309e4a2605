//
//   date  : 2023-12-12
//   author: xjdrew
//

package toytcp

import (
	"bytes"
	"fmt"
	"net"
	"os"

	"gopkg.in/ini.v1"
)

func init() {
	ini.PrettyFormat = true
}

const (
	CAPTURE_FILE = "TOYTCP_CAPTURE"

	DefaultMTU     = 1500
	DefaultSnaplen = 65535
)

type GeneralConfig struct {
	ManagerAddr string `ini:"manager-addr"`
	LogLevel    string `ini:"log-level"`
}

type CoreConfig struct {
	Tun      string `ini:"tun"`     // tun name, informational
	Network  string `ini:"network"` // tun network, empty disables the tun
	Mtu      int    `ini:"mtu"`
	TcpReset bool   `ini:"tcp-reset"`
}

type EchoConfig struct {
	Listen string `ini:"listen"`
}

type CaptureConfig struct {
	File        string `ini:"file"`
	Snaplen     uint32 `ini:"snaplen"`
	BadChecksum bool   `ini:"bad-checksum"`
}

type ToyConfig struct {
	inif *ini.File // parsed ini file

	General GeneralConfig
	Core    CoreConfig
	Echo    EchoConfig
	Capture CaptureConfig
}

func (cfg *ToyConfig) checkCore() error {
	core := cfg.Core
	if core.Network == "" {
		return nil
	}

	ip, _, err := net.ParseCIDR(core.Network)
	if err != nil {
		return fmt.Errorf("[check core] invalid network: %s", core.Network)
	}

	if ip = ip.To4(); ip == nil || ip[3] == 0 {
		return fmt.Errorf("[check core] invalid ip: %s", core.Network)
	}

	if core.Mtu < 68 || core.Mtu > 65535 {
		return fmt.Errorf("[check core] invalid mtu: %d", core.Mtu)
	}
	return nil
}

func (cfg *ToyConfig) checkEcho() error {
	if cfg.Echo.Listen == "" {
		return nil
	}
	if _, err := net.ResolveTCPAddr("tcp", cfg.Echo.Listen); err != nil {
		return fmt.Errorf("[check echo] invalid listen address %q: %v", cfg.Echo.Listen, err)
	}
	return nil
}

func (cfg *ToyConfig) checkCapture() error {
	if cfg.Capture.File == "" {
		return nil
	}
	if cfg.Core.Network == "" {
		return fmt.Errorf("[check capture] capture needs a tun network")
	}
	if cfg.Capture.Snaplen == 0 {
		return fmt.Errorf("[check capture] invalid snaplen: 0")
	}
	return nil
}

func (cfg *ToyConfig) check() (err error) {
	if cfg.Core.Network == "" && cfg.Echo.Listen == "" {
		return fmt.Errorf("[check] neither tun network nor echo listen address is configured")
	}

	for _, check := range []func() error{cfg.checkCore, cfg.checkEcho, cfg.checkCapture} {
		if err = check(); err != nil {
			return err
		}
	}
	return nil
}

// Source returns the ini text of the loaded config.
func (cfg *ToyConfig) Source() string {
	if cfg.inif == nil {
		return ""
	}
	b := bytes.NewBuffer(nil)
	cfg.inif.WriteTo(b)
	return b.String()
}

func ParseConfig(source interface{}) (*ToyConfig, error) {
	cfg := new(ToyConfig)

	// set default value
	cfg.General.LogLevel = "info"
	cfg.Core.Mtu = DefaultMTU
	cfg.Capture.Snaplen = DefaultSnaplen

	// decode config value
	f, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true, KeyValueDelimiters: "="}, source)
	if err != nil {
		logger.Errorf("%v", err)
		return nil, err
	}
	cfg.inif = f

	err = f.MapTo(cfg)
	if err != nil {
		return nil, err
	}

	// read capture file from env
	if v := os.Getenv(CAPTURE_FILE); v != "" {
		cfg.Capture.File = v
		logger.Debugf("[env]set capture file %s=%s", CAPTURE_FILE, v)
	}

	err = cfg.check()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
