//
//   date  : 2016-02-18
//   author: xjdrew
//

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/thecodeteam/goodbye"

	"github.com/xjdrew/toytcp"
)

var VERSION = "0.1-dev"

var logger = toytcp.GetLogger()

func main() {
	version := flag.Bool("version", false, "Get version info")
	debug := flag.Bool("debug", false, "Print debug info")
	config := flag.String("config", "config.ini", "config file")
	flag.Parse()

	if *version {
		fmt.Printf("Version: %s\n", VERSION)
		os.Exit(1)
	}

	toytcp.InitLogger("info")

	configFile := *config
	if configFile == "" {
		configFile = flag.Arg(0)
	}
	logger.Infof("using config file: %v", configFile)

	cfg, err := toytcp.ParseConfig(configFile)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(2)
	}

	level := cfg.General.LogLevel
	if *debug {
		level = "debug"
	}
	if err := toytcp.InitLogger(level); err != nil {
		logger.Error(err.Error())
		os.Exit(2)
	}

	one, err := toytcp.FromConfig(cfg)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(3)
	}

	ctx := context.Background()
	defer goodbye.Exit(ctx, -1)
	goodbye.Notify(ctx)
	goodbye.Register(func(ctx context.Context, s os.Signal) {
		logger.Infof("quit by %v, stats: %+v", s, one.Stats())
		one.Close()
	})

	one.Serve()
}
