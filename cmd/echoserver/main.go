package main

import (
	"fmt"
	"os"

	"github.com/xjdrew/toytcp"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s addr\n", os.Args[0])
		os.Exit(1)
	}

	toytcp.InitLogger(os.Getenv("ECHO_LOG_LEVEL"))
	logger := toytcp.GetLogger()

	s := toytcp.NewEchoServer(os.Args[1])
	if err := s.Serve(); err != nil {
		logger.Error(err.Error())
		os.Exit(2)
	}
}
