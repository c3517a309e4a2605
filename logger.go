//
//   date  : 2025-06-02
//   author: xjdrew
//

package toytcp

import (
	"os"

	"github.com/op/go-logging"
)

var logger = logging.MustGetLogger("toytcp")

const logFormat = `%{color}%{time:06-01-02 15:04:05.000} %{level:.4s} @%{shortfile}%{color:reset} %{message}`

// InitLogger installs the stdout backend. level is one of critical, error,
// warning, notice, info, debug; empty means info.
func InitLogger(level string) error {
	logging.SetFormatter(logging.MustStringFormatter(logFormat))
	logging.SetBackend(logging.NewLogBackend(os.Stdout, "", 0))

	if level == "" {
		level = "info"
	}
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return err
	}
	logging.SetLevel(lvl, "toytcp")
	return nil
}

func GetLogger() *logging.Logger {
	return logger
}
