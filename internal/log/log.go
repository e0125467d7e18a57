package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Tests and the CLI don't go through Init, so keep a usable default around.
func init() {
	Init("murmur", "dev", "info")
}

// Init rebuilds the global logger. Production gets JSON output for the log
// shipper, everything else gets the readable text formatter.
func Init(service, env, level string) {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	if env == "prod" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	Log = logger.WithFields(logrus.Fields{"service": service, "env": env})
}
