package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ariel-frischer/dlcmd/internal/config"
)

// newLogger builds the process logger from the site configuration.
// debug forces the debug level.
func newLogger(cfg *config.Configuration, debug bool, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log_level: %w", err)
	}
	if debug && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
