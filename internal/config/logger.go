package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// setupLogging applies the logging section to the global logrus logger.
func setupLogging(cfg *Config) error {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	logrus.SetLevel(level)

	switch strings.ToLower(cfg.Logging.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		return fmt.Errorf("invalid log format %q", cfg.Logging.Format)
	}

	return nil
}
