package main

import (
	"fmt"
	"io"

	"github.com/h0rv/kanban/internal/config"
	"github.com/sirupsen/logrus"
)

// newLogger builds a logger writing to out with the configured level and format.
func newLogger(c config.Config, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	return log, nil
}
