package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// configureLogger builds the command logger from --log-level and --verbose,
// with --log-level taking precedence. Without either the logger is
// effectively silent so structured logs never mix into command output.
func configureLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level := logrus.PanicLevel

	if levelStr, _ := cmd.Flags().GetString("log-level"); levelStr != "" {
		parsed, err := logrus.ParseLevel(levelStr)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", levelStr)
		}
		level = parsed
	} else if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logrus.DebugLevel
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
