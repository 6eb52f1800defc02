// Package logger provides structured logging using zerolog
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var globalLogger zerolog.Logger

// Config selects level, destination and encoding
type Config struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Debug  bool   `mapstructure:"debug" yaml:"debug"`
	Output string `mapstructure:"output" yaml:"output"`
	// Format is "console" (default) or "json"
	Format string `mapstructure:"format" yaml:"format"`
}

func init() {
	globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init installs the global logger described by config
func Init(config Config) error {
	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	}
	return InitWithWriter(config, output)
}

// InitWithWriter is Init with an explicit destination
func InitWithWriter(config Config, output io.Writer) error {
	level, err := parseLevel(config.Level, config.Debug)
	if err != nil {
		return err
	}

	switch config.Format {
	case "", "console":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "2006-01-02 15:04:05"}
	case "json":
	default:
		return fmt.Errorf("invalid log format %q (want console or json)", config.Format)
	}

	// The level is global so SetLevel also reaches component loggers
	// that were derived before it was called.
	zerolog.SetGlobalLevel(level)
	globalLogger = zerolog.New(output).
		With().
		Timestamp().
		Logger()

	log.Logger = globalLogger

	return nil
}

// SetLevel changes the level of every logger at runtime
func SetLevel(level string, debug bool) error {
	l, err := parseLevel(level, debug)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)
	return nil
}

func parseLevel(level string, debug bool) (zerolog.Level, error) {
	if debug {
		return zerolog.DebugLevel, nil
	}
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

func GetLogger() zerolog.Logger {
	return globalLogger
}

func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}
