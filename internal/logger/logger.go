// Package logger provides structured logging using zerolog.
//
// Components receive a Logger and tag themselves with WithComponent so every
// line carries a "component" field:
//
//	log := logger.New(cfg).WithComponent("scanner")
//	log.Info().Str("cidr", cidr).Int("hosts", n).Msg("Range scanned")
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log level and output
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"` // stdout, stderr
	Format     string `json:"format" yaml:"format"` // json, console
	TimeFormat string `json:"time_format" yaml:"time_format"`
}

// Logger is the logging surface handed to every component
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) Logger
	Zerolog() zerolog.Logger
}

type zlogger struct {
	l zerolog.Logger
}

// DefaultConfig returns info-level JSON logging to stdout
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Output:     "stdout",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// New builds a Logger from cfg
func New(cfg Config) (Logger, error) {
	var output io.Writer = os.Stdout
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
	case "stderr":
		output = os.Stderr
	default:
		return nil, fmt.Errorf("unknown log output %q", cfg.Output)
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	return NewWithWriter(output, level), nil
}

// NewWithWriter builds a Logger writing to w at level
func NewWithWriter(w io.Writer, level zerolog.Level) Logger {
	return &zlogger{
		l: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// NewTestLogger returns a Logger that discards everything
func NewTestLogger() Logger {
	return &zlogger{l: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

func (z *zlogger) Debug() *zerolog.Event { return z.l.Debug() }
func (z *zlogger) Info() *zerolog.Event  { return z.l.Info() }
func (z *zlogger) Warn() *zerolog.Event  { return z.l.Warn() }
func (z *zlogger) Error() *zerolog.Event { return z.l.Error() }
func (z *zlogger) Fatal() *zerolog.Event { return z.l.Fatal() }
func (z *zlogger) With() zerolog.Context { return z.l.With() }

func (z *zlogger) WithComponent(component string) Logger {
	return &zlogger{l: z.l.With().Str("component", component).Logger()}
}

func (z *zlogger) Zerolog() zerolog.Logger { return z.l }
