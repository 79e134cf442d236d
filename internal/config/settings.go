package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Settings are process-level options read from the environment. Command
// line flags override them.
type Settings struct {
	LogLevel           string `env:"RPSIM_LOG_LEVEL"       envDefault:"info"`
	LogFormat          string `env:"RPSIM_LOG_FORMAT"      envDefault:"text"`
	HistoricalDataPath string `env:"RPSIM_HISTORICAL_DATA" envDefault:"data/historical-returns.csv"`
	ListenAddr         string `env:"RPSIM_LISTEN_ADDR"     envDefault:":8080"`
	DefaultIterations  int    `env:"RPSIM_ITERATIONS"      envDefault:"1000"`
	// Workers of zero uses GOMAXPROCS.
	Workers int `env:"RPSIM_WORKERS" envDefault:"0"`
}

// LoadSettings parses Settings from the process environment.
func LoadSettings() (Settings, error) {
	return ParseSettings(nil)
}

// ParseSettings parses Settings from environ, or from the process environment
// when environ is nil.
func ParseSettings(environ map[string]string) (Settings, error) {
	var s Settings
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.DefaultIterations < 1 || s.DefaultIterations > MaxIterations {
		return Settings{}, fmt.Errorf("RPSIM_ITERATIONS must be between 1 and %d", MaxIterations)
	}
	if s.Workers < 0 {
		return Settings{}, fmt.Errorf("RPSIM_WORKERS cannot be negative")
	}
	return s, nil
}

// NewLogger builds a logrus logger writing to w with the configured level
// and format ("text" or "json").
func (s Settings) NewLogger(w io.Writer) (*logrus.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	switch strings.ToLower(s.LogFormat) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", s.LogFormat)
	}
	return logger, nil
}
