package verifier

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"linverify/internal/model"
	"linverify/internal/processes"
)

const (
	FormatTimed  = "timed"
	FormatEvents = "events"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config controls how histories are checked
type Config struct {
	// Tracker is the process tracker representation: map, memo or array
	Tracker string `yaml:"tracker"`
	// Model is only used by the events format; timed histories are always
	// checked against the key-value model
	Model  string `yaml:"model"`
	Format string `yaml:"format"`
	// Timeout bounds the search and the porcupine cross-check. Zero means no limit.
	Timeout    time.Duration `yaml:"timeout"`
	CrossCheck bool          `yaml:"cross_check"`
	Visualize  bool          `yaml:"visualize"`
	LogLevel   string        `yaml:"log_level"`
	Serve      bool          `yaml:"serve"`
	Port       int           `yaml:"port"`
}

func DefaultConfig() Config {
	return Config{
		Tracker:    string(processes.KindArray),
		Model:      "register",
		Format:     FormatTimed,
		Timeout:    30 * time.Second,
		CrossCheck: true,
		Visualize:  true,
		LogLevel:   "info",
		Port:       8080,
	}
}

// LoadConfig reads a YAML config file over the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := processes.ParseKind(c.Tracker); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Format {
	case FormatTimed:
	case FormatEvents:
		if _, err := model.Named(c.Model); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %v", ErrInvalidConfig, c.Timeout)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Serve && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}
