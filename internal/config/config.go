package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"aqualess/internal/eventbus"
)

// EnvPrefix is the prefix for environment overrides, e.g. AQUALESS_LOG_LEVEL
const EnvPrefix = "AQUALESS"

// Config represents the application configuration
type Config struct {
	Version int             `toml:"version" validate:"gte=1" ignored:"true"`
	Search  SearchSettings  `toml:"search" envconfig:"SEARCH"`
	Pipes   PipeSettings    `toml:"pipes" envconfig:"PIPES"`
	Log     LogSettings     `toml:"log" envconfig:"LOG"`
	UI      UISettings      `toml:"ui" envconfig:"UI"`
	Metrics MetricsSettings `toml:"metrics" envconfig:"METRICS"`
}

// SearchSettings holds the default matcher flags for new search sessions
type SearchSettings struct {
	IgnoreCase bool `toml:"ignore_case" envconfig:"IGNORE_CASE"`
	Regexp     bool `toml:"regexp" envconfig:"REGEXP"`
}

// PipeSettings controls handle allocation and producer back-pressure
type PipeSettings struct {
	MaxOpen       int `toml:"max_open" envconfig:"MAX_OPEN" validate:"gte=0"`             // 0 = unlimited
	HighWatermark int `toml:"high_watermark" envconfig:"HIGH_WATERMARK" validate:"gte=0"` // queued bytes before producers pause, 0 = never
	ReadChunk     int `toml:"read_chunk" envconfig:"READ_CHUNK" validate:"gte=512,lte=16777216"`
}

// LogSettings controls the log file
type LogSettings struct {
	Level string `toml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	File  string `toml:"file" envconfig:"FILE" validate:"required"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	ShowLineNumbers bool `toml:"show_line_numbers" envconfig:"SHOW_LINE_NUMBERS"`
	TabWidth        int  `toml:"tab_width" envconfig:"TAB_WIDTH" validate:"gte=1,lte=16"`
}

// MetricsSettings enables the optional Prometheus endpoint
type MetricsSettings struct {
	Addr string `toml:"addr" envconfig:"ADDR" validate:"omitempty,hostname_port"`
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
	Update(change func(*Config)) error
	Path() string
}

// configService is the concrete implementation
type configService struct {
	bus      eventbus.EventBus
	filePath string
	validate *validator.Validate
}

// DefaultPath returns ~/.config/aqualess/config.toml (or the platform equivalent)
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "aqualess", "config.toml")
}

// NewConfigService creates a config service for the given file; an empty
// path selects DefaultPath. bus may be nil.
func NewConfigService(path string, bus eventbus.EventBus) ConfigService {
	if path == "" {
		path = DefaultPath()
	}
	return &configService{
		bus:      bus,
		filePath: path,
		validate: validator.New(),
	}
}

func (cs *configService) Path() string {
	return cs.filePath
}

// Load loads the configuration from the service's file. A missing file
// yields the defaults. Environment overrides are applied last.
func (cs *configService) Load() (*Config, error) {
	cfg, err := cs.LoadFromPath(cs.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = DefaultConfig()
		if err := cs.finish(cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigLoadedEvent{Path: cs.filePath})
	}
	return cfg, nil
}

// Save saves the configuration to the service's file
func (cs *configService) Save(config *Config) error {
	if err := cs.SaveToPath(config, cs.filePath); err != nil {
		return err
	}
	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigSavedEvent{Path: cs.filePath})
	}
	return nil
}

// Update applies change to the settings stored in the file and saves them.
// Environment and command line overrides are not written back.
func (cs *configService) Update(change func(*Config)) error {
	cfg := DefaultConfig()
	data, err := os.ReadFile(cs.filePath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to read config file: %w", err)
	}
	change(cfg)
	return cs.Save(cfg)
}

// LoadFromPath loads configuration from a specific path. Keys missing from
// the file keep their default values.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cs.finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	if err := cs.validate.Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// finish applies environment overrides and validates
func (cs *configService) finish(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cs.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchSettings{
			IgnoreCase: false,
			Regexp:     false,
		},
		Pipes: PipeSettings{
			MaxOpen:       0,
			HighWatermark: 0,
			ReadChunk:     32 * 1024,
		},
		Log: LogSettings{
			Level: "info",
			File:  "aqualess.log",
		},
		UI: UISettings{
			ShowLineNumbers: false,
			TabWidth:        8,
		},
	}
}
