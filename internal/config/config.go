package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/garethgeorge/hybridspace/internal/spacemgr"
	"github.com/spf13/viper"
)

const (
	// AppName is used for the config file name and search directories.
	AppName = "hybridspace"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "HYBRIDSPACE"
)

// AppConfig holds the application configuration.
type AppConfig struct {
	// Device settings
	DiskSize      int  `mapstructure:"disk_size"`
	GridCols      int  `mapstructure:"grid_cols"`
	StrictDealloc bool `mapstructure:"strict_dealloc"`

	// Logging
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	Simulate SimulateConfig `mapstructure:"simulate"`
}

// SimulateConfig controls the randomized workload harness.
type SimulateConfig struct {
	Devices    int   `mapstructure:"devices"`
	Ops        int   `mapstructure:"ops"`
	Seed       int64 `mapstructure:"seed"` // 0 picks a time based seed
	MaxRequest int   `mapstructure:"max_request"`
}

// NewViper returns a viper instance with defaults and environment overrides
// configured. Callers bind their flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("disk_size", 50)
	v.SetDefault("grid_cols", 10)
	v.SetDefault("strict_dealloc", false)

	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")

	v.SetDefault("simulate.devices", 4)
	v.SetDefault("simulate.ops", 1000)
	v.SetDefault("simulate.seed", 0)
	v.SetDefault("simulate.max_request", 10)
}

func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", AppName))
	}
	v.AddConfigPath(filepath.Join("/etc", AppName))
}

// Load reads cfgFile, or searches the default locations when it is empty,
// and returns the validated configuration. A missing config file is only an
// error when cfgFile names it explicitly.
func Load(v *viper.Viper, cfgFile string) (*AppConfig, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command can run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.DiskSize < 0 || c.DiskSize > spacemgr.MaxCapacity {
		errs = append(errs, fmt.Errorf("disk_size must be in [0, %d], got %d", spacemgr.MaxCapacity, c.DiskSize))
	}
	if c.GridCols < 1 {
		errs = append(errs, fmt.Errorf("grid_cols must be positive, got %d", c.GridCols))
	}
	if c.LogFormat != "json" && c.LogFormat != "human" {
		errs = append(errs, fmt.Errorf("log_format must be json or human, got %q", c.LogFormat))
	}
	if c.Simulate.Devices < 1 {
		errs = append(errs, fmt.Errorf("simulate.devices must be positive, got %d", c.Simulate.Devices))
	}
	if c.Simulate.Ops < 0 {
		errs = append(errs, fmt.Errorf("simulate.ops must not be negative, got %d", c.Simulate.Ops))
	}
	if c.Simulate.MaxRequest < 1 {
		errs = append(errs, fmt.Errorf("simulate.max_request must be positive, got %d", c.Simulate.MaxRequest))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
