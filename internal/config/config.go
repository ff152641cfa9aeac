// Package config loads w2m settings from config.yaml and W2M_* environment
// variables. Command line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/dalmaki/when2meet/internal/constants"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/utils"
)

// Config holds all configuration values.
type Config struct {
	Database  string `mapstructure:"database"`
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	AxisStart string `mapstructure:"axis_start"`
	AxisEnd   string `mapstructure:"axis_end"`
	Emit      bool   `mapstructure:"emit"`

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string `mapstructure:"-"`
}

// Load reads config.yaml from configDir (if present) and overlays W2M_*
// environment variables. A missing file is not an error.
func Load(configDir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("database", filepath.Join(configDir, constants.AppName+".db"))
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "")
	v.SetDefault("axis_start", utils.FormatClock(interval.DefaultAxisStart))
	v.SetDefault("axis_end", utils.FormatClock(interval.DefaultAxisEnd))
	v.SetDefault("emit", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return cfg, nil
}

// Axis parses the configured axis window.
func (c Config) Axis() (interval.Axis, error) {
	start, err := utils.ParseClock(c.AxisStart)
	if err != nil {
		return interval.Axis{}, fmt.Errorf("axis_start: %w", err)
	}
	end, err := utils.ParseClock(c.AxisEnd)
	if err != nil {
		return interval.Axis{}, fmt.Errorf("axis_end: %w", err)
	}
	axis := interval.Axis{Start: start, End: end}
	if err := axis.Validate(); err != nil {
		return interval.Axis{}, err
	}
	return axis, nil
}
