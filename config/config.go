package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "GOIMAGESTORAGE"

var (
	errDSNNotProvided    = errors.New("dsn not provided")
	errUnsupportedDriver = errors.New("unsupported driver")
	errNoDirs            = errors.New("no image storage dirs configured")
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// MigrationsConfig MigrationsConfig.
type MigrationsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Config Application config definition.
type Config struct {
	DSN          string             `yaml:"dsn"           mapstructure:"dsn"`
	Driver       string             `yaml:"driver"        mapstructure:"driver"`
	LogLevel     string             `yaml:"log-level"     mapstructure:"log-level"`
	Migrations   MigrationsConfig   `yaml:"migrations"    mapstructure:"migrations"`
	ImageStorage ImageStorageConfig `yaml:"image-storage" mapstructure:"image-storage"`
}

// LoadConfig reads defaults.yaml and an optional config.yaml from path, then applies env overrides.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(filepath.Join(path, "defaults.yaml"))

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read defaults: %w", err)
	}

	override := filepath.Join(path, "config.yaml")
	if _, err := os.Stat(override); err == nil {
		v.SetConfigFile(override)

		if err = v.MergeInConfig(); err != nil {
			return cfg, fmt.Errorf("merge %s: %w", override, err)
		}
	}

	if err := v.UnmarshalExact(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return cfg, nil
}

// ValidateConfig ValidateConfig.
func ValidateConfig(cfg Config) error {
	if cfg.DSN == "" {
		return errDSNNotProvided
	}

	switch cfg.Driver {
	case DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("%w: `%s`", errUnsupportedDriver, cfg.Driver)
	}

	if len(cfg.ImageStorage.Dirs) == 0 {
		return errNoDirs
	}

	return nil
}

// ApplyLogLevel configures the global logger.
func ApplyLogLevel(cfg Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)
}
