// Package config loads pascalfs settings from a YAML file.
//
// The file is named by the --config flag or the PASCALFS_CONFIG environment
// variable. Without either, Default is used. Values missing from the file
// keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const EnvVar = "PASCALFS_CONFIG"

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Catalog CatalogConfig `yaml:"catalog"`
	Format  FormatConfig  `yaml:"format"`
	Report  ReportConfig  `yaml:"report"`
}

type LogConfig struct {
	// Level is a logrus level name: debug, info, warn, error.
	Level string `yaml:"level"`

	// Echo copies log output to stderr.
	Echo bool `yaml:"echo"`

	// Folder receives one log file per run. Empty disables file logging.
	Folder string `yaml:"folder"`
}

type CatalogConfig struct {
	// OutOfOrder decides what a scan does with directory entries that are
	// not in ascending block order.
	// Values: "sort" (note it and carry on), "reject" (fail the scan)
	OutOfOrder string `yaml:"out_of_order"`

	// Scan runs the block usage analysis when a volume is prepared.
	Scan bool `yaml:"scan"`
}

type FormatConfig struct {
	VolumeName string `yaml:"volume_name"`
	Bootable   bool   `yaml:"bootable"`

	// BootImages maps "5.25" and "3.5" to files holding the two boot
	// blocks written on bootable volumes.
	BootImages map[string]string `yaml:"boot_images"`
}

type ReportConfig struct {
	// Encoding of written reports: "cbor" or "yaml".
	Encoding string `yaml:"encoding"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Catalog: CatalogConfig{
			OutOfOrder: "sort",
			Scan:       true,
		},
		Format: FormatConfig{
			VolumeName: "BLANK",
		},
		Report: ReportConfig{
			Encoding: "yaml",
		},
	}
}

// Load reads the file named by PASCALFS_CONFIG, or returns the defaults
// when it is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if c.Catalog.OutOfOrder != "sort" && c.Catalog.OutOfOrder != "reject" {
		errs = append(errs, fmt.Errorf("catalog.out_of_order must be sort or reject, got %q", c.Catalog.OutOfOrder))
	}

	for kind := range c.Format.BootImages {
		if kind != "5.25" && kind != "3.5" {
			errs = append(errs, fmt.Errorf("format.boot_images: unknown drive %q", kind))
		}
	}

	if c.Report.Encoding != "cbor" && c.Report.Encoding != "yaml" {
		errs = append(errs, fmt.Errorf("report.encoding must be cbor or yaml, got %q", c.Report.Encoding))
	}

	return errors.Join(errs...)
}

// LogLevel is the parsed Log.Level, info if it does not parse.
func (c *Config) LogLevel() logrus.Level {
	l, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

func (c *Config) RejectOutOfOrder() bool {
	return c.Catalog.OutOfOrder == "reject"
}
