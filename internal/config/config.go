// Package config loads the run configuration from defaults, an optional
// YAML file, COVIDPSY_ environment variables and command line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of an analysis run.
type Config struct {
	Input     string `mapstructure:"input" yaml:"input"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// Feature derivation
	ReferenceYear   int  `mapstructure:"reference_year" yaml:"reference_year"`
	IncludeAgeCubic bool `mapstructure:"include_age_cubic" yaml:"include_age_cubic"`

	// Model selection
	ScreenThreshold float64 `mapstructure:"screen_threshold" yaml:"screen_threshold"`
	EntryThreshold  float64 `mapstructure:"entry_threshold" yaml:"entry_threshold"`
	ReportAlpha     float64 `mapstructure:"report_alpha" yaml:"report_alpha"`

	// Estimation
	ConfLevel float64 `mapstructure:"conf_level" yaml:"conf_level"`
	CIMethod  string  `mapstructure:"ci_method" yaml:"ci_method"`
	MaxIter   int     `mapstructure:"max_iter" yaml:"max_iter"`

	// Output
	PlotFormat string `mapstructure:"plot_format" yaml:"plot_format"`
	ResultsDB  string `mapstructure:"results_db" yaml:"results_db"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

var defaults = map[string]interface{}{
	"input":             "",
	"output_dir":        "results",
	"reference_year":    2020,
	"include_age_cubic": true,
	"screen_threshold":  0.2,
	"entry_threshold":   0.1,
	"report_alpha":      0.05,
	"conf_level":        0.95,
	"ci_method":         "wald",
	"max_iter":          25,
	"plot_format":       "png",
	"results_db":        "",
	"log_level":         "info",
	"log_format":        "text",
}

// Keys returns the configuration keys in sorted order.
func Keys() []string {
	return []string{
		"ci_method", "conf_level", "entry_threshold", "include_age_cubic", "input",
		"log_format", "log_level", "max_iter", "output_dir", "plot_format",
		"reference_year", "report_alpha", "results_db", "screen_threshold",
	}
}

// FlagName returns the command line flag for a configuration key.
func FlagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Default returns the default configuration.
func Default() *Config {
	c, err := Load("", nil)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the configuration.  Precedence: flags > env > config file >
// defaults.  Only flags that were set on the command line override the
// other sources.  An empty cfgFile skips the file.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {

	v := viper.New()
	v.SetEnvPrefix("COVIDPSY")
	v.AutomaticEnv()

	for k, x := range defaults {
		v.SetDefault(k, x)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	if flags != nil {
		for _, k := range Keys() {
			if f := flags.Lookup(FlagName(k)); f != nil {
				if err := v.BindPFlag(k, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &c, nil
}

// Validate checks the ranges of the settings.
func (c *Config) Validate() error {

	for _, x := range []struct {
		name string
		v    float64
	}{
		{"screen_threshold", c.ScreenThreshold},
		{"entry_threshold", c.EntryThreshold},
		{"report_alpha", c.ReportAlpha},
	} {
		if x.v <= 0 || x.v > 1 {
			return fmt.Errorf("config: %s=%v is not in (0, 1]", x.name, x.v)
		}
	}

	if c.ConfLevel <= 0 || c.ConfLevel >= 1 {
		return fmt.Errorf("config: conf_level=%v is not in (0, 1)", c.ConfLevel)
	}
	if c.MaxIter < 1 {
		return fmt.Errorf("config: max_iter=%d must be positive", c.MaxIter)
	}
	switch c.CIMethod {
	case "wald", "profile":
	default:
		return fmt.Errorf("config: ci_method=%q must be wald or profile", c.CIMethod)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format=%q must be text or json", c.LogFormat)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: output_dir is empty")
	}

	return nil
}

// Save writes the configuration to path as YAML.
func Save(c *Config, path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
