package main

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/cartree/dataset"
	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/pkg/log"
	"github.com/YuminosukeSato/cartree/sklearn/tree"
)

const (
	envPrefix       = "CARTREE"
	defaultLogLevel = "info"
)

// Config holds the settings shared by all commands. Values come, from
// highest to lowest precedence, from flags, CARTREE_* environment
// variables, the --config file and the defaults below.
type Config struct {
	MaxDepth        int     `mapstructure:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split" yaml:"min_samples_split"`
	Criterion       string  `mapstructure:"criterion" yaml:"criterion"`
	TestSize        float64 `mapstructure:"test_size" yaml:"test_size"`
	RandomState     uint64  `mapstructure:"random_state" yaml:"random_state"`
	CVFolds         int     `mapstructure:"cv_folds" yaml:"cv_folds"`
	LabelColumn     string  `mapstructure:"label_column" yaml:"label_column"`
	Delimiter       string  `mapstructure:"delimiter" yaml:"delimiter"`
	LogLevel        string  `mapstructure:"log_level" yaml:"log_level"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("max_depth", tree.DefaultMaxDepth)
	v.SetDefault("min_samples_split", tree.DefaultMinSamplesSplit)
	v.SetDefault("criterion", tree.DefaultCriterion)
	v.SetDefault("test_size", 0.0)
	v.SetDefault("random_state", 0)
	v.SetDefault("cv_folds", 0)
	v.SetDefault("label_column", "")
	v.SetDefault("delimiter", ",")
	v.SetDefault("log_level", defaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func (rc *rootCmdConfig) bind(key string, flag *pflag.Flag) {
	if err := rc.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// loadConfig reads the optional config file into v and decodes the merged
// settings.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that the tree constructor does not.
func (c *Config) Validate() error {
	if c.TestSize < 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be in [0, 1)", c.TestSize)
	}
	if c.CVFolds == 1 || c.CVFolds < 0 {
		return errors.NewValidationError("cv_folds", "must be 0 or at least 2", c.CVFolds)
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.NewValidationError("delimiter", "must be a single character", c.Delimiter)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level", "unknown level", c.LogLevel)
	}
	return nil
}

func (c *Config) treeOptions() []tree.Option {
	return []tree.Option{
		tree.WithMaxDepth(c.MaxDepth),
		tree.WithMinSamplesSplit(c.MinSamplesSplit),
		tree.WithCriterion(c.Criterion),
	}
}

func (c *Config) csvOptions() []dataset.Option {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	opts := []dataset.Option{dataset.WithDelimiter(r)}
	if c.LabelColumn != "" {
		opts = append(opts, dataset.WithLabelColumn(c.LabelColumn))
	}
	return opts
}

func setupLogging(w io.Writer, level string) error {
	return log.SetupLogger(w, level)
}
