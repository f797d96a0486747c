package main

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/sklearn/tree"
)

func TestLoadConfig(t *testing.T) {
	Convey("loadConfig", t, func() {
		Convey("uses the defaults without a file", func() {
			cfg, err := loadConfig(newViper(), "")
			So(err, ShouldBeNil)
			So(cfg.MaxDepth, ShouldEqual, tree.DefaultMaxDepth)
			So(cfg.MinSamplesSplit, ShouldEqual, tree.DefaultMinSamplesSplit)
			So(cfg.Criterion, ShouldEqual, tree.CriterionGini)
			So(cfg.TestSize, ShouldEqual, 0.0)
			So(cfg.Delimiter, ShouldEqual, ",")
			So(cfg.LogLevel, ShouldEqual, "info")
		})

		Convey("reads a YAML file", func() {
			path := filepath.Join(t.TempDir(), "cartree.yaml")
			doc := "max_depth: 4\nmin_samples_split: 3\ncriterion: entropy\ntest_size: 0.25\nrandom_state: 9\nlabel_column: species\n"
			So(os.WriteFile(path, []byte(doc), 0o600), ShouldBeNil)

			cfg, err := loadConfig(newViper(), path)
			So(err, ShouldBeNil)
			So(cfg.MaxDepth, ShouldEqual, 4)
			So(cfg.MinSamplesSplit, ShouldEqual, 3)
			So(cfg.Criterion, ShouldEqual, tree.CriterionEntropy)
			So(cfg.TestSize, ShouldEqual, 0.25)
			So(cfg.RandomState, ShouldEqual, uint64(9))
			So(cfg.LabelColumn, ShouldEqual, "species")
			So(cfg.treeOptions(), ShouldHaveLength, 3)
			So(cfg.csvOptions(), ShouldHaveLength, 2)
		})

		Convey("lets the environment override the file", func() {
			path := filepath.Join(t.TempDir(), "cartree.yaml")
			So(os.WriteFile(path, []byte("max_depth: 4\n"), 0o600), ShouldBeNil)
			t.Setenv("CARTREE_MAX_DEPTH", "7")
			t.Setenv("CARTREE_LOG_LEVEL", "debug")

			cfg, err := loadConfig(newViper(), path)
			So(err, ShouldBeNil)
			So(cfg.MaxDepth, ShouldEqual, 7)
			So(cfg.LogLevel, ShouldEqual, "debug")
		})

		Convey("fails on a missing file", func() {
			_, err := loadConfig(newViper(), filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Validate rejects", t, func() {
		valid := func() *Config {
			return &Config{Delimiter: ",", LogLevel: "info"}
		}
		So(valid().Validate(), ShouldBeNil)

		cases := []struct {
			name   string
			mutate func(c *Config)
		}{
			{"a test size of 1", func(c *Config) { c.TestSize = 1 }},
			{"a negative test size", func(c *Config) { c.TestSize = -0.1 }},
			{"a single fold", func(c *Config) { c.CVFolds = 1 }},
			{"a two character delimiter", func(c *Config) { c.Delimiter = ";;" }},
			{"an empty delimiter", func(c *Config) { c.Delimiter = "" }},
			{"an unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		}
		for _, tc := range cases {
			Convey(tc.name, func() {
				c := valid()
				tc.mutate(c)
				err := c.Validate()
				So(errors.IsConfigurationError(err), ShouldBeTrue)
			})
		}
	})
}
