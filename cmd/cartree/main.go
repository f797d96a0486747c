// Command cartree grows decision tree classifiers from CSV files, scores
// them and uses them to make predictions.
//
// Usage:
//
//	cartree train -i iris.csv -o iris.model.json --max-depth 3
//	cartree predict -m iris.model.json -i new.csv
//	cartree describe -m iris.model.json --yaml
//
// Hyperparameters can also be read from a YAML file passed with --config
// or from CARTREE_* environment variables.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/pkg/log"
)

type rootCmdConfig struct {
	configFile string
	v          *viper.Viper
	cfg        *Config
}

func main() {
	if err := cliParser().Execute(); err != nil {
		// cobra has already printed err; the code is for --log-level debug runs.
		log.GetLoggerWithName("cmd").Debug("command failed", log.ErrorCodeKey, errors.Code(err))
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{v: newViper()}
	rootCmd := &cobra.Command{
		Use:           "cartree",
		Short:         "cartree is a tool to grow decision tree classifiers",
		Long:          `A tool to grow binary decision trees from labeled CSV data, score them, inspect them and use them to make predictions`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.v, config.configFile)
			if err != nil {
				return err
			}
			config.cfg = cfg
			return setupLogging(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&config.configFile, "config", "c", "", "path to a YAML file with default settings")
	flags.String("log-level", defaultLogLevel, "log level: debug, info, warn or error")
	flags.String("delimiter", ",", "CSV field separator")
	config.bind("log_level", flags.Lookup("log-level"))
	config.bind("delimiter", flags.Lookup("delimiter"))

	rootCmd.AddCommand(versionCmd(), trainCmd(config), predictCmd(config), describeCmd(config))
	return rootCmd
}
