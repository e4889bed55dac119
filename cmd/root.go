package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/assetsmith/internal/config"
	"github.com/conneroisu/assetsmith/internal/logging"
	"github.com/conneroisu/assetsmith/internal/pipeline"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	workDir   string

	// configErr is a config file that exists but could not be read.
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "assetsmith [task...]",
	Short: "Front-end asset pipeline",
	Long: `assetsmith compiles stylesheets, bundles scripts, optimizes images, builds
an SVG sprite and minifies HTML from a development tree into a distribution tree.

Tasks named on the command line run in parallel; without arguments the build
task runs. "assetsmith tasks" lists every task.

Quick Start:
  assetsmith                  Build production files into dist
  assetsmith serve            Serve src with live reload
  assetsmith styles scripts   Run two tasks`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{pipeline.DefaultTask}
		}
		return runTasks(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .assetsmith.yml, can also use ASSETSMITH_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&workDir, "cwd", "", "project directory the configured paths are relative to")
}

// initConfig points viper at the config file.
//
// Priority (highest to lowest): --config, ASSETSMITH_CONFIG_FILE, then
// .assetsmith.yml in the project directory. A missing default file is not an
// error.
func initConfig() {
	viper.Reset()
	configErr = nil

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		dir := workDir
		if dir == "" {
			dir = "."
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".assetsmith")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config file: %w", err)
		}
	}
}

// loadConfig returns the effective configuration with paths resolved
// against --cwd.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Rebase(workDir)
	return cfg, nil
}

func newLogger(w io.Writer, prefix string) (*logging.AssetLogger, error) {
	switch logFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unsupported log format: %s (supported: text, json)", logFormat)
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(logLevel),
		Format: logFormat,
		Output: w,
		Prefix: prefix,
	}), nil
}
