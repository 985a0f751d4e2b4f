// Package cmd wires the inventag command tree. Commands stay thin:
// parse flags, build the pipeline from configuration, print results.
package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/habhabhabs/aws-inventag/internal/config"
	"github.com/habhabhabs/aws-inventag/internal/shared/logger"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "inventag",
		Short: "Multi-account cloud inventory with tag compliance and snapshot deltas",
		Long: `inventag discovers resources across AWS accounts and regions, classifies
them against a declarative tag policy, and tracks inventory changes
through content-addressed snapshots.

All provider access is strictly read-only.`,
		Version: "1.0.0",
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under a caller-owned context so a
// process interrupt cancels in-flight discovery.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./inventag.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.SetEnvPrefix("INVENTAG")
	viper.AutomaticEnv()
}

func initConfig() {
	logger.Initialize(logger.Config{
		Level:  viper.GetString("log-level"),
		Format: viper.GetString("log-format"),
		Output: "stderr",
	})
}

// loadConfig resolves the configuration file from the flag or the
// conventional locations.
func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// configPath resolves the configuration file location without reading it
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	for _, candidate := range []string{"inventag.yaml", "inventag.yml", ".inventag.yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New("no configuration file found; pass --config or create inventag.yaml")
}
