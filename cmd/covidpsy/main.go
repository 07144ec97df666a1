// Command covidpsy runs the incident loneliness analysis on a survey
// file, or writes a synthetic survey for testing.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunomontezano/covidpsy/internal/config"
	"github.com/brunomontezano/covidpsy/internal/logging"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "covidpsy",
	Short:         "Incident loneliness analysis of a longitudinal survey",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text or json)")

	rootCmd.AddCommand(runCmd, simulateCmd, configCmd)
}

// loadConfig reads the configuration for a command, with its flags
// taking precedence, and sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {

	c, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	lg, err := logging.Init(c.LogFormat, logging.ParseLevel(c.LogLevel))
	if err != nil {
		return nil, nil, err
	}

	return c, lg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "covidpsy:", err)
		os.Exit(1)
	}
}
