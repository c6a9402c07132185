// Package cmd provides the command-line interface for trafficsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// envPrefix is prepended to the name of every environment variable that
// trafficsim reads.
const envPrefix = "TRAFFICSIM_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trafficsim",
	Short: "trafficsim simulates vehicles driving on looping roads controlled by traffic lights.",
	Long: `trafficsim simulates vehicles driving on looping roads controlled by traffic lights. ` +
		`Settings are taken from command-line flags, then from a YAML file given with --config, ` +
		`then from TRAFFICSIM_* environment variables, which may be put in a .env file.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadDotEnv(".env"); err != nil {
			return err
		}

		return setupLogging(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level: trace, debug, info, warn, or error")
	rootCmd.PersistentFlags().String("log-format", "text",
		"log format: text or json")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadDotEnv loads environment variables from path. A missing file is not an
// error. Variables that are already set are not overridden.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

func setupLogging(cmd *cobra.Command) error {
	levelName := stringOption(cmd, "log-level", os.LookupEnv)
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	switch format := stringOption(cmd, "log-format", os.LookupEnv); format {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	logrus.SetOutput(cmd.ErrOrStderr())

	return nil
}

// envName returns the environment variable that backs a flag, for example
// TRAFFICSIM_MONITOR_PORT for --monitor-port.
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
