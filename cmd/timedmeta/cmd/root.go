// Package cmd implements the CLI commands for timedmeta.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/timedmeta/internal/config"
	"github.com/jmylchreest/timedmeta/internal/observability"
	"github.com/jmylchreest/timedmeta/internal/version"
)

// cfgFile holds the config file path from CLI flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "timedmeta",
	Short:   "Inspect ID3 timed metadata tracks of HLS streams",
	Version: version.Short(),
	Long: `timedmeta replays the MPEG-TS fragments of an HLS media playlist through a
timed metadata track controller and reports the ID3 cues a player would expose.

Cues span from one metadata sample to the next, the live back buffer evicts
cues that fall behind the playhead, and the resulting track can be printed or
served over HTTP for inspection.`,
	SilenceUsage: true,
	// PersistentPreRunE is set in init() to avoid initialization cycle
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	// initLogging references rootCmd.PersistentFlags
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// Log flags are not bound to viper; they override config and env only when
	// explicitly set, keeping CLI flag > env var > config > default.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.timedmeta/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home + "/.timedmeta")
		viper.AddConfigPath("/etc/timedmeta")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("TIMEDMETA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging installs the default logger.
//
// Priority order (highest to lowest):
//  1. CLI flags (--log-level, --log-format) - only if explicitly provided
//  2. Environment variables (TIMEDMETA_LOGGING_LEVEL, TIMEDMETA_LOGGING_FORMAT)
//  3. Config file values
//  4. Built-in defaults (info, json)
func initLogging() error {
	if rootCmd.PersistentFlags().Changed("log-level") {
		level, _ := rootCmd.PersistentFlags().GetString("log-level")
		if strings.EqualFold(level, "warning") {
			level = "warn"
		}
		viper.Set("logging.level", strings.ToLower(level))
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		format, _ := rootCmd.PersistentFlags().GetString("log-format")
		viper.Set("logging.format", strings.ToLower(format))
	}

	logCfg := config.LoggingConfig{
		Level:      viper.GetString("logging.level"),
		Format:     viper.GetString("logging.format"),
		AddSource:  viper.GetBool("logging.add_source"),
		TimeFormat: viper.GetString("logging.time_format"),
	}

	// Logs go to stderr so command output on stdout stays machine readable
	logger := observability.NewLoggerWithWriter(logCfg, os.Stderr)
	slog.SetDefault(observability.WithApp(logger, version.ApplicationName, version.Version))
	return nil
}

// loadConfig validates the merged flag, env, file and default configuration.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
