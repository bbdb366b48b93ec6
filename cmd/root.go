package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fluxdna/timegate/internal/buildinfo"
	"github.com/fluxdna/timegate/internal/logging"
)

// global flags
var (
	cfgFile      string
	timegateAddr string
)

const (
	LogLevelKey   = "log.level"
	LogFormatKey  = "log.format"
	LogNoColorKey = "log.no_color"

	TimegateAddrKey = "addr"
)

var rootCmd = &cobra.Command{
	Use:   "timegate",
	Short: fmt.Sprintf("Timegate link service (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `Timegate issues self-destructing access links for one-time results delivery.
A link grants access at most N times and expires after a fixed window,
whichever comes first, enforced atomically against a shared counter store.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(
			viper.GetString(LogLevelKey),
			viper.GetString(LogFormatKey),
			viper.GetBool(LogNoColorKey),
		)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "timegate.yaml",
		"Path to the server configuration file")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(LogLevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(LogFormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(LogNoColorKey, rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.PersistentFlags().StringVar(&timegateAddr, "server", "", "Address of the remote Timegate server")
	_ = viper.BindPFlag(TimegateAddrKey, rootCmd.PersistentFlags().Lookup("server"))

	viper.SetEnvPrefix("TIMEGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}
