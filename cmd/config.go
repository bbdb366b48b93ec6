package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxdna/timegate/internal/config"
	"github.com/fluxdna/timegate/internal/policy"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the server configuration file",
	Example: `  timegate config validate --config timegate.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			log.Error().Msgf("%s %v", redCross, err)
			return BeQuietError{}
		}

		engine, err := policy.New(cfg.Policies)
		if err != nil {
			log.Error().Msgf("%s %v", redCross, err)
			return BeQuietError{}
		}

		log.Info().Msgf("%s configuration is valid", greenCheck)
		log.Info().Msgf("store: %s, defaults: %d clicks / %.0fh",
			cfg.Store.Type, cfg.Links.DefaultMaxClicks, cfg.Links.DefaultTTLHours)
		if kinds := engine.Kinds(); len(kinds) > 0 {
			log.Info().Msgf("policy rules for kinds: %v", kinds)
		} else {
			log.Info().Msg("no policy rules configured (all issuance requests allowed)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
}
