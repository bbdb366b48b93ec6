package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var revokeReason string

var revokeCmd = &cobra.Command{
	Use:   "revoke <token-id>",
	Short: "Revoke an issued access link",
	Long: `Terminally deactivates a link. The record stays inspectable for a
short audit window, then the store evicts it.

Revoking an already-exhausted or already-revoked link is a no-op
success: the link is dead either way.

Requires an operator token (TIMEGATE_TOKEN).`,
	Example: `  timegate revoke 2c9a7e58-1f7d-4a0c-9a5e-8b2f6d3c1e4f --reason compromise_suspected`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		result, correlation, err := cli.Revoke(cmd.Context(), args[0], revokeReason)
		if err != nil {
			log.Error().Msgf("%s failed to revoke link (correlation ID: %s)", redCross, correlation)
			log.Error().Msgf("error: %v", err)
			return BeQuietError{}
		}

		if result.AlreadyTerminal {
			log.Info().Msgf("%s link was already %s (%s)", greenCheck, result.State, result.Reason)
			return nil
		}
		log.Info().Msgf("%s link revoked (%s)", greenCheck, result.Reason)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(revokeCmd)
	revokeCmd.Flags().StringVar(&revokeReason, "reason", "", "Revocation reason (default: user_revoked)")
}
