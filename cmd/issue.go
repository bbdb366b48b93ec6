package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxdna/timegate/internal/api"
)

var (
	issueUserID    string
	issueSessionID string
	issueKind      string
	issueMaxClicks int
	issueTTLHours  float64
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new self-destructing access link",
	Long: `Mints a new access link bound to a user and session.
The link grants access at most --max-clicks times and expires after
--ttl-hours, whichever comes first.

Requires an operator token (TIMEGATE_TOKEN).`,
	Example: `  timegate issue --user u-42 --session s-1337 --kind results
  timegate issue --user u-42 --session s-1337 --kind document --max-clicks 1 --ttl-hours 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		result, correlation, err := cli.IssueLink(cmd.Context(), api.IssuePayload{
			UserID:    issueUserID,
			SessionID: issueSessionID,
			LinkKind:  issueKind,
			MaxClicks: issueMaxClicks,
			TTLHours:  issueTTLHours,
		})
		if err != nil {
			log.Error().Msgf("%s failed to issue link (correlation ID: %s)", redCross, correlation)
			log.Error().Msgf("error: %v", err)
			return BeQuietError{}
		}

		log.Info().Msgf("%s link issued", greenCheck)
		log.Info().Msgf("url: %s", result.URL)
		log.Info().Msgf("expires: %s, max clicks: %d", result.ExpiresAt.Format("2006-01-02 15:04 MST"), result.MaxClicks)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(issueCmd)
	issueCmd.Flags().StringVar(&issueUserID, "user", "", "Owning user ID")
	issueCmd.Flags().StringVar(&issueSessionID, "session", "", "Session/resource ID the link unlocks")
	issueCmd.Flags().StringVar(&issueKind, "kind", "results", "Link kind (e.g. results, document)")
	issueCmd.Flags().IntVar(&issueMaxClicks, "max-clicks", 0, "Click quota (0 = server default)")
	issueCmd.Flags().Float64Var(&issueTTLHours, "ttl-hours", 0, "Lifetime in hours (0 = server default)")
	_ = issueCmd.MarkFlagRequired("user")
	_ = issueCmd.MarkFlagRequired("session")
}
