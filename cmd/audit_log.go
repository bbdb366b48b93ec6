package cmd

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxdna/timegate/pkg/client"
)

var (
	auditLogLimit       uint
	auditLogCorrelation string
	auditLogFingerprint string
	auditLogAction      string
)

var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "List recent audit log entries",
	Long: `Retrieves recent operator audit entries from the server: who issued,
accessed and revoked which link (by fingerprint, never the raw token)
and with what outcome.

Requires an operator token (TIMEGATE_TOKEN) and a server running the
in-memory auditor.`,
	Example: `  timegate audit log --limit 20
  timegate audit log --action link.access --fingerprint tg1:deadbeef01234567`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Fetching audit entries...")
		entries, _, err := cli.ListAudits(cmd.Context(), client.ListAuditsOpts{
			Limit:         auditLogLimit,
			CorrelationID: auditLogCorrelation,
			Fingerprint:   auditLogFingerprint,
			Action:        auditLogAction,
		})
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			log.Info().Msg("No audit entries found")
			return nil
		}
		log.Debug().Msgf("Retrieved %d audit entr(ies)", len(entries))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Action", "Fingerprint", "Kind", "Granted", "Reason", "Error",
		})

		bold := color.New(color.Bold).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()

		for _, e := range entries {
			granted := redCross
			if e.Granted {
				granted = greenCheck
			}
			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				bold(e.Action),
				faint(truncate(e.TokenFingerprint, 24)),
				e.LinkKind,
				granted,
				e.Reason,
				truncate(e.Error, 48),
			})
		}

		s := table.StyleRounded
		s.Format.Header = text.FormatDefault
		t.SetStyle(s)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditLogCmd)
	auditLogCmd.Flags().UintVar(&auditLogLimit, "limit", 50, "Maximum number of entries")
	auditLogCmd.Flags().StringVar(&auditLogCorrelation, "correlation", "", "Filter by correlation ID")
	auditLogCmd.Flags().StringVar(&auditLogFingerprint, "fingerprint", "", "Filter by token fingerprint")
	auditLogCmd.Flags().StringVar(&auditLogAction, "action", "", "Filter by action (link.issue, link.access, link.revoke)")
}
