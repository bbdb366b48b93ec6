package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <token-id>",
	Short: "Check a link's status without spending a click",
	Long: `Retrieves the current state of an access link: validity, remaining
clicks and remaining lifetime. This is a read-only probe and never
counts against the link's click quota.`,
	Example: `  timegate status 2c9a7e58-1f7d-4a0c-9a5e-8b2f6d3c1e4f`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		st, _, err := cli.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		bold := color.New(color.Bold).SprintFunc()
		faint := color.New(color.Faint).SprintfFunc()

		validity := redCross + " invalid"
		if st.Valid {
			validity = greenCheck + " valid"
		}

		expires := "(gone)"
		if st.ExpiresAt != nil {
			left := time.Until(*st.ExpiresAt).Round(time.Minute)
			expires = fmt.Sprintf("%s (%s)", st.ExpiresAt.Format(time.RFC3339), faint(left.String()))
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Valid", "State", "Reason", "Clicks left", "TTL left", "Expires"})
		t.AppendRow(table.Row{
			validity,
			bold(string(st.State)),
			st.Reason,
			st.ClicksRemaining,
			fmt.Sprintf("%.1fh", st.TTLRemainingHours),
			expires,
		})

		s := table.StyleRounded
		s.Format.Header = text.FormatDefault
		t.SetStyle(s)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
