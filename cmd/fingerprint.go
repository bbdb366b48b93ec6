package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluxdna/timegate/internal/audit"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <token-id>",
	Short: "Compute the audit fingerprint of a token ID",
	Long: `Audit entries and logs identify tokens by fingerprint only, since the
raw token ID is the access capability. This computes the fingerprint
for a known token ID so it can be matched against the audit log.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(audit.Fingerprint(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}
