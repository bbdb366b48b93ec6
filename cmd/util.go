package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/viper"

	"github.com/fluxdna/timegate/pkg/client"
)

var (
	greenCheck = color.New(color.FgGreen).Sprint("✓")
	redCross   = color.New(color.FgRed).Sprint("✗")
)

// BeQuietError tells Execute the error was already presented to the user.
type BeQuietError struct{}

func (BeQuietError) Error() string { return "" }

func getClient() (*client.Client, error) {
	// we need the user to provide some server address first
	server := viper.GetString(TimegateAddrKey)
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set TIMEGATE_ADDR)")
	}

	token := os.Getenv("TIMEGATE_TOKEN")
	return client.New(server, client.WithAuthToken(token)), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
