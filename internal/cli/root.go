// Package cli implements the nftsaga command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	EnvFile  string
}

var validLogLevels = []string{"", "debug", "info", "warn", "error"}

// NewRootCommand creates the root command for the nftsaga CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nftsaga",
		Short: "Issue and transfer an NFT through a ledger smart contract",
		Long: `nftsaga provisions an account, deploys the NFT creator contract, creates a
token type, mints one unit and transfers it to the new account.

Operator credentials are read from HEDERA_ACCOUNT_ID and HEDERA_PRIVATE_KEY,
optionally loaded from a .env file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidLogLevel(opts.LogLevel) {
				return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", opts.LogLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file with operator credentials (default .env if present)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSimnetCommand(opts))

	return cmd
}

func isValidLogLevel(level string) bool {
	for _, l := range validLogLevels {
		if l == level {
			return true
		}
	}
	return false
}
