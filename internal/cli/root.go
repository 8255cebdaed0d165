// Package cli implements the leadfive command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "leadfive",
	Short: "Referral commission ledger daemon",
	Long: `leadfive runs the referral commission ledger: user registry, unilevel
placement, multi-pool commission distribution and the withdrawal ledger,
exposed over an HTTP API. State is rebuilt from the append-only event log
on every start.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config.toml (default ~/.leadfive/config.toml)")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("leadfive", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
