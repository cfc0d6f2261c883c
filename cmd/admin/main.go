package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "backoffice-admin",
	Short:         "Maintenance commands for the back office API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)

	// Accounts
	rootCmd.AddCommand(createAdminCmd)

	// Storage
	rootCmd.AddCommand(sweepOrphansCmd)
}
