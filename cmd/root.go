package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "minigameshub-edge",
	Short: "Offline-resilient edge cache for the MiniGamesHub catalog",
	Long: `minigameshub-edge fronts the MiniGamesHub game catalog with a local
cache layer: it serves the site through versioned cache generations, keeps a
searchable copy of the catalog, and queues play/rating writes while the
backend store is unreachable.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
