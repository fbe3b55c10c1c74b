package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"minigameshub-edge/logger"
	"minigameshub-edge/ui"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain queued catalog writes against the backend once",
	Long: `Performs a single reconciliation pass: every pending play or rating
mutation is replayed against the backend store. Applied and permanently
rejected mutations leave the queue; mutations the store still cannot accept
stay queued for the next pass.`,
	Run: func(_ *cobra.Command, _ []string) {
		runSync()
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync() {
	_, svc := bootstrap(".")
	defer svc.Close()

	applied, dropped, kept, err := svc.Reconciler().RunOnce(context.Background())
	if err != nil {
		logger.Log.Fatalw("Reconciliation pass failed", zap.Error(err))
	}

	fmt.Println(ui.Highlight("Sync complete"))
	fmt.Printf("  applied: %d\n", applied)
	fmt.Printf("  dropped: %d\n", dropped)
	if kept > 0 {
		fmt.Println(ui.Faint(fmt.Sprintf("  still queued: %d (backend unavailable)", kept)))
	}
}
