package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"minigameshub-edge/logger"
	"minigameshub-edge/ui"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog totals and queue state",
	Run: func(_ *cobra.Command, _ []string) {
		runStats()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats() {
	_, svc := bootstrap(".")
	defer svc.Close()

	if err := svc.Init(context.Background()); err != nil {
		logger.Log.Fatalw("Failed to load catalog", zap.Error(err))
	}

	stats := svc.Cache().Stats()
	fmt.Println(ui.Highlight("MiniGamesHub catalog"))
	fmt.Printf("  games:      %d\n", stats.TotalGames)
	fmt.Printf("  categories: %d\n", stats.TotalCategories)
	fmt.Printf("  plays:      %s\n", ui.FormatPlays(stats.TotalPlays))
	fmt.Printf("  avg rating: %s\n", ui.Stars(stats.AverageRating))

	queued, err := svc.Queue().Len()
	if err != nil {
		logger.Log.Warnw("Failed to read queue length", zap.Error(err))
		return
	}
	if queued > 0 {
		fmt.Println(ui.Faint(fmt.Sprintf("  pending writes: %d", queued)))
	}
}
