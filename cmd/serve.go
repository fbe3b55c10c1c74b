package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"minigameshub-edge/logger"
	"minigameshub-edge/webcache"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the edge cache server",
	Long: `Starts the HTTP edge cache in front of the site. A new cache
generation set is installed and activated for the configured CACHE_VERSION,
the catalog is loaded (from the backend or the last snapshot), and the
reconciler drains queued writes in the background until shutdown.`,
	Run: func(_ *cobra.Command, _ []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() {
	cfg, svc := bootstrap(".")
	defer svc.Close()

	if cfg.UpstreamURL == "" {
		logger.Log.Fatal("Error: UPSTREAM_URL must be set.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Init(ctx); err != nil {
		logger.Log.Fatalw("Failed to initialize catalog", zap.Error(err))
	}

	handler, err := webcache.New(cfg.UpstreamURL, cfg.APICacheTTL, logger.Log)
	if err != nil {
		logger.Log.Fatalw("Failed to create edge cache", zap.Error(err))
	}

	// Install the new generation set, then cut traffic over to it. Anything
	// cached under older versions is evicted at activation.
	handler.Install(ctx, cfg.CacheVersion, webcache.PrecacheManifest)
	handler.Activate(cfg.CacheVersion)

	go svc.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warnw("Shutdown did not complete cleanly", zap.Error(err))
		}
	}()

	logger.Log.Infow("Edge cache listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("upstream", cfg.UpstreamURL),
		zap.String("version", cfg.CacheVersion),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalw("Server failed", zap.Error(err))
	}
}
