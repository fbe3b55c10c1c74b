package cmd

import (
	"minigameshub-edge/config"
	"minigameshub-edge/logger"
	"minigameshub-edge/service"

	"go.uber.org/zap"
)

// bootstrap handles shared initialization logic for commands.
func bootstrap(path string) (config.Config, *service.Service) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	if cfg.BackendURL == "" {
		logger.Log.Fatal("Error: BACKEND_URL must be set.")
	}

	svc, err := service.New(cfg, logger.Log)
	if err != nil {
		logger.Log.Fatalw("Failed to initialize service", zap.Error(err))
	}
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	return cfg, svc
}
