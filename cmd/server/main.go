package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/KnuggetDeveloper/infograph/internal/auth"
	"github.com/KnuggetDeveloper/infograph/internal/config"
	"github.com/KnuggetDeveloper/infograph/internal/database"
	"github.com/KnuggetDeveloper/infograph/internal/gemini"
	"github.com/KnuggetDeveloper/infograph/internal/repository"
	"github.com/KnuggetDeveloper/infograph/internal/server"
	"github.com/KnuggetDeveloper/infograph/internal/service"
	"github.com/KnuggetDeveloper/infograph/internal/storage"
	"github.com/KnuggetDeveloper/infograph/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(slog.LevelInfo)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	generationRepo := repository.NewGenerationRepository(db)

	geminiClient := gemini.NewClient(cfg, logr)

	var uploader service.ShareUploader
	if cfg.ShareEnabled() {
		up, err := storage.NewUploader(cfg)
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		uploader = up
	} else {
		logr.Info("share storage not configured, share links disabled")
	}

	userService := service.NewUserService(userRepo)
	generationService := service.NewGenerationService(cfg, logr, generationRepo, geminiClient, uploader)

	sessions := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL, cfg.CookieName, cfg.CookieSecure)

	srv := server.New(cfg.ListenAddr, logr, sessions, userService, generationService)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
