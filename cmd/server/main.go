// Package main implements the entry point for the coach API server,
// which runs the app's long-latency AI operations (workout plan
// generation, meal parsing, coach chat, transcription) as durable
// tasks that survive client disconnects and server restarts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/macrofit/coach-api/internal/config"
	"github.com/macrofit/coach-api/internal/platform/logger"
	"github.com/macrofit/coach-api/internal/service/auth"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (env vars used otherwise)")
	mintToken := flag.String("mint-token", "", "mint a dev JWT for the given user id (or 'new') and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("failed to set up logger: %v", err)
	}

	if *mintToken != "" {
		if err := runMintToken(cfg, *mintToken); err != nil {
			log.Fatalf("failed to mint token: %v", err)
		}
		return
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_path", cfg.Database.Path,
		"model", cfg.LLM.ModelName)

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// runMintToken prints a signed JWT for local development. Pass "new"
// to mint for a fresh user id.
func runMintToken(cfg *config.Config, user string) error {
	userID := uuid.New()
	if user != "new" {
		parsed, err := uuid.Parse(user)
		if err != nil {
			return fmt.Errorf("user id must be a UUID or 'new': %w", err)
		}
		userID = parsed
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return err
	}
	token, err := jwtService.GenerateToken(context.Background(), userID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "user_id: %s\ntoken: %s\n", userID, token)
	return nil
}
