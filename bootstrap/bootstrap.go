// Package bootstrap builds the HTTP app for the serverless entry point in
// api/. It sits outside internal/ because Vercel compiles api/ as its own
// package tree.
package bootstrap

import (
	"fmt"

	"somosrentable-backend/internal/config"
	"somosrentable-backend/internal/infrastructure/logging"
	"somosrentable-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// New loads config and wires the app. No sweeper goroutine runs in a
// function instance; a cron hits POST /api/v1/reservations/sweep instead.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: config: %w", err)
	}
	logging.Setup(cfg.Env, cfg.LogLevel)
	app, err := router.CreateApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	log.Info().Str("env", cfg.Env).Msg("serverless app ready")
	return app.Fiber, nil
}
