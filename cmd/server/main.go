package main

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"

	"github.com/meridianworks/media-gateway/internal/api"
	"github.com/meridianworks/media-gateway/pkg/mediagateway/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	gateway, err := cfg.BuildGateway()
	if err != nil {
		slog.Error("Failed to build media gateway", "err", err)
		os.Exit(1)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	mediaHandler := api.NewMediaHandler(gateway)

	mount := func(r chi.Router) {
		r.Mount("/", mediaHandler.Routes())
	}

	if cfg.ApiKeySHA256 != "" {
		apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{
				"key1": cfg.ApiKeySHA256,
			},
		})
		if err != nil {
			slog.Error("Failed initialize API Key middleware", "err", err)
			os.Exit(1)
		}
		server.R.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			mount(r)
		})
	} else {
		mount(server.R)
	}

	slog.Info("Media gateway starting",
		"store", cfg.Store,
		"identity_mode", cfg.Identity.Mode,
		"rate_limit_enabled", cfg.RateLimit.Enabled)

	server.Run()
}
