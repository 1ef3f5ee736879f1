package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/generation"
	"github.com/phrazzld/carousel-api/internal/platform/gemini"
	"github.com/phrazzld/carousel-api/internal/platform/midjourney"
	"github.com/phrazzld/carousel-api/internal/platform/openai"
	"github.com/phrazzld/carousel-api/internal/platform/runware"
)

// buildRegistry registers every provider that has an API key. The
// configured default text and image providers must be among them.
func buildRegistry(
	ctx context.Context,
	cfg config.ProvidersConfig,
	httpClient *http.Client,
	logger *slog.Logger,
) (*generation.Registry, error) {
	registry := generation.NewRegistry(cfg.TextProvider, cfg.ImageProvider)
	log := logger.With("component", "providers")

	if cfg.Gemini.APIKey != "" {
		g, err := gemini.NewGenerator(ctx, cfg.Gemini, logger)
		if err != nil {
			return nil, err
		}
		registry.RegisterText(g)
		log.Info("provider registered", "provider", g.Name(), "capabilities", "text")
	}

	if cfg.OpenAI.APIKey != "" {
		c, err := openai.NewClient(cfg.OpenAI, httpClient, logger)
		if err != nil {
			return nil, err
		}
		registry.RegisterText(c)
		registry.RegisterImage(c)
		log.Info("provider registered", "provider", c.Name(), "capabilities", "text,image")
	}

	if cfg.Runware.APIKey != "" {
		c, err := runware.NewClient(cfg.Runware, httpClient, logger)
		if err != nil {
			return nil, err
		}
		registry.RegisterImage(c)
		log.Info("provider registered", "provider", c.Name(), "capabilities", "image")
	}

	if cfg.Midjourney.APIKey != "" {
		c, err := midjourney.NewClient(cfg.Midjourney, httpClient, logger)
		if err != nil {
			return nil, err
		}
		registry.RegisterImage(c)
		log.Info("provider registered", "provider", c.Name(), "capabilities", "image")
	}

	if _, err := registry.Text(""); err != nil {
		return nil, fmt.Errorf("default text provider unavailable: %w", err)
	}
	if _, err := registry.Image(""); err != nil {
		return nil, fmt.Errorf("default image provider unavailable: %w", err)
	}
	return registry, nil
}
