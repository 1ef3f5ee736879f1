package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/export"
	"github.com/phrazzld/carousel-api/internal/platform/cache"
	"github.com/phrazzld/carousel-api/internal/platform/storage"
	"github.com/phrazzld/carousel-api/internal/redact"
	"github.com/redis/go-redis/v9"
)

const imageFetchTimeout = 30 * time.Second

// buildExportService wires the export pipeline to object storage and the
// redis progress store. When either backend is unavailable the in-memory
// implementation is used instead and a warning is logged; exports then
// do not survive a restart. The returned redis client is nil in that case.
func buildExportService(
	ctx context.Context,
	cfg *config.Config,
	canvases export.CanvasLister,
	logger *slog.Logger,
) (*export.Service, *redis.Client) {
	var sink export.OutputSink
	s3Client, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Warn("object storage unavailable, keeping exports in memory", "error", redact.Error(err))
		sink = export.NewMemorySink(cfg.Storage.PresignTTL)
	} else {
		sink = s3Client
	}

	var (
		progress    export.ProgressStore
		redisClient *redis.Client
	)
	redisClient, err = cache.Connect(ctx, cfg.Cache)
	if err != nil {
		logger.Warn("redis unavailable, tracking export progress in memory", "error", redact.Error(err))
		progress = export.NewMemoryProgressStore()
		redisClient = nil
	} else {
		progress = cache.NewProgressStore(redisClient, cfg.Cache.ProgressTTL)
	}

	renderer := export.NewRasterRenderer(export.HTTPFetcher{
		Client: &http.Client{Timeout: imageFetchTimeout},
	}, logger)
	pipeline := export.NewPipeline(renderer, export.GIFEncoder{}, sink, logger)

	return export.NewService(pipeline, canvases, progress, logger), redisClient
}
