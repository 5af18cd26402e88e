package main

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/estatecrawler/config"
	"sjsage522/estatecrawler/internal/crawler"
	"sjsage522/estatecrawler/logger"
	"sjsage522/estatecrawler/services/api"
	"sjsage522/estatecrawler/services/cache"
	"sjsage522/estatecrawler/services/store"
	"sjsage522/estatecrawler/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("start_url", cfg.StartURL).
		Str("strategy", cfg.CrawlStrategy).
		Str("store", cfg.StoreBackend).
		Dur("crawl_interval", cfg.CrawlInterval()).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	services, err := initializeServices(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	w := worker.NewWorker(services.Coordinator, cfg.CrawlInterval())

	var server *http.Server
	if cfg.APIAddr != "" {
		server = api.NewServer(cfg.APIAddr, api.NewHandler(ctx, w))
		go func() {
			log.Info().Str("addr", cfg.APIAddr).Msg("Starting API server")
			if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("API server failed")
				cancel()
			}
		}()
	}

	switch {
	case cfg.CrawlInterval() > 0:
		w.Start(ctx)
	case server != nil:
		// No schedule: runs only happen through POST /crawl
		<-ctx.Done()
	default:
		summary, err := w.RunOnce(ctx)
		if err != nil {
			services.Cleanup()
			log.Fatal().Err(err).Msg("Crawl run failed")
		}
		log.Info().
			Str("run_id", summary.RunID).
			Int("inserted", summary.Inserted).
			Int("pages_failed", summary.PagesFailed).
			Msg("Crawl run completed")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("API server shutdown")
		}
	}
}

// Services holds all the initialized services
type Services struct {
	Cache       cache.CacheService
	Coordinator *crawler.CrawlCoordinator
	closers     []io.Closer
}

// Cleanup releases long-lived resources; safe to call twice
func (s *Services) Cleanup() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logger.Warn("cleanup: %v", err)
		}
	}
	s.closers = nil
}

// initializeServices wires cache, fetcher and coordinator. Store connections
// are opened per run by the coordinator.
func initializeServices(cfg *config.Config) (*Services, error) {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr, cfg.Provider)
		logger.Info("Using Memcache at %s for rate limit blocks", cfg.MemcacheAddr)
	}

	fetcher, closer, err := crawler.CreateFetcher(cfg, services.Cache)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		services.closers = append(services.closers, closer)
	}

	coordinator, err := crawler.CreateCoordinator(cfg, fetcher, store.Opener(cfg))
	if err != nil {
		services.Cleanup()
		return nil, err
	}
	services.Coordinator = coordinator

	return services, nil
}
