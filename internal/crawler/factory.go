package crawler

import (
	"io"
	"time"

	"golang.org/x/time/rate"
	"sjsage522/estatecrawler/config"
	"sjsage522/estatecrawler/logger"
	"sjsage522/estatecrawler/services/cache"
)

const chromePageTimeout = 60 * time.Second

// NewLimiter returns a shared pacing limiter, or nil when rps is unlimited
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// CreateFetcher builds the page fetcher selected by FETCH_MODE.
// The returned closer is nil when the fetcher holds no resources.
func CreateFetcher(cfg *config.Config, cacheSvc cache.CacheService) (PageFetcher, io.Closer, error) {
	limiter := NewLimiter(cfg.RequestRPS)

	if cfg.FetchMode == "chrome" {
		f, err := NewChromeFetcher(cfg.Provider, cfg.ChromePath, chromePageTimeout, limiter)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}

	logger.Debug("Using HTTP fetcher for %s (rps=%v, rate limit block=%v)", cfg.Provider, cfg.RequestRPS, cacheSvc != nil)
	return NewHTTPFetcher(cfg.Provider, cacheSvc, cfg.RateLimitBlock(), limiter), nil, nil
}

// CreateCoordinator wires a coordinator for the configured listing source
func CreateCoordinator(cfg *config.Config, fetcher PageFetcher, openStore OpenStoreFunc) (*CrawlCoordinator, error) {
	selectors := DefaultListingSelectors()
	extractor, err := NewListingExtractor(selectors)
	if err != nil {
		return nil, err
	}

	return NewCrawlCoordinator(
		CoordinatorConfig{
			Provider:        cfg.Provider,
			IndexURL:        cfg.StartURL,
			PageURLTemplate: cfg.PageURLTemplate,
			Strategy:        Strategy(cfg.CrawlStrategy),
			Concurrency:     cfg.CrawlConcurrency,
			RunTimeout:      cfg.RunTimeout(),
		},
		fetcher,
		extractor,
		NewPaginationResolver(selectors),
		NewRecordBuilder(cfg.BaseURL),
		openStore,
	)
}
