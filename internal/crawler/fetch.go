package crawler

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"sjsage522/estatecrawler/helpers"
	"sjsage522/estatecrawler/logger"
	"sjsage522/estatecrawler/pkg/errors"
	"sjsage522/estatecrawler/services/cache"
)

// FetchFunc performs the actual transport request
type FetchFunc func(ctx context.Context, url string) (io.Reader, error)

// HTTPFetcher fetches pages over plain HTTP with pacing and a shared
// rate-limit block
type HTTPFetcher struct {
	Provider  string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
	Limiter   *rate.Limiter

	fetch FetchFunc
}

// NewHTTPFetcher creates a fetcher using randomized browser headers.
// A nil cacheSvc disables the rate-limit block; a nil limiter disables pacing.
func NewHTTPFetcher(provider string, cacheSvc cache.CacheService, blockTime time.Duration, limiter *rate.Limiter) *HTTPFetcher {
	return &HTTPFetcher{
		Provider:  provider,
		CacheKey:  provider + "_rate_limited",
		CacheSvc:  cacheSvc,
		BlockTime: blockTime,
		Limiter:   limiter,
		fetch:     helpers.FetchWithRandomHeaders,
	}
}

// Fetch retrieves url unless the source recently rate limited us
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	if f.blocked() {
		return nil, errors.NewRateLimit(f.Provider, f.BlockTime)
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, errors.NewFetch(f.Provider, "waiting for request slot", err)
		}
	}

	body, err := f.fetch(ctx, url)
	if err != nil {
		if stderrors.Is(err, helpers.ErrRateLimited) {
			f.block()
		}
		return nil, errors.NewFetch(f.Provider, fmt.Sprintf("fetch %s", url), err)
	}
	return body, nil
}

// blocked reports an active block. Cache outages count as not blocked.
func (f *HTTPFetcher) blocked() bool {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return false
	}
	_, err := f.CacheSvc.Get(f.CacheKey)
	if err != nil && !stderrors.Is(err, cache.ErrCacheMiss) {
		logger.Debug("[%s] rate limit cache unavailable: %v", f.Provider, err)
	}
	return err == nil
}

func (f *HTTPFetcher) block() {
	if f.CacheSvc == nil || f.CacheKey == "" || f.BlockTime <= 0 {
		return
	}
	value := []byte(strconv.FormatInt(int64(f.BlockTime/time.Second), 10))
	if err := f.CacheSvc.Set(f.CacheKey, value, f.BlockTime); err != nil {
		logger.Error("[%s] failed to set rate limit block: %v", f.Provider, err)
		return
	}
	logger.Warn("[%s] source is rate limiting, blocking requests for %s", f.Provider, f.BlockTime)
}
