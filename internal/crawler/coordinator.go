package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"sjsage522/estatecrawler/logger"
	"sjsage522/estatecrawler/pkg/errors"
)

// Strategy selects how listing pages are fetched
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyBounded    Strategy = "bounded"
)

// State is the lifecycle position of a run
type State string

const (
	StateInit                State = "init"
	StateResolvingPagination State = "resolving_pagination"
	StatePaging              State = "paging"
	StateAggregating         State = "aggregating"
	StateDone                State = "done"
	StateAborted             State = "aborted"
)

const pagePlaceholder = "{page}"

// CoordinatorConfig holds the run parameters of a coordinator
type CoordinatorConfig struct {
	Provider string
	IndexURL string
	// PageURLTemplate defaults to IndexURL; see PageURL
	PageURLTemplate string
	Strategy        Strategy
	// Concurrency bounds in-flight fetches for StrategyBounded
	Concurrency int
	// RunTimeout is a per-run deadline applied by Run; zero means none
	RunTimeout time.Duration
}

// PageFailure records a listing page that contributed no records
type PageFailure struct {
	Page int
	Err  error
}

// CrawlResult is the ordered output of one pass over the index
type CrawlResult struct {
	// State is StateAggregating inside Run until the insert finishes
	State           State
	Summary         PageIndexSummary
	Records         []ListingRecord
	PagesAttempted  int
	FailedPages     []PageFailure
	ListingsSkipped int
}

// RunSummary describes a completed or aborted run
type RunSummary struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	State           State     `json:"state"`
	TotalItems      int       `json:"total_items"`
	MaxPageNumber   int       `json:"max_page_number"`
	ItemsExtracted  int       `json:"items_extracted"`
	PagesAttempted  int       `json:"pages_attempted"`
	PagesFailed     int       `json:"pages_failed"`
	ListingsSkipped int       `json:"listings_skipped"`
	Inserted        int       `json:"inserted"`
	Error           string    `json:"error,omitempty"`
}

// CrawlCoordinator drives pagination, page fetching, merge and persistence
type CrawlCoordinator struct {
	cfg       CoordinatorConfig
	fetcher   PageFetcher
	extractor *ListingExtractor
	resolver  *PaginationResolver
	builder   *RecordBuilder
	openStore OpenStoreFunc
}

// NewCrawlCoordinator validates cfg and wires the run collaborators
func NewCrawlCoordinator(
	cfg CoordinatorConfig,
	fetcher PageFetcher,
	extractor *ListingExtractor,
	resolver *PaginationResolver,
	builder *RecordBuilder,
	openStore OpenStoreFunc,
) (*CrawlCoordinator, error) {
	if cfg.IndexURL == "" {
		return nil, errors.NewConfiguration("index URL is required", nil)
	}
	if cfg.PageURLTemplate == "" {
		cfg.PageURLTemplate = cfg.IndexURL
	}
	switch cfg.Strategy {
	case "":
		cfg.Strategy = StrategySequential
	case StrategySequential:
	case StrategyBounded:
		if cfg.Concurrency < 1 {
			return nil, errors.NewConfiguration(fmt.Sprintf("bounded strategy needs concurrency >= 1, got %d", cfg.Concurrency), nil)
		}
	default:
		return nil, errors.NewConfiguration(fmt.Sprintf("unknown crawl strategy %q", cfg.Strategy), nil)
	}
	if fetcher == nil || extractor == nil || resolver == nil || builder == nil {
		return nil, errors.NewConfiguration("coordinator collaborators must not be nil", nil)
	}

	return &CrawlCoordinator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		resolver:  resolver,
		builder:   builder,
		openStore: openStore,
	}, nil
}

// PageURL builds the URL of page n. A {page} placeholder is substituted;
// otherwise pn=n is appended as a query parameter.
func PageURL(template string, page int) string {
	n := strconv.Itoa(page)
	if strings.Contains(template, pagePlaceholder) {
		return strings.ReplaceAll(template, pagePlaceholder, n)
	}
	sep := "?"
	if strings.Contains(template, "?") {
		sep = "&"
	}
	return template + sep + "pn=" + n
}

type run struct {
	id    string
	state State
	log   *logger.Logger
}

func (c *CrawlCoordinator) newRun() *run {
	id := uuid.NewString()
	return &run{id: id, state: StateInit, log: logger.ForCoordinator(c.cfg.Provider, id)}
}

func (r *run) transition(s State) {
	r.log.Debug().Str("from", string(r.state)).Str("to", string(s)).Msg("state transition")
	r.state = s
}

// Crawl resolves pagination and fetches every listing page without persisting
func (c *CrawlCoordinator) Crawl(ctx context.Context) (*CrawlResult, error) {
	r := c.newRun()
	result, err := c.crawl(ctx, r)
	if err != nil {
		return nil, err
	}
	r.transition(StateDone)
	result.State = r.state
	return result, nil
}

func (c *CrawlCoordinator) crawl(ctx context.Context, r *run) (*CrawlResult, error) {
	r.transition(StateResolvingPagination)
	if err := ctx.Err(); err != nil {
		r.transition(StateAborted)
		return nil, errors.NewCanceled(c.cfg.Provider, "run canceled before start", err)
	}

	index, err := c.fetchDocument(ctx, c.cfg.IndexURL)
	if err != nil {
		r.transition(StateAborted)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.NewCanceled(c.cfg.Provider, "run canceled while fetching index", ctxErr)
		}
		return nil, err
	}
	summary := c.resolver.Resolve(index)
	r.log.Info().
		Int("total_items", summary.TotalItems).
		Int("max_page", summary.MaxPageNumber).
		Msg("pagination resolved")

	r.transition(StatePaging)
	pages := make([]pageResult, summary.MaxPageNumber)
	if c.cfg.Strategy == StrategyBounded {
		c.crawlBounded(ctx, r, pages)
	} else {
		c.crawlSequential(ctx, r, pages)
	}

	if err := ctx.Err(); err != nil {
		r.transition(StateAborted)
		return nil, errors.NewCanceled(c.cfg.Provider, "run canceled while paging", err)
	}

	r.transition(StateAggregating)
	result := &CrawlResult{State: StateAggregating, Summary: summary}
	for i, p := range pages {
		if !p.attempted {
			continue
		}
		result.PagesAttempted++
		if p.err != nil {
			result.FailedPages = append(result.FailedPages, PageFailure{Page: i + 1, Err: p.err})
			continue
		}
		result.ListingsSkipped += p.skipped
		result.Records = append(result.Records, p.records...)
	}
	return result, nil
}

// pageResult is owned by exactly one page task
type pageResult struct {
	attempted bool
	records   []ListingRecord
	skipped   int
	err       error
}

func (c *CrawlCoordinator) crawlSequential(ctx context.Context, r *run, pages []pageResult) {
	for i := range pages {
		if ctx.Err() != nil {
			return
		}
		pages[i] = c.crawlPage(ctx, r, i+1)
	}
}

func (c *CrawlCoordinator) crawlBounded(ctx context.Context, r *run, pages []pageResult) {
	sem := semaphore.NewWeighted(int64(c.cfg.Concurrency))
	var wg sync.WaitGroup
	for i := range pages {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		// Acquire can win the race against a cancellation
		if ctx.Err() != nil {
			sem.Release(1)
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			pages[i] = c.crawlPage(ctx, r, i+1)
		}(i)
	}
	wg.Wait()
}

// crawlPage never returns an error; failures are recorded in the result
func (c *CrawlCoordinator) crawlPage(ctx context.Context, r *run, page int) pageResult {
	url := PageURL(c.cfg.PageURLTemplate, page)
	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		r.log.Warn().Err(err).Int("page", page).Msg("page failed")
		return pageResult{attempted: true, err: err}
	}

	blocks := c.extractor.Blocks(doc)
	records := make([]ListingRecord, 0, len(blocks))
	var lastErr error
	for i, block := range blocks {
		raw, err := c.extractor.Extract(block)
		if err != nil {
			lastErr = err
			r.log.Debug().Err(err).Int("page", page).Int("listing", i).Msg("listing skipped")
			continue
		}
		records = append(records, c.builder.Build(*raw))
	}

	if len(blocks) > 0 && len(records) == 0 {
		err := errors.NewParsing(c.cfg.Provider, fmt.Sprintf("page %d: none of %d listings could be extracted", page, len(blocks)), lastErr)
		r.log.Warn().Err(err).Int("page", page).Msg("page failed")
		return pageResult{attempted: true, err: err}
	}

	r.log.Debug().Int("page", page).Int("listings", len(records)).Msg("page crawled")
	return pageResult{attempted: true, records: records, skipped: len(blocks) - len(records)}
}

func (c *CrawlCoordinator) fetchDocument(ctx context.Context, url string) (Node, error) {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewFetch(c.cfg.Provider, fmt.Sprintf("fetch %s", url), err)
	}
	doc, err := NewDocument(body)
	if err != nil {
		return nil, errors.NewParsing(c.cfg.Provider, fmt.Sprintf("parse %s", url), err)
	}
	return doc, nil
}

// Run performs one crawl and inserts its records in a single bulk write.
// The summary is returned on failure too.
func (c *CrawlCoordinator) Run(ctx context.Context) (*RunSummary, error) {
	r := c.newRun()
	summary := &RunSummary{RunID: r.id, StartedAt: time.Now(), State: StateInit}

	if c.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RunTimeout)
		defer cancel()
	}

	finish := func(err error) (*RunSummary, error) {
		if err != nil && r.state != StateAborted {
			r.transition(StateAborted)
		}
		summary.State = r.state
		summary.FinishedAt = time.Now()
		event := r.log.Info()
		if err != nil {
			summary.Error = err.Error()
			event = r.log.Error().Err(err)
		}
		event.
			Str("state", string(summary.State)).
			Int("total_items", summary.TotalItems).
			Int("max_page", summary.MaxPageNumber).
			Int("extracted", summary.ItemsExtracted).
			Int("pages_failed", summary.PagesFailed).
			Int("listings_skipped", summary.ListingsSkipped).
			Int("inserted", summary.Inserted).
			Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
			Msg("run finished")
		return summary, err
	}

	if c.openStore == nil {
		return finish(errors.NewConfiguration("no store configured", nil))
	}
	store, err := c.openStore(ctx)
	if err != nil {
		return finish(errors.NewPersistence(c.cfg.Provider, "open store", err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			r.log.Warn().Err(err).Msg("failed to close store")
		}
	}()

	result, err := c.crawl(ctx, r)
	if err != nil {
		return finish(err)
	}
	summary.TotalItems = result.Summary.TotalItems
	summary.MaxPageNumber = result.Summary.MaxPageNumber
	summary.ItemsExtracted = len(result.Records)
	summary.PagesAttempted = result.PagesAttempted
	summary.PagesFailed = len(result.FailedPages)
	summary.ListingsSkipped = result.ListingsSkipped

	if len(result.Records) > 0 {
		if err := ctx.Err(); err != nil {
			return finish(errors.NewCanceled(c.cfg.Provider, "run canceled before insert", err))
		}
		inserted, err := store.InsertMany(ctx, result.Records)
		if err != nil {
			return finish(errors.NewPersistence(c.cfg.Provider, fmt.Sprintf("insert %d records", len(result.Records)), err))
		}
		summary.Inserted = inserted
	}

	r.transition(StateDone)
	return finish(nil)
}
