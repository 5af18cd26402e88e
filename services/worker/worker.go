package worker

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"sjsage522/estatecrawler/internal/crawler"
	"sjsage522/estatecrawler/logger"
)

// ErrRunInProgress is returned when a run is requested while one is active
var ErrRunInProgress = stderrors.New("a crawl run is already in progress")

// Runner performs one complete crawl run
type Runner interface {
	Run(ctx context.Context) (*crawler.RunSummary, error)
}

// Worker runs the crawl once or on a fixed interval, one run at a time
type Worker struct {
	runner        Runner
	crawlInterval time.Duration
	log           *logger.Logger

	running sync.Mutex

	mu      sync.RWMutex
	last    *crawler.RunSummary
	lastErr error
}

// NewWorker creates a new worker
func NewWorker(runner Runner, crawlInterval time.Duration) *Worker {
	return &Worker{
		runner:        runner,
		crawlInterval: crawlInterval,
		log:           logger.ForWorker(),
	}
}

// RunOnce performs a single run unless another one is active
func (w *Worker) RunOnce(ctx context.Context) (*crawler.RunSummary, error) {
	if !w.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer w.running.Unlock()
	return w.run(ctx)
}

// Trigger starts a run in the background and returns at once.
// ctx should outlive the caller's request.
func (w *Worker) Trigger(ctx context.Context) error {
	if !w.running.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer w.running.Unlock()
		if _, err := w.run(ctx); err != nil {
			w.log.WithError(err).Error().Msg("triggered run failed")
		}
	}()
	return nil
}

func (w *Worker) run(ctx context.Context) (*crawler.RunSummary, error) {
	summary, err := w.runner.Run(ctx)

	w.mu.Lock()
	w.last = summary
	w.lastErr = err
	w.mu.Unlock()

	return summary, err
}

// Start runs immediately and then every crawl interval until ctx is done.
// A failed run is logged and the schedule continues.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.crawlInterval).Msg("worker started")
	for {
		start := time.Now()
		if _, err := w.RunOnce(ctx); err != nil {
			if stderrors.Is(err, ErrRunInProgress) {
				w.log.Debug().Msg("skipping scheduled run, previous run still active")
			} else {
				w.log.WithError(err).Error().Msg("scheduled run failed")
			}
		}
		w.log.Debug().Dur("elapsed", time.Since(start)).Msg("crawl cycle finished")

		timer := time.NewTimer(w.crawlInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info().Msg("worker stopped")
			return
		case <-timer.C:
		}
	}
}

// LastRun returns a copy of the most recent run summary and its error
func (w *Worker) LastRun() (*crawler.RunSummary, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return nil, w.lastErr
	}
	summary := *w.last
	return &summary, w.lastErr
}
