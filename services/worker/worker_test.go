package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sjsage522/estatecrawler/internal/crawler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRunner implements the Runner interface for testing
type MockRunner struct {
	calls   atomic.Int32
	err     error
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

// Ensure MockRunner implements Runner
var _ Runner = (*MockRunner)(nil)

func (m *MockRunner) Run(ctx context.Context) (*crawler.RunSummary, error) {
	n := m.calls.Add(1)
	if m.started != nil {
		m.once.Do(func() { close(m.started) })
	}
	if m.block != nil {
		<-m.block
	}
	state := crawler.StateDone
	if m.err != nil {
		state = crawler.StateAborted
	}
	return &crawler.RunSummary{RunID: "run", State: state, Inserted: int(n)}, m.err
}

func TestWorkerRunOnce(t *testing.T) {
	runner := &MockRunner{}
	w := NewWorker(runner, time.Minute)

	last, err := w.LastRun()
	assert.Nil(t, last)
	assert.NoError(t, err)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, crawler.StateDone, summary.State)

	last, err = w.LastRun()
	require.NoError(t, err)
	assert.Equal(t, 1, last.Inserted)
}

func TestWorkerRunOnceRecordsFailure(t *testing.T) {
	runner := &MockRunner{err: errors.New("insert failed")}
	w := NewWorker(runner, time.Minute)

	_, err := w.RunOnce(context.Background())
	assert.EqualError(t, err, "insert failed")

	last, err := w.LastRun()
	assert.EqualError(t, err, "insert failed")
	require.NotNil(t, last)
	assert.Equal(t, crawler.StateAborted, last.State)
}

func TestWorkerRejectsOverlappingRuns(t *testing.T) {
	runner := &MockRunner{block: make(chan struct{}), started: make(chan struct{})}
	w := NewWorker(runner, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.RunOnce(context.Background())
	}()
	<-runner.started

	_, err := w.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(runner.block)
	<-done
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestWorkerStartRunsOnSchedule(t *testing.T) {
	runner := &MockRunner{err: errors.New("keeps failing")}
	w := NewWorker(runner, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		w.Start(ctx)
	}()

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestWorkerTrigger(t *testing.T) {
	runner := &MockRunner{block: make(chan struct{}), started: make(chan struct{})}
	w := NewWorker(runner, time.Minute)

	require.NoError(t, w.Trigger(context.Background()))
	<-runner.started
	assert.ErrorIs(t, w.Trigger(context.Background()), ErrRunInProgress)

	close(runner.block)
	assert.Eventually(t, func() bool {
		last, _ := w.LastRun()
		return last != nil
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return w.Trigger(context.Background()) == nil }, time.Second, 5*time.Millisecond)
}
