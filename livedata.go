package livesql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// consecutiveFailureWarning is how many fetch failures in a row trigger a
// warning log. Polling continues regardless.
const consecutiveFailureWarning = 3

// fetchFailure wraps an error so it can live in an atomic.Pointer.
type fetchFailure struct {
	err error
}

// LiveData is a continuously refreshed view of one source. A background
// goroutine fetches the source on a fixed cadence and atomically replaces
// the current snapshot after each successful fetch; queries and snapshot
// reads never block polling and vice versa.
//
// A LiveData built by Load never polls; it holds the single snapshot
// fetched at load time.
type LiveData struct {
	source   Source
	interval time.Duration
	table    string
	logger   *slog.Logger

	fetcher fetcher
	engine  *engine

	current atomic.Pointer[Snapshot]
	lastErr atomic.Pointer[fetchFailure]

	// fetchMu serializes the poll goroutine with Refresh so fetches for one
	// stream never overlap.
	fetchMu  sync.Mutex
	failures int

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  atomic.Bool
}

func newLiveData(source Source, interval time.Duration, table string, f fetcher, logger *slog.Logger) *LiveData {
	if logger == nil {
		logger = slog.Default()
	}
	ld := &LiveData{
		source:   source,
		interval: interval,
		table:    table,
		logger:   logger,
		fetcher:  f,
		engine:   newEngine(),
	}
	ld.current.Store(emptySnapshot(table))
	return ld
}

// start fetches once immediately, then launches the poll goroutine. The
// ticker is created before the first fetch so the second fetch lands one
// interval after the first one started. A failed first fetch is recorded
// like any other cycle failure; the stream starts with an empty snapshot
// and keeps polling.
func (ld *LiveData) start(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	ld.cancel = cancel

	ticker := time.NewTicker(ld.interval)
	ld.poll(pollCtx)

	ld.wg.Add(1)
	go ld.run(pollCtx, ticker)
}

// run is the polling loop. A slow fetch defers the next one: the ticker
// drops ticks that fire while a fetch is in progress, so fetches never
// overlap and never queue up.
func (ld *LiveData) run(ctx context.Context, ticker *time.Ticker) {
	defer ld.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ld.poll(ctx)
		}
	}
}

// poll performs one fetch cycle. A failure records the error and keeps the
// previous snapshot; only a successful fetch replaces it. A fetch that
// completes after Stop is discarded without a swap.
func (ld *LiveData) poll(ctx context.Context) {
	ld.fetchMu.Lock()
	defer ld.fetchMu.Unlock()

	snap, err := ld.fetcher.Fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		ld.lastErr.Store(&fetchFailure{err: err})
		ld.failures++
		if ld.failures == consecutiveFailureWarning {
			ld.logger.Warn("source keeps failing, serving stale data",
				"source", ld.source.Location,
				"consecutive_failures", ld.failures,
				"error", err)
		} else {
			ld.logger.Debug("fetch cycle failed",
				"source", ld.source.Location,
				"error", err)
		}
		return
	}

	ld.current.Store(snap)
	ld.lastErr.Store(nil)
	ld.failures = 0
}

// Query runs one SQL statement against the snapshot that is current when
// Query is called. The snapshot reference is captured once at entry, so a
// poll completing mid-query has no effect on the running query.
//
// The data is exposed as a single table (named "data" unless the builder
// renamed it). Unparsable SQL returns ErrQuerySyntax; valid SQL referencing
// unknown columns or tables returns ErrQueryExecution. Querying a stream
// that has no data yet returns an empty Result, not an error.
func (ld *LiveData) Query(ctx context.Context, text string) (*Result, error) {
	return ld.engine.query(ctx, ld.current.Load(), text)
}

// CurrentSnapshot returns the most recent successfully fetched snapshot,
// or an empty snapshot if no fetch has succeeded yet.
func (ld *LiveData) CurrentSnapshot() *Snapshot {
	return ld.current.Load()
}

// LastError returns the error from the most recent fetch cycle, or nil if
// that cycle succeeded. A failing source keeps the previous snapshot in
// place; this is how callers observe that the data may be stale.
func (ld *LiveData) LastError() error {
	f := ld.lastErr.Load()
	if f == nil {
		return nil
	}
	return f.err
}

// Refresh fetches the source once, immediately, outside the regular
// cadence. Unlike a background cycle it reports its error to the caller.
// It serializes with the poll goroutine so fetches still never overlap.
func (ld *LiveData) Refresh(ctx context.Context) error {
	if ld.stopped.Load() {
		return ErrStopped
	}

	ld.fetchMu.Lock()
	defer ld.fetchMu.Unlock()

	snap, err := ld.fetcher.Fetch(ctx)
	if err != nil {
		ld.lastErr.Store(&fetchFailure{err: err})
		return err
	}
	if ld.stopped.Load() {
		return ErrStopped
	}
	ld.current.Store(snap)
	ld.lastErr.Store(nil)
	ld.failures = 0
	return nil
}

// Stop ends polling and releases the fetcher. An in-flight fetch is
// interrupted through its context and its result discarded. The last
// snapshot remains queryable after Stop. Stop is idempotent and safe to
// call concurrently with a fetch.
func (ld *LiveData) Stop() {
	ld.stopOnce.Do(func() {
		ld.stopped.Store(true)
		if ld.cancel != nil {
			ld.cancel()
		}
		ld.wg.Wait()
		if err := ld.fetcher.Close(); err != nil {
			ld.logger.Debug("fetcher close failed", "source", ld.source.Location, "error", err)
		}
		ld.engine.close()
	})
}

// Source returns the resolved source descriptor.
func (ld *LiveData) Source() Source {
	return ld.source
}

// Interval returns the polling interval. Zero for one-shot loads.
func (ld *LiveData) Interval() time.Duration {
	return ld.interval
}

// Header returns the column names of the current snapshot.
func (ld *LiveData) Header() []string {
	return ld.current.Load().Header()
}

// Len returns the number of rows in the current snapshot.
func (ld *LiveData) Len() int {
	return ld.current.Load().Len()
}

// String describes the stream for logs.
func (ld *LiveData) String() string {
	return fmt.Sprintf("livesql(%s %s, every %s)", ld.source.Kind, ld.source.Location, ld.interval)
}
