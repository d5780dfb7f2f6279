// Package worker runs the background side of the search core: analytics
// writes that must not slow searches down, and periodic log archival.
package worker

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/services"
)

// Ensure Dispatcher can be attached to the search service
var _ services.QueryRecorder = (*Dispatcher)(nil)

type clickEvent struct {
	searchLogID string
	recordID    int64
	position    int
}

// event is either a query or a click
type event struct {
	query *domain.QueryEvent
	click *clickEvent
}

// searchLogID is the key that ties a click to the query log it references
func (e event) searchLogID() string {
	switch {
	case e.query != nil:
		return e.query.Meta.ID
	case e.click != nil:
		return e.click.searchLogID
	}
	return ""
}

// Dispatcher writes analytics events asynchronously.
// Record calls never block: when the buffer is full the event is dropped and counted.
//
// Each writer owns a lane and events are routed by search log id, so a
// query log is always written before the clicks that reference it.
type Dispatcher struct {
	analytics driving.AnalyticsService
	scheduler *services.ArchiveScheduler
	logger    *slog.Logger

	// Configuration
	concurrency  int
	writeTimeout time.Duration

	lanes   []chan event
	next    atomic.Uint64 // round-robin for events without a search log id
	dropped atomic.Int64
	written atomic.Int64
	failed  atomic.Int64

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	Analytics    driving.AnalyticsService
	Scheduler    *services.ArchiveScheduler // Optional: started and stopped with the dispatcher
	Logger       *slog.Logger
	Concurrency  int           // Number of concurrent writers
	BufferSize   int           // Events held before dropping, split across writers
	WriteTimeout time.Duration // Per-write deadline
}

// NewDispatcher creates a new analytics dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1024
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	perLane := (buffer + concurrency - 1) / concurrency
	lanes := make([]chan event, concurrency)
	for i := range lanes {
		lanes[i] = make(chan event, perLane)
	}

	return &Dispatcher{
		analytics:    cfg.Analytics,
		scheduler:    cfg.Scheduler,
		logger:       logger,
		concurrency:  concurrency,
		writeTimeout: timeout,
		lanes:        lanes,
	}
}

// RecordQuery queues a query log write
func (d *Dispatcher) RecordQuery(ev domain.QueryEvent) bool {
	return d.enqueue(event{query: &ev})
}

// RecordClick queues a click write
func (d *Dispatcher) RecordClick(searchLogID string, recordID int64, position int) bool {
	return d.enqueue(event{click: &clickEvent{searchLogID: searchLogID, recordID: recordID, position: position}})
}

func (d *Dispatcher) enqueue(ev event) bool {
	select {
	case d.lane(ev.searchLogID()) <- ev:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// lane picks the writer for a search log id
func (d *Dispatcher) lane(id string) chan event {
	if id == "" {
		return d.lanes[d.next.Add(1)%uint64(len(d.lanes))]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return d.lanes[h.Sum32()%uint32(len(d.lanes))]
}

func (d *Dispatcher) capacity() int {
	n := 0
	for _, l := range d.lanes {
		n += cap(l)
	}
	return n
}

func (d *Dispatcher) pending() int {
	n := 0
	for _, l := range d.lanes {
		n += len(l)
	}
	return n
}

// Start begins the writer goroutines.
// They run until Stop is called or context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	d.logger.Info("analytics dispatcher starting",
		"concurrency", d.concurrency,
		"buffer", d.capacity(),
	)

	if d.scheduler != nil {
		if err := d.scheduler.Start(ctx); err != nil {
			d.logger.Error("failed to start archive scheduler", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func(writerID int) {
			defer wg.Done()
			d.writeLoop(ctx, writerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(d.doneCh)
	}()

	return nil
}

// Stop drains buffered events and stops the writers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	close(d.stopCh)
	d.mu.Unlock()

	if d.scheduler != nil {
		d.scheduler.Stop()
	}

	<-d.doneCh

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	d.logger.Info("analytics dispatcher stopped",
		"written", d.written.Load(),
		"failed", d.failed.Load(),
		"dropped", d.dropped.Load(),
	)
}

func (d *Dispatcher) writeLoop(ctx context.Context, writerID int) {
	logger := d.logger.With("writer_id", writerID)
	lane := d.lanes[writerID]

	for {
		select {
		case ev := <-lane:
			d.write(ctx, ev, logger)
		case <-ctx.Done():
			d.drain(ctx, lane, logger)
			return
		case <-d.stopCh:
			d.drain(ctx, lane, logger)
			return
		}
	}
}

// drain writes whatever is still buffered in lane
func (d *Dispatcher) drain(ctx context.Context, lane chan event, logger *slog.Logger) {
	for {
		select {
		case ev := <-lane:
			d.write(ctx, ev, logger)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, ev event, logger *slog.Logger) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.writeTimeout)
	defer cancel()

	var out domain.AnalyticsOutcome
	switch {
	case ev.query != nil:
		q := ev.query
		out = d.analytics.LogQuery(wctx, q.Query, q.ResultCount, q.ExecutionTimeMs, q.Meta)
	case ev.click != nil:
		c := ev.click
		out = d.analytics.LogClick(wctx, c.searchLogID, c.recordID, c.position)
	default:
		return
	}

	if !out.OK() {
		d.failed.Add(1)
		logger.Debug("analytics write failed", "operation", out.Operation, "reason", out.Reason())
		return
	}
	d.written.Add(1)
}

// Stats counts events since the dispatcher was created.
type Stats struct {
	Running bool  `json:"running"`
	Pending int   `json:"pending"`
	Written int64 `json:"written"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// Stats returns the dispatcher's counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	return Stats{
		Running: running,
		Pending: d.pending(),
		Written: d.written.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}
