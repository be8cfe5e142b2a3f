// Package scheduler provides cron-based scheduling of dispatch runs.
package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ryvertools/ryver-relay/internal/model"
	"github.com/ryvertools/ryver-relay/internal/notifier"
)

// DefaultDispatchTimeout is the default timeout for dispatch runs.
const DefaultDispatchTimeout = 1 * time.Minute

// Collector assembles a batch of pending matches and acknowledges them after
// delivery. Implemented by relay.Relay.
type Collector interface {
	Collect(ctx context.Context) (*model.MatchBatch, error)
	Ack(ctx context.Context, batch *model.MatchBatch) error
}

// Scheduler manages scheduled dispatch runs.
type Scheduler struct {
	cron            *cron.Cron
	collector       Collector
	notifier        notifier.Notifier
	dispatchTimeout time.Duration

	mu          sync.Mutex
	running     bool
	dispatching int32 // atomic flag to prevent concurrent dispatch runs
}

// New creates a new Scheduler. Cron expressions are interpreted in loc; if
// loc is nil, UTC is used.
func New(c Collector, notify notifier.Notifier, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:            cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		collector:       c,
		notifier:        notify,
		dispatchTimeout: DefaultDispatchTimeout,
	}
}

// SetDispatchTimeout sets the timeout for dispatch runs.
func (s *Scheduler) SetDispatchTimeout(timeout time.Duration) {
	s.dispatchTimeout = timeout
}

// Schedule adds a job with the given cron expression.
func (s *Scheduler) Schedule(cronExpr string) error {
	_, err := s.cron.AddFunc(cronExpr, func() {
		s.runDispatch()
	})
	return err
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.cron.Start()
	s.running = true
	log.Println("Scheduler started")
}

// Stop halts all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return context.Background()
	}

	ctx := s.cron.Stop()
	s.running = false
	log.Println("Scheduler stopped")
	return ctx
}

// RunNow triggers an immediate dispatch run (bypassing schedule).
func (s *Scheduler) RunNow() {
	s.runDispatch()
}

// runDispatch collects pending matches, sends them, and acknowledges the
// batch. Uses an atomic flag to prevent concurrent runs.
func (s *Scheduler) runDispatch() {
	// Skip if a dispatch is already in flight
	if !atomic.CompareAndSwapInt32(&s.dispatching, 0, 1) {
		log.Println("Dispatch already in progress, skipping this run")
		return
	}
	defer atomic.StoreInt32(&s.dispatching, 0)

	ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
	defer cancel()

	batch, err := s.collector.Collect(ctx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			log.Printf("Collection timed out after %v", s.dispatchTimeout)
		} else {
			log.Printf("Collection failed: %v", err)
		}
		return
	}
	if batch == nil {
		log.Println("No pending matches, nothing to dispatch")
		return
	}

	log.Printf("Dispatching batch %s: %d matches for rule %q", batch.ReqID, len(batch.Matches), batch.Rule)

	if err := s.notifier.Send(ctx, batch); err != nil {
		log.Printf("Notification failed: %v", err)
		return
	}

	if err := s.collector.Ack(ctx, batch); err != nil {
		// The message was delivered; the batch will be re-sent next run.
		log.Printf("Failed to acknowledge batch %s: %v", batch.ReqID, err)
		return
	}

	log.Printf("Notification sent via %s", s.notifier.Name())
}

// IsRunning returns whether the scheduler is currently active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// IsDispatching returns whether a dispatch run is currently in progress.
func (s *Scheduler) IsDispatching() bool {
	return atomic.LoadInt32(&s.dispatching) == 1
}
