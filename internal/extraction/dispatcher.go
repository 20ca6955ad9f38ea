package extraction

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/inboxly/inbox-intel/internal/config"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// Dispatcher is the bounded worker pool between the webhook handler
// and the extraction pipeline. Enqueue never blocks the webhook
// response: when the queue is full the email stays PENDING and the
// overflow is counted, rather than fanning out unbounded goroutines.
type Dispatcher struct {
	pipeline *Pipeline
	queue    chan int64

	numWorkers int

	// Stats
	dispatched int64
	dropped    int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewDispatcher sizes the pool from config.
func NewDispatcher(pipeline *Pipeline, cfg config.ExtractionConfig) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 256
	}
	return &Dispatcher{
		pipeline:   pipeline,
		queue:      make(chan int64, queueSize),
		numWorkers: workers,
	}
}

// Start launches the workers. Idempotent.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.mu.Unlock()

	logger.Info("extraction dispatcher starting",
		"workers", d.numWorkers, "queue_size", cap(d.queue))
	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop drains in-flight work and shuts the pool down.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	logger.Info("extraction dispatcher stopped",
		"dispatched", atomic.LoadInt64(&d.dispatched),
		"dropped", atomic.LoadInt64(&d.dropped))
}

// Enqueue hands an email to the pool without blocking. Returns false
// when the queue is full; the email keeps its PENDING status and can
// be picked up by a later re-trigger.
func (d *Dispatcher) Enqueue(emailID int64) bool {
	select {
	case d.queue <- emailID:
		atomic.AddInt64(&d.dispatched, 1)
		return true
	default:
		atomic.AddInt64(&d.dropped, 1)
		logger.Error("extraction queue full, email left pending",
			"email_id", emailID, "dropped_total", atomic.LoadInt64(&d.dropped))
		return false
	}
}

// Stats reports dispatch counters.
func (d *Dispatcher) Stats() map[string]int64 {
	return map[string]int64{
		"dispatched": atomic.LoadInt64(&d.dispatched),
		"dropped":    atomic.LoadInt64(&d.dropped),
		"queued":     int64(len(d.queue)),
	}
}

func (d *Dispatcher) worker(workerNum int) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case emailID := <-d.queue:
			logger.Debug("extraction worker picked up email",
				"worker", workerNum, "email_id", emailID)
			d.pipeline.ProcessDetached(d.ctx, emailID)
		}
	}
}
