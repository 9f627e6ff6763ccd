// internal/app/system/workers/periodic.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of periodic work. It returns how many items it handled,
// for logging.
type Task func(ctx context.Context) (int64, error)

// Periodic runs a task on a ticker until stopped.
type Periodic struct {
	name     string
	task     Task
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPeriodic creates a worker. timeout bounds each run.
func NewPeriodic(name string, interval, timeout time.Duration, logger *zap.Logger, task Task) *Periodic {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Periodic{
		name:     name,
		task:     task,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Periodic) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("worker started",
		zap.String("worker", w.name),
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *Periodic) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("worker stopped", zap.String("worker", w.name))
	})
}

func (w *Periodic) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce executes the task immediately.
func (w *Periodic) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	count, err := w.task(ctx)
	if err != nil {
		w.log.Error("worker run failed", zap.String("worker", w.name), zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("worker run", zap.String("worker", w.name), zap.Int64("count", count))
	}
}

// Group starts and stops a set of workers together.
type Group struct {
	workers []*Periodic
}

// Add registers and starts w.
func (g *Group) Add(w *Periodic) {
	g.workers = append(g.workers, w)
	w.Start()
}

// Stop stops every worker in reverse start order.
func (g *Group) Stop() {
	for i := len(g.workers) - 1; i >= 0; i-- {
		g.workers[i].Stop()
	}
}
