package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/baharkarakas/market-backend/internal/metrics"
)

// Task is a side effect that must not fail the request that scheduled it.
type Task func(ctx context.Context) error

type job struct {
	name string
	run  Task
}

type Pool struct {
	wg      sync.WaitGroup
	jobs    chan job
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan job, 1024), timeout: 10 * time.Second}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				p.exec(j)
			}
		}()
	}
	return p
}

func (p *Pool) exec(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker task panic", "task", j.name, "err", rec)
		}
	}()
	if err := j.run(ctx); err != nil {
		metrics.WorkerTasksFailed.WithLabelValues(j.name).Inc()
		slog.Warn("worker task failed", "task", j.name, "err", err)
	}
}

// Submit queues the task. A full queue or a stopped pool drops it and reports false.
func (p *Pool) Submit(name string, t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job{name: name, run: t}:
		metrics.WorkerQueueDepth.Inc()
		return true
	default:
		metrics.WorkerTasksFailed.WithLabelValues(name).Inc()
		slog.Warn("worker queue full, task dropped", "task", name)
		return false
	}
}

// Stop drains queued tasks and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
