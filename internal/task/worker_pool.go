package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// WorkerPool drains a TaskQueueReader with a fixed number of goroutines.
// Every task receives the pool's context, which Stop cancels.
type WorkerPool struct {
	source  TaskQueueReader
	workers int
	onError func(Task, error)
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool clamps workers to at least one. onError may be nil.
func NewWorkerPool(source TaskQueueReader, workers int, onError func(Task, error), logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		logger.Warn("worker count below one, running a single worker", "requested", workers)
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		source:  source,
		workers: workers,
		onError: onError,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *WorkerPool) Start() {
	p.logger.Info("starting workers", "count", p.workers)
	p.wg.Add(p.workers)
	for n := range p.workers {
		go p.loop(n)
	}
}

// Stop does not drain the queue; buffered tasks stay pending in the store
// and are recovered on the next start.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("workers stopped")
}

func (p *WorkerPool) loop(n int) {
	defer p.wg.Done()
	tasks := p.source.Tasks()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			p.run(n, t)
		}
	}
}

func (p *WorkerPool) run(n int, t Task) {
	err := p.safeExecute(t)
	if err == nil {
		p.logger.Debug("task done", "task_id", t.ID(), "worker", n)
		return
	}
	if p.onError != nil {
		p.onError(t, err)
		return
	}
	p.logger.Error("task failed", "task_id", t.ID(), "task_type", t.Type(), "worker", n, "error", err)
}

func (p *WorkerPool) safeExecute(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.ID(), r)
		}
	}()
	return t.Execute(p.ctx)
}
