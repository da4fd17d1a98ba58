package worker

import (
	"context"
	"sync"

	"crm-backend/internal/logging"
)

// Task is a background job run by the pool.
type Task func(ctx context.Context) error

type Pool struct {
	taskQueue chan Task
	wg        sync.WaitGroup
	log       logging.Logger

	// mu serializes senders against Shutdown so the queue is never
	// closed while a Submit is mid-send.
	mu     sync.RWMutex
	closed bool
}

func NewPool(size int, log logging.Logger) *Pool {
	p := &Pool{
		taskQueue: make(chan Task, 1000),
		log:       log,
	}

	for range size {
		p.wg.Add(1)
		go p.startWorker()
	}

	return p
}

func (p *Pool) startWorker() {
	defer p.wg.Done()
	for task := range p.taskQueue {
		if err := task(context.Background()); err != nil {
			p.log.Warn(context.Background(), "worker task failed", "error", err)
		}
	}
}

// Submit queues the task, reporting false when the pool is shutting
// down or the queue is full.
func (p *Pool) Submit(t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn(context.Background(), "task submitted during shutdown, dropping")
		return false
	}
	select {
	case p.taskQueue <- t:
		return true
	default:
		p.log.Warn(context.Background(), "task queue full, dropping task")
		return false
	}
}

// Shutdown closes the queue and waits for queued and in-flight tasks
// to finish. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.taskQueue)
	p.wg.Wait()
}
