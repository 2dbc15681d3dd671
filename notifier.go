package goAccounts

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// notifyJob is one queued outbound notification. Send failures are logged
// with the flow and recipient only; token material never reaches the log.
type notifyJob struct {
	flow      string
	recipient string
	send      func(ctx context.Context) error
}

// notifier runs outbound notifications on a background worker so flow
// success never depends on the notification outcome. When the queue is
// full the job is dropped and counted rather than blocking the flow.
type notifier struct {
	logger    *zap.Logger
	ch        chan notifyJob
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newNotifier(logger *zap.Logger, buffer int) *notifier {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &notifier{
		logger: logger,
		ch:     make(chan notifyJob, buffer),
		done:   make(chan struct{}),
	}

	n.wg.Add(1)
	go n.run()

	return n
}

func (n *notifier) run() {
	defer n.wg.Done()

	for {
		select {
		case job := <-n.ch:
			n.deliver(job)
		case <-n.done:
			for {
				select {
				case job := <-n.ch:
					n.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (n *notifier) deliver(job notifyJob) {
	if err := job.send(context.Background()); err != nil {
		n.logger.Warn("notification dispatch failed",
			zap.String("flow", job.flow),
			zap.String("recipient", job.recipient),
			zap.Error(err),
		)
	}
}

// Dispatch queues a notification without waiting for it.
func (n *notifier) Dispatch(flow, recipient string, send func(ctx context.Context) error) {
	if n == nil || n.closed.Load() {
		return
	}

	select {
	case n.ch <- notifyJob{flow: flow, recipient: recipient, send: send}:
	case <-n.done:
	default:
		n.dropped.Add(1)
		n.logger.Warn("notification queue full, dropping",
			zap.String("flow", flow),
			zap.String("recipient", recipient),
		)
	}
}

// Close stops accepting jobs and drains the queue.
func (n *notifier) Close() {
	if n == nil {
		return
	}
	n.closeOnce.Do(func() {
		n.closed.Store(true)
		close(n.done)
		n.wg.Wait()
	})
}

// Dropped returns how many notifications were discarded on queue overflow.
func (n *notifier) Dropped() uint64 {
	if n == nil {
		return 0
	}
	return n.dropped.Load()
}
