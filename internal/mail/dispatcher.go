// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/petadopt/petadopt/pkg/errutil"
)

// Dispatcher defaults.
const (
	DefaultQueueSize   = 256
	DefaultWorkers     = 2
	DefaultSendTimeout = 10 * time.Second
	DefaultMaxRetries  = 4
	DefaultBaseBackoff = 500 * time.Millisecond
)

// Dispatcher errors.
var (
	ErrQueueFull = oops.Code("MAIL_QUEUE_FULL").Errorf("mail queue is full")
	ErrClosed    = oops.Code("MAIL_DISPATCHER_CLOSED").Errorf("mail dispatcher is closed")
)

// DispatcherConfig tunes queueing and delivery.
type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
	MaxRetries  uint64
	BaseBackoff time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	return c
}

// Dispatcher is a Sender that queues messages and delivers them on worker
// goroutines through another Sender. Send never blocks on the transport.
type Dispatcher struct {
	next   Sender
	cfg    DispatcherConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher and starts its workers.
func NewDispatcher(next Sender, cfg DispatcherConfig, logger *slog.Logger) (*Dispatcher, error) {
	if next == nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		next:   next,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Message, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	d.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go d.work()
	}
	return d, nil
}

// Send enqueues msg for delivery. It returns ErrQueueFull when the queue has no room
// and ErrClosed after Close.
func (d *Dispatcher) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- msg:
		queueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		deliveries.WithLabelValues(statusDropped).Inc()
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
// If ctx ends first, in-flight retries are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return oops.Code("MAIL_DRAIN_INCOMPLETE").Wrap(ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		queueDepth.Set(float64(len(d.queue)))
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	backoff := retry.WithMaxRetries(d.cfg.MaxRetries, retry.NewExponential(d.cfg.BaseBackoff))

	attempt := 0
	err := retry.Do(d.ctx, backoff, func(ctx context.Context) error {
		attempt++
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()

		if err := d.next.Send(sendCtx, msg); err != nil {
			d.logger.Debug("mail delivery attempt failed",
				"to", msg.To,
				"attempt", attempt,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		deliveries.WithLabelValues(statusFailed).Inc()
		errutil.LogError(d.logger, "mail delivery failed",
			oops.With("to", msg.To).With("subject", msg.Subject).With("attempts", attempt).Wrap(err))
		return
	}
	deliveries.WithLabelValues(statusSent).Inc()
}

var _ Sender = (*Dispatcher)(nil)
