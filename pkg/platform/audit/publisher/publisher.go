package publisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"zerotrust/internal/platform/metrics"
	audit "zerotrust/pkg/platform/audit"
	"zerotrust/pkg/platform/circuit"
)

// ErrBufferFull is returned by Emit when the background queue cannot take
// another event. The event is dropped.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

// Publisher hands audit events to a sink. In async mode events go through a
// bounded queue drained by one background goroutine, so callers never wait
// on the sink and never see its errors.
type Publisher struct {
	sink     audit.Sink
	logger   *slog.Logger
	metrics  *metrics.Metrics
	breaker  *circuit.Breaker
	timeout  time.Duration
	queue    chan audit.Event
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
	closeOne sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async delivery through a queue of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan audit.Event, n)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithCircuitBreaker skips delivery attempts while the sink keeps failing.
func WithCircuitBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// WithDeliveryTimeout bounds a single delivery attempt.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPublisher creates a publisher for sink. Without WithAsyncBuffer,
// Emit delivers synchronously.
func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:    sink,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: 2 * time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		go p.run()
	} else {
		close(p.done)
	}
	return p
}

// Emit records event. In async mode it never blocks: a full queue drops the
// event and returns ErrBufferFull. In sync mode delivery errors are logged
// and swallowed.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if p.queue == nil {
		p.deliver(event)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.queue <- event:
		return nil
	default:
		if p.metrics != nil {
			p.metrics.IncAuditDropped()
		}
		p.logger.Warn("audit event dropped, buffer full",
			"decision", event.Decision,
			"request_id", event.RequestID,
		)
		return ErrBufferFull
	}
}

// Close stops accepting events and drains the queue.
func (p *Publisher) Close() {
	p.closeOne.Do(func() {
		p.mu.Lock()
		p.closed = true
		if p.queue != nil {
			close(p.queue)
		}
		p.mu.Unlock()
		<-p.done
	})
}

// Run blocks until ctx is done, then drains. It lets the publisher take part
// in an errgroup next to the HTTP server.
func (p *Publisher) Run(ctx context.Context) error {
	<-ctx.Done()
	p.Close()
	return nil
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.queue {
		p.deliver(event)
	}
}

// deliver runs on a context detached from any request.
func (p *Publisher) deliver(event audit.Event) {
	if p.breaker != nil && !p.breaker.Allow() {
		p.logger.Debug("audit sink circuit open, event skipped",
			"sink", p.sink.Name(),
			"request_id", event.RequestID,
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.sink.Deliver(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.IncAuditSinkFailure(p.sink.Name())
		}
		if p.breaker != nil {
			p.breaker.RecordFailure()
		}
		p.logger.Warn("audit delivery failed",
			"sink", p.sink.Name(),
			"decision", event.Decision,
			"request_id", event.RequestID,
			"error", err,
		)
		return
	}
	if p.breaker != nil {
		p.breaker.RecordSuccess()
	}
}
