package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerotrust/internal/platform/metrics"
	audit "zerotrust/pkg/platform/audit"
	"zerotrust/pkg/platform/audit/store/memory"
	"zerotrust/pkg/platform/circuit"
)

type policyInput struct {
	Resource   string `json:"resource"`
	DatabaseID string `json:"database_id"`
}

// blockingSink holds every delivery until release is closed.
type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	count   int
}

func (b *blockingSink) Name() string { return "blocking" }

func (b *blockingSink) Deliver(ctx context.Context, _ audit.Event) error {
	<-b.release
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
	return nil
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	payload := policyInput{Resource: "patients", DatabaseID: "us_db"}
	err := pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, payload, "req-1", time.Time{}))
	require.NoError(t, err)

	events := store.ListAll()
	require.Len(t, events, 1)
	assert.Equal(t, audit.DecisionAllow, events[0].Decision)
	assert.Equal(t, payload, events[0].Payload)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	err := pub.Emit(context.Background(), audit.NewEvent(audit.DecisionDeny, policyInput{}, "req-2", time.Time{}))
	require.NoError(t, err)

	pub.Close()

	events := store.ListByDecision(audit.DecisionDeny)
	require.Len(t, events, 1)
	assert.Equal(t, "req-2", events[0].RequestID)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for i := 0; i < 10; i++ {
		err := pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, policyInput{}, "", time.Time{}))
		require.NoError(t, err)
	}

	pub.Close()

	assert.Len(t, store.ListAll(), 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	pub := NewPublisher(sink, WithAsyncBuffer(1), WithMetrics(m))

	// First event is picked up by the worker and blocks in Deliver; the
	// second fills the queue; the third must be dropped without blocking.
	require.NoError(t, pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{})))
	require.Eventually(t, func() bool { return len(pub.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{})))

	err := pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{}))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDropped))

	close(sink.release)
	pub.Close()
	assert.Equal(t, 2, sink.count)
}

func TestPublisher_SinkFailureIsSwallowed(t *testing.T) {
	store := memory.NewInMemoryStore()
	store.FailWith(errors.New("sink down"))
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	pub := NewPublisher(store, WithMetrics(m))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{}))
	assert.NoError(t, err, "sink failures never reach the caller")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditSinkFailures.WithLabelValues("memory")))
}

func TestPublisher_CircuitBreakerSkipsFailingSink(t *testing.T) {
	store := memory.NewInMemoryStore()
	store.FailWith(errors.New("sink down"))
	breaker := circuit.New("audit", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	pub := NewPublisher(store, WithCircuitBreaker(breaker))
	defer pub.Close()

	_ = pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{}))
	assert.True(t, breaker.IsOpen())

	store.FailWith(nil)
	_ = pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{}))
	assert.Empty(t, store.ListAll(), "open circuit skips delivery")
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	err := pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{}))
	require.NoError(t, err)
	after := time.Now()

	events := store.ListAll()
	require.Len(t, events, 1)
	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.NewEvent(audit.DecisionDeny, nil, "", customTime))
	require.NoError(t, err)

	events := store.ListAll()
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{}))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_RunClosesOnCancel(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(4))
	require.NoError(t, pub.Emit(context.Background(), audit.NewEvent(audit.DecisionAllow, nil, "", time.Time{})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pub.Run(ctx))

	assert.Len(t, store.ListAll(), 1)
}
