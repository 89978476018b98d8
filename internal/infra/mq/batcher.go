package mq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"jobapply-gateway/internal/domain/ports/adapter"
	"jobapply-gateway/internal/infra/metrics"
)

// BatchKey identifies one routing target; all messages under the same key
// are flushed together, in insertion order.
type BatchKey struct {
	Exchange   string
	RoutingKey string
}

// Batcher accumulates outbound broker messages per BatchKey and flushes a
// batch when it reaches the size threshold or when the interval timer fires,
// whichever comes first. A failed flush is counted, logged and dropped.
type Batcher struct {
	publisher adapter.BrokerPublisher
	size      int
	interval  time.Duration
	log       *zerolog.Logger

	mu      sync.Mutex
	batches map[BatchKey][][]byte

	messagesProcessed atomic.Uint64
	batchesSent       atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Stats is a snapshot of the cumulative flush counters.
type Stats struct {
	MessagesProcessed uint64
	BatchesSent       uint64
}

func NewBatcher(publisher adapter.BrokerPublisher, size int, interval time.Duration, logger *zerolog.Logger) *Batcher {
	if size <= 0 {
		size = 50
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	bLog := logger.With().Str("component", "Batcher").Logger()
	return &Batcher{
		publisher: publisher,
		size:      size,
		interval:  interval,
		log:       &bLog,
		batches:   make(map[BatchKey][][]byte),
		done:      make(chan struct{}),
	}
}

// Start launches the interval flusher; calling Start twice has no effect.
func (b *Batcher) Start(parentCtx context.Context) {
	if b.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	b.ctx = ctx
	b.cancel = cancel
	go b.loop()
}

func (b *Batcher) loop() {
	ticker := time.NewTicker(b.interval)
	defer func() {
		ticker.Stop()
		close(b.done)
	}()

	b.log.Info().Int("size", b.size).Dur("interval", b.interval).Msg("batch flusher started")
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.FlushAll()
		}
	}
}

// Stop cancels the flusher, then force-flushes whatever is still buffered.
func (b *Batcher) Stop() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
	b.FlushAll()
	b.log.Info().Msg("batch flusher stopped")
}

// Add appends one encoded message under key. When the batch reaches the size
// threshold it is swapped out under the lock and sent synchronously, so no
// caller ever observes a partially-flushed batch.
func (b *Batcher) Add(key BatchKey, body []byte) {
	var full [][]byte

	b.mu.Lock()
	b.batches[key] = append(b.batches[key], body)
	if len(b.batches[key]) >= b.size {
		full = b.batches[key]
		delete(b.batches, key)
	}
	b.mu.Unlock()

	if full != nil {
		b.send(key, full)
	}
}

// AddBulk appends a slice of messages through the same path as Add.
func (b *Batcher) AddBulk(key BatchKey, bodies [][]byte) {
	for _, body := range bodies {
		b.Add(key, body)
	}
}

// FlushAll sends every non-empty batch immediately. Used by the interval
// timer and for shutdown or explicit maintenance.
func (b *Batcher) FlushAll() {
	b.mu.Lock()
	pending := b.batches
	b.batches = make(map[BatchKey][][]byte)
	b.mu.Unlock()

	for key, batch := range pending {
		b.send(key, batch)
	}
}

// send performs the broker I/O outside the map lock.
func (b *Batcher) send(key BatchKey, batch [][]byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.publisher.PublishBatch(ctx, key.Exchange, key.RoutingKey, batch); err != nil {
		metrics.IncBatchFailed(key.RoutingKey)
		b.log.Error().Err(err).
			Str("exchange", key.Exchange).
			Str("routing_key", key.RoutingKey).
			Int("messages", len(batch)).
			Msg("failed to send batch, dropping")
		return
	}

	b.messagesProcessed.Add(uint64(len(batch)))
	b.batchesSent.Add(1)
	metrics.ObserveBatchSent(len(batch))
	b.log.Debug().
		Str("routing_key", key.RoutingKey).
		Int("messages", len(batch)).
		Msg("flushed batch")
}

func (b *Batcher) Stats() Stats {
	return Stats{
		MessagesProcessed: b.messagesProcessed.Load(),
		BatchesSent:       b.batchesSent.Load(),
	}
}
