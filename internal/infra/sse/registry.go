package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jobapply-gateway/internal/domain/model"
	"jobapply-gateway/internal/infra/metrics"
)

// Named events on the live channel.
const (
	EventStatus    = "status"
	EventStreaming = "streaming"
	EventHeartbeat = "heartbeat"
	EventError     = "error"
	EventBroadcast = "broadcast"
)

// Connection is one live push stream toward a client.
type Connection interface {
	// Send writes one named event; an error means the peer is gone.
	Send(event string, data []byte) error
	// Complete signals a clean end of stream. Idempotent, best effort.
	Complete()
}

type entry struct {
	conn         Connection
	createdAt    time.Time
	lastActivity time.Time
}

// Registry tracks at most one live connection per job id, enforces a global
// connection ceiling, reclaims dead and idle connections, and fans status
// events out to exactly the connection still interested.
//
// A second Register for a job that already has a connection supersedes the
// old one: the displaced stream gets a final error event and is completed,
// which matches the browser-reconnect case.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	max           int
	idleTimeout   time.Duration
	sweepInterval time.Duration
	log           *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRegistry(max int, idleTimeout, sweepInterval time.Duration, logger *zerolog.Logger) *Registry {
	regLog := logger.With().Str("component", "SSERegistry").Logger()
	return &Registry{
		entries:       make(map[string]*entry),
		max:           max,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		log:           &regLog,
		done:          make(chan struct{}),
	}
}

// Start launches the idle sweep; calling Start twice has no effect.
func (r *Registry) Start(parentCtx context.Context) {
	if r.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	r.ctx = ctx
	r.cancel = cancel
	go r.sweepLoop()
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.sweepInterval)
	defer func() {
		ticker.Stop()
		close(r.done)
	}()

	r.log.Info().Int("max_connections", r.max).Dur("sweep_interval", r.sweepInterval).Msg("registry sweep started")
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweepIdle(time.Now())
		}
	}
}

// Shutdown cancels the sweep and completes every remaining connection.
func (r *Registry) Shutdown() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}

	r.mu.Lock()
	remaining := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for jobID, e := range remaining {
		e.conn.Complete()
		metrics.IncSSEConnectionRemoved()
		r.log.Debug().Str("job_id", jobID).Msg("connection completed on shutdown")
	}
}

// Register tracks a new connection for jobID. It returns false when the
// registry is at capacity; the caller owns telling the client. An existing
// connection for the same job is superseded, not counted against capacity.
func (r *Registry) Register(jobID string, conn Connection) bool {
	r.mu.Lock()
	old, exists := r.entries[jobID]
	if !exists && len(r.entries) >= r.max {
		r.mu.Unlock()
		r.log.Warn().Str("job_id", jobID).Int("connections", r.max).Msg("connection limit exceeded")
		return false
	}
	now := time.Now()
	r.entries[jobID] = &entry{conn: conn, createdAt: now, lastActivity: now}
	r.mu.Unlock()

	if exists {
		// Tell the displaced peer before closing it.
		_ = old.conn.Send(EventError, []byte(`{"error":"superseded by a newer connection"}`))
		old.conn.Complete()
		r.log.Debug().Str("job_id", jobID).Msg("previous connection superseded")
		metrics.IncSSEConnectionRemoved()
	}
	metrics.IncSSEConnectionCreated()
	r.log.Debug().Str("job_id", jobID).Int("connections", r.Count()).Msg("connection registered")
	return true
}

// Unregister removes and completes the connection if present; no-op otherwise.
func (r *Registry) Unregister(jobID string) {
	r.mu.Lock()
	e, ok := r.entries[jobID]
	if ok {
		delete(r.entries, jobID)
	}
	r.mu.Unlock()

	if ok {
		e.conn.Complete()
		metrics.IncSSEConnectionRemoved()
		r.log.Debug().Str("job_id", jobID).Msg("connection removed")
	}
}

// Send delivers a status event to the connection watching jobID. An absent
// connection is not an error; a failed delivery reclaims the connection.
func (r *Registry) Send(jobID string, event *model.StatusEvent) {
	r.deliver(jobID, EventStatus, event)
}

// SendStreaming delivers a partial-content event for progressive rendering.
func (r *Registry) SendStreaming(jobID string, event *model.StatusEvent) {
	r.deliver(jobID, EventStreaming, event)
}

func (r *Registry) deliver(jobID, name string, event *model.StatusEvent) {
	r.mu.Lock()
	e, ok := r.entries[jobID]
	r.mu.Unlock()
	if !ok {
		r.log.Debug().Str("job_id", jobID).Str("event", name).Msg("no connection for job")
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		r.log.Error().Err(err).Str("job_id", jobID).Msg("encode event")
		return
	}

	if err := e.conn.Send(name, data); err != nil {
		metrics.IncSSEMessageFailed()
		r.log.Debug().Err(err).Str("job_id", jobID).Msg("delivery failed, reclaiming connection")
		r.Unregister(jobID)
		return
	}
	r.touch(jobID)
	metrics.IncSSEMessageSent(name)

	// A terminal status ends the stream cleanly.
	if name == EventStatus && event.Status.Terminal() {
		r.Unregister(jobID)
	}
}

// SendHeartbeat is a best-effort keepalive with the same failure handling
// as Send.
func (r *Registry) SendHeartbeat(jobID string) {
	r.mu.Lock()
	e, ok := r.entries[jobID]
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := e.conn.Send(EventHeartbeat, []byte(`"ping"`)); err != nil {
		metrics.IncSSEMessageFailed()
		r.log.Debug().Str("job_id", jobID).Msg("heartbeat failed, reclaiming connection")
		r.Unregister(jobID)
		return
	}
	r.touch(jobID)
	metrics.IncSSEMessageSent(EventHeartbeat)
}

// BroadcastToAll delivers to every tracked connection; failing entries are
// reclaimed without aborting the broadcast.
func (r *Registry) BroadcastToAll(event *model.StatusEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		r.log.Error().Err(err).Msg("encode broadcast event")
		return
	}

	r.mu.Lock()
	snapshot := make(map[string]*entry, len(r.entries))
	for jobID, e := range r.entries {
		snapshot[jobID] = e
	}
	r.mu.Unlock()

	success, failed := 0, 0
	for jobID, e := range snapshot {
		if err := e.conn.Send(EventBroadcast, data); err != nil {
			metrics.IncSSEMessageFailed()
			r.Unregister(jobID)
			failed++
			continue
		}
		r.touch(jobID)
		metrics.IncSSEMessageSent(EventBroadcast)
		success++
	}
	r.log.Info().Int("success", success).Int("failed", failed).Msg("broadcast completed")
}

// JobIDs snapshots the currently tracked job ids.
func (r *Registry) JobIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for jobID := range r.entries {
		ids = append(ids, jobID)
	}
	return ids
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) touch(jobID string) {
	r.mu.Lock()
	if e, ok := r.entries[jobID]; ok {
		e.lastActivity = time.Now()
	}
	r.mu.Unlock()
}

// sweepIdle reclaims connections whose last activity predates the idle
// timeout; the remote peer is assumed to have vanished without a close.
func (r *Registry) sweepIdle(now time.Time) {
	cutoff := now.Add(-r.idleTimeout)

	r.mu.Lock()
	var stale []string
	for jobID, e := range r.entries {
		if e.lastActivity.Before(cutoff) {
			stale = append(stale, jobID)
		}
	}
	r.mu.Unlock()

	for _, jobID := range stale {
		r.Unregister(jobID)
	}
	if len(stale) > 0 {
		r.log.Info().Int("reclaimed", len(stale)).Int("remaining", r.Count()).Msg("idle connections swept")
	}
}
