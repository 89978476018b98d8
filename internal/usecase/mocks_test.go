// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/domain/model"
)

// opLog records cross-fake call ordering so tests can assert that cache
// invalidation happens before the broadcast.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ops))
	copy(out, l.ops)
	return out
}

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Job
	saveErr error // used by tests to simulate persistence failures
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func (m *memJobRepo) Save(_ context.Context, job *model.Job) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(_ context.Context, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) UpdateStatus(_ context.Context, id string, status model.JobStatus) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	j.UpdatedAt = time.Now()
	return nil
}

type memArtifactRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Artifact
	saveErr error
	saves   int
}

func newMemArtifactRepo() *memArtifactRepo {
	return &memArtifactRepo{store: make(map[string]*model.Artifact)}
}

func (m *memArtifactRepo) Save(_ context.Context, a *model.Artifact) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[a.JobID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *a
	m.store[a.JobID] = &cp
	m.saves++
	return nil
}

func (m *memArtifactRepo) FindByJobID(_ context.Context, jobID string) (*model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[jobID]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	cp := *a
	return &cp, nil
}

type memArtifactCache struct {
	mu    sync.Mutex
	store map[string]*model.Artifact
	log   *opLog
	gets  int
	hits  int
}

func newMemArtifactCache(log *opLog) *memArtifactCache {
	return &memArtifactCache{store: make(map[string]*model.Artifact), log: log}
}

func (c *memArtifactCache) Get(_ context.Context, jobID string) (*model.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	a, ok := c.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.hits++
	cp := *a
	return &cp, nil
}

func (c *memArtifactCache) Store(_ context.Context, a *model.Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *a
	c.store[a.JobID] = &cp
	return nil
}

func (c *memArtifactCache) Invalidate(_ context.Context, jobID string) error {
	c.mu.Lock()
	delete(c.store, jobID)
	c.mu.Unlock()
	if c.log != nil {
		c.log.add("invalidate-artifact:" + jobID)
	}
	return nil
}

type memDashboardCache struct {
	mu     sync.Mutex
	log    *opLog
	evicts []string
}

func (c *memDashboardCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	c.evicts = append(c.evicts, userID)
	c.mu.Unlock()
	if c.log != nil {
		c.log.add("invalidate-dashboard:" + userID)
	}
	return nil
}

type fakeSubmitter struct {
	mu        sync.Mutex
	path      string // path Submit reports on success
	submitErr error
	retryErr  error
	submitted []*model.DispatchMessage
	enqueued  []*model.DispatchMessage
}

func (f *fakeSubmitter) Submit(_ context.Context, msg *model.DispatchMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, msg)
	if f.path == "" {
		return "queue", nil
	}
	return f.path, nil
}

func (f *fakeSubmitter) SubmitWithRetries(_ context.Context, msg *model.DispatchMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retryErr != nil {
		return f.retryErr
	}
	f.submitted = append(f.submitted, msg)
	return nil
}

func (f *fakeSubmitter) Enqueue(_ context.Context, msg *model.DispatchMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, msg)
	return nil
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	log       *opLog
	events    []*model.StatusEvent
	streaming []*model.StatusEvent
}

func (f *fakeBroadcaster) Send(jobID string, event *model.StatusEvent) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	if f.log != nil {
		f.log.add("broadcast:" + jobID)
	}
}

func (f *fakeBroadcaster) SendStreaming(jobID string, event *model.StatusEvent) {
	f.mu.Lock()
	f.streaming = append(f.streaming, event)
	f.mu.Unlock()
	if f.log != nil {
		f.log.add("streaming:" + jobID)
	}
}

type fakeFlusher struct {
	flushes int
}

func (f *fakeFlusher) FlushAll() { f.flushes++ }
