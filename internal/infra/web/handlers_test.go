package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"jobapply-gateway/internal/config"
	"jobapply-gateway/internal/domain"
	"jobapply-gateway/internal/domain/model"
	"jobapply-gateway/internal/infra/logging"
	"jobapply-gateway/internal/infra/sse"
	"jobapply-gateway/internal/usecase"
)

// ---- Fakes ----

type fakeStatusUC struct {
	createdJob  *model.Job
	createErr   error
	lastReq     usecase.CreateJobRequest
	lastTrace   string
	updates     []*model.StatusEvent
	updateErr   error
	artifact    *model.Artifact
	artifactErr error
	streamed    []string
}

func (f *fakeStatusUC) CreateJob(ctx context.Context, req usecase.CreateJobRequest) (*model.Job, string, error) {
	f.lastReq = req
	f.lastTrace = logging.TraceID(ctx)
	if f.createErr != nil {
		return nil, "", f.createErr
	}
	return f.createdJob, "trace-1", nil
}

func (f *fakeStatusUC) HandleStatusUpdate(_ context.Context, jobID string, event *model.StatusEvent) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, event)
	return nil
}

func (f *fakeStatusUC) StreamingUpdate(_ context.Context, _ string, partialContent string, _ float64) {
	f.streamed = append(f.streamed, partialContent)
}

func (f *fakeStatusUC) GetArtifactForJob(_ context.Context, _ string) (*model.Artifact, error) {
	if f.artifactErr != nil {
		return nil, f.artifactErr
	}
	return f.artifact, nil
}

func (f *fakeStatusUC) ProcessJob(_ context.Context, _, _, _ string) error { return nil }
func (f *fakeStatusUC) FlushPending()                                      {}

func newTestServer(uc usecase.StatusUseCase, maxConns int) (*Server, *sse.Registry) {
	nop := zerolog.Nop()
	registry := sse.NewRegistry(maxConns, 5*time.Minute, time.Minute, &nop)
	cfg := &config.Config{}
	cfg.HTTP.InternalAPIKey = "secret"
	cfg.Stream.Lifetime = time.Minute
	return NewServer(uc, registry, cfg, &nop), registry
}

// ---- Tests ----

func TestCreateJobAccepted(t *testing.T) {
	uc := &fakeStatusUC{createdJob: &model.Job{ID: "job-1", Status: model.JobStatusPending}}
	server, _ := newTestServer(uc, 10)

	body := `{"jd_url":"https://jobs.example.com/1","resume_uri":"s3://r.pdf","urgent":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-Priority-Entitlement", "high")
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", rec.Code, rec.Body)
	}
	var resp jobCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID != "job-1" || resp.TraceID != "trace-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !uc.lastReq.Urgent || !uc.lastReq.HighPriorityEntitled {
		t.Fatalf("request flags lost: %+v", uc.lastReq)
	}
}

func TestCreateJobRequiresUserHeader(t *testing.T) {
	server, _ := newTestServer(&fakeStatusUC{}, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateJobSubmissionFailure(t *testing.T) {
	uc := &fakeStatusUC{createErr: domain.ErrSubmissionFailed}
	server, _ := newTestServer(uc, 10)

	body := `{"jd_url":"https://jobs.example.com/1","resume_uri":"s3://r.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestStatusCallbackRequiresBearerKey(t *testing.T) {
	server, _ := newTestServer(&fakeStatusUC{}, 10)
	routes := server.Routes()

	req := httptest.NewRequest(http.MethodPost, "/internal/v1/jobs/job-1/events", strings.NewReader(`{"status":"PROCESSING"}`))
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/internal/v1/jobs/job-1/events", strings.NewReader(`{"status":"PROCESSING"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong token: status = %d, want 403", rec.Code)
	}
}

func TestStatusCallbackAppliesEvent(t *testing.T) {
	uc := &fakeStatusUC{}
	server, _ := newTestServer(uc, 10)

	body := `{"status":"COMPLETED","content":"Dear Hiring Manager"}`
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/jobs/job-1/events", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body %s", rec.Code, rec.Body)
	}
	if len(uc.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(uc.updates))
	}
	if uc.updates[0].JobID != "job-1" || uc.updates[0].Status != model.JobStatusCompleted {
		t.Fatalf("unexpected event: %+v", uc.updates[0])
	}
}

func TestStatusCallbackRoutesStreamingEvents(t *testing.T) {
	uc := &fakeStatusUC{}
	server, _ := newTestServer(uc, 10)

	body := `{"status":"STREAMING","streaming":{"partial_content":"Dear","progress":0.1}}`
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/jobs/job-1/events", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(uc.streamed) != 1 {
		t.Fatalf("expected streaming path, got %d calls", len(uc.streamed))
	}
	if len(uc.updates) != 0 {
		t.Fatal("streaming events must not hit HandleStatusUpdate")
	}
}

func TestStatusCallbackStreamingWithoutPayloadNeverPersists(t *testing.T) {
	uc := &fakeStatusUC{}
	server, _ := newTestServer(uc, 10)

	body := `{"status":"STREAMING","content":"Dear"}`
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/jobs/job-1/events", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(uc.updates) != 0 {
		t.Fatal("STREAMING without payload must not reach job state")
	}
	if len(uc.streamed) != 1 || uc.streamed[0] != "Dear" {
		t.Fatalf("expected content forwarded to the live channel, got %v", uc.streamed)
	}
}

func TestTraceHeaderPropagatesToJobCreation(t *testing.T) {
	uc := &fakeStatusUC{createdJob: &model.Job{ID: "job-1", Status: model.JobStatusPending}}
	server, _ := newTestServer(uc, 10)

	body := `{"jd_url":"https://jobs.example.com/1","resume_uri":"s3://r.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-Trace-ID", "trace-abc")
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if uc.lastTrace != "trace-abc" {
		t.Fatalf("trace id did not reach the use case, got %q", uc.lastTrace)
	}
	if got := rec.Header().Get("X-Trace-ID"); got != "trace-abc" {
		t.Fatalf("trace id not echoed, got %q", got)
	}
}

func TestTraceIDMintedWhenAbsent(t *testing.T) {
	server, _ := newTestServer(&fakeStatusUC{}, 10)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Header().Get("X-Trace-ID") == "" {
		t.Fatal("expected a minted trace id on the response")
	}
}

func TestStatusCallbackPropagatesFault(t *testing.T) {
	uc := &fakeStatusUC{updateErr: domain.ErrNotFound}
	server, _ := newTestServer(uc, 10)

	req := httptest.NewRequest(http.MethodPost, "/internal/v1/jobs/job-1/events", strings.NewReader(`{"status":"PROCESSING"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestArtifactLookup(t *testing.T) {
	uc := &fakeStatusUC{artifact: &model.Artifact{
		JobID:         "job-1",
		ContentType:   model.ArtifactTypeCoverLetter,
		GeneratedText: "Dear Hiring Manager",
		WordCount:     3,
	}}
	server, _ := newTestServer(uc, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/artifact", nil)
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp artifactResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.WordCount != 3 || resp.ContentType != model.ArtifactTypeCoverLetter {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestArtifactNotFound(t *testing.T) {
	uc := &fakeStatusUC{artifactErr: domain.ErrArtifactNotFound}
	server, _ := newTestServer(uc, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/artifact", nil)
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStreamCapacityRejection(t *testing.T) {
	server, registry := newTestServer(&fakeStatusUC{}, 1)
	// Fill the single slot.
	if !registry.Register("other", noopConn{}) {
		t.Fatal("setup register failed")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/stream", nil)
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "event: error") {
		t.Fatalf("expected a terminal error event, got %q", rec.Body)
	}
	if registry.Count() != 1 {
		t.Fatalf("rejected stream must not be tracked, count=%d", registry.Count())
	}
}

func TestStreamClosesOnTerminalEvent(t *testing.T) {
	server, registry := newTestServer(&fakeStatusUC{}, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-9/stream", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		server.Routes().ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the handler to register, then deliver a terminal event.
	deadline := time.Now().Add(2 * time.Second)
	for registry.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never registered")
		}
		time.Sleep(time.Millisecond)
	}
	registry.Send("job-9", &model.StatusEvent{JobID: "job-9", Status: model.JobStatusCompleted, Timestamp: time.Now()})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after terminal event")
	}
	if !strings.Contains(rec.Body.String(), "event: status") {
		t.Fatalf("terminal status event missing from stream: %q", rec.Body)
	}
	if registry.Count() != 0 {
		t.Fatalf("registration must end with the stream, count=%d", registry.Count())
	}
}

func TestStreamClosesAtLifetimeCap(t *testing.T) {
	nop := zerolog.Nop()
	registry := sse.NewRegistry(10, 5*time.Minute, time.Minute, &nop)
	cfg := &config.Config{}
	cfg.HTTP.InternalAPIKey = "secret"
	cfg.Stream.Lifetime = 20 * time.Millisecond
	server := NewServer(&fakeStatusUC{}, registry, cfg, &nop)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-3/stream", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		server.Routes().ServeHTTP(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return at the lifetime cap")
	}
	if registry.Count() != 0 {
		t.Fatalf("connection must be reclaimed at the lifetime cap, count=%d", registry.Count())
	}
}

type noopConn struct{}

func (noopConn) Send(string, []byte) error { return nil }
func (noopConn) Complete()                 {}
