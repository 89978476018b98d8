package sse

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"jobapply-gateway/internal/domain/model"
)

// ---- Fakes ----

type fakeConn struct {
	mu        sync.Mutex
	events    []string // "name:data"
	completed bool
	failSends bool
}

func (c *fakeConn) Send(event string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSends {
		return errors.New("peer gone")
	}
	c.events = append(c.events, event+":"+string(data))
	return nil
}

func (c *fakeConn) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = true
}

func (c *fakeConn) isCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

func (c *fakeConn) received(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if strings.HasPrefix(e, event+":") {
			n++
		}
	}
	return n
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestRegistry(max int) *Registry {
	return NewRegistry(max, 5*time.Minute, time.Minute, testLogger())
}

func statusEvent(jobID string, status model.JobStatus) *model.StatusEvent {
	return &model.StatusEvent{JobID: jobID, Status: status, Timestamp: time.Now()}
}

// ---- Tests ----

func TestRegisterEnforcesCapacity(t *testing.T) {
	r := newTestRegistry(2)

	if !r.Register("J3", &fakeConn{}) {
		t.Fatal("first register should succeed")
	}
	if !r.Register("J4", &fakeConn{}) {
		t.Fatal("second register should succeed")
	}
	if r.Register("J5", &fakeConn{}) {
		t.Fatal("register beyond capacity must be rejected")
	}
	if r.Count() != 2 {
		t.Fatalf("rejected register must not mutate state, count=%d", r.Count())
	}
}

func TestRegisterSupersedesExistingConnection(t *testing.T) {
	r := newTestRegistry(1)

	old := &fakeConn{}
	if !r.Register("J1", old) {
		t.Fatal("first register should succeed")
	}
	// Same job at full capacity: supersedes instead of rejecting.
	replacement := &fakeConn{}
	if !r.Register("J1", replacement) {
		t.Fatal("re-register for the same job must supersede, not reject")
	}
	if !old.isCompleted() {
		t.Fatal("displaced connection must be completed")
	}
	if old.received(EventError) != 1 {
		t.Fatal("displaced connection should learn it was superseded")
	}

	r.Send("J1", statusEvent("J1", model.JobStatusProcessing))
	if old.received(EventStatus) != 0 {
		t.Fatal("superseded connection must not receive further events")
	}
	if replacement.received(EventStatus) != 1 {
		t.Fatal("replacement connection should receive the event")
	}
}

func TestSendToAbsentJobIsNoOp(t *testing.T) {
	r := newTestRegistry(10)
	r.Send("missing", statusEvent("missing", model.JobStatusProcessing)) // must not panic
}

func TestSendFailureReclaimsConnection(t *testing.T) {
	r := newTestRegistry(10)
	dead := &fakeConn{failSends: true}
	r.Register("J1", dead)

	r.Send("J1", statusEvent("J1", model.JobStatusProcessing))
	if r.Count() != 0 {
		t.Fatal("failed delivery must unregister the connection")
	}
	if !dead.isCompleted() {
		t.Fatal("reclaimed connection must be completed")
	}
}

func TestTerminalStatusClosesStream(t *testing.T) {
	r := newTestRegistry(10)
	conn := &fakeConn{}
	r.Register("J2", conn)

	r.Send("J2", statusEvent("J2", model.JobStatusCompleted))
	if conn.received(EventStatus) != 1 {
		t.Fatal("terminal event must still be delivered")
	}
	if r.Count() != 0 {
		t.Fatal("terminal event must end the registration")
	}
	if !conn.isCompleted() {
		t.Fatal("stream must be completed after a terminal event")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := newTestRegistry(10)
	conn := &fakeConn{}
	r.Register("J1", conn)

	r.Unregister("J1")
	r.Unregister("J1") // no-op
	if r.Count() != 0 {
		t.Fatalf("count=%d after unregister", r.Count())
	}
}

func TestHeartbeatFailureReclaims(t *testing.T) {
	r := newTestRegistry(10)
	dead := &fakeConn{failSends: true}
	alive := &fakeConn{}
	r.Register("J1", dead)
	r.Register("J2", alive)

	r.SendHeartbeat("J1")
	r.SendHeartbeat("J2")

	if r.Count() != 1 {
		t.Fatalf("expected 1 remaining connection, got %d", r.Count())
	}
	if alive.received(EventHeartbeat) != 1 {
		t.Fatal("healthy connection should get the heartbeat")
	}
}

func TestBroadcastSurvivesPartialFailure(t *testing.T) {
	r := newTestRegistry(10)
	good1 := &fakeConn{}
	dead := &fakeConn{failSends: true}
	good2 := &fakeConn{}
	r.Register("J1", good1)
	r.Register("J2", dead)
	r.Register("J3", good2)

	r.BroadcastToAll(statusEvent("", model.JobStatusProcessing))

	if good1.received(EventBroadcast) != 1 || good2.received(EventBroadcast) != 1 {
		t.Fatal("broadcast must reach the healthy connections")
	}
	if r.Count() != 2 {
		t.Fatalf("failing entry must be reclaimed without aborting, count=%d", r.Count())
	}
}

func TestSweepReclaimsIdleConnections(t *testing.T) {
	r := newTestRegistry(10)
	idle := &fakeConn{}
	busy := &fakeConn{}
	r.Register("idle", idle)
	r.Register("busy", busy)

	// Activity on one connection only.
	future := time.Now().Add(2 * time.Minute)
	r.mu.Lock()
	r.entries["busy"].lastActivity = future
	r.mu.Unlock()

	r.sweepIdle(time.Now().Add(6 * time.Minute))

	if r.Count() != 1 {
		t.Fatalf("expected the idle connection swept, count=%d", r.Count())
	}
	if !idle.isCompleted() {
		t.Fatal("swept connection must be completed")
	}
	if busy.isCompleted() {
		t.Fatal("active connection must survive the sweep")
	}
}

func TestShutdownCompletesEverything(t *testing.T) {
	r := newTestRegistry(10)
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	r.Register("J1", c1)
	r.Register("J2", c2)

	r.Shutdown()

	if r.Count() != 0 {
		t.Fatalf("count=%d after shutdown", r.Count())
	}
	if !c1.isCompleted() || !c2.isCompleted() {
		t.Fatal("all connections must be completed on shutdown")
	}
}
