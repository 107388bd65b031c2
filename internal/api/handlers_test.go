package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/overviewd/internal/command"
	"github.com/mattjoyce/overviewd/internal/dispatch"
	"github.com/mattjoyce/overviewd/internal/events"
	"github.com/mattjoyce/overviewd/internal/log"
)

// fakeScheduler is a scriptable SchedulerService.
type fakeScheduler struct {
	submitResult    *command.Command
	submitted       []command.Type
	cancelAllCalled bool
	headMatch       bool
	snap            dispatch.Snapshot
}

func (f *fakeScheduler) Submit(t command.Type) *command.Command {
	f.submitted = append(f.submitted, t)
	return f.submitResult
}

func (f *fakeScheduler) CancelAll()                  { f.cancelAllCalled = true }
func (f *fakeScheduler) HeadIs(t command.Type) bool  { return f.headMatch }
func (f *fakeScheduler) Snapshot() dispatch.Snapshot { return f.snap }

func newTestServer(sched SchedulerService, key string, hub *events.Hub) *Server {
	return New(Config{Listen: "127.0.0.1:0", APIKey: key, ConfigFingerprint: "abc123"}, sched, hub, nil, log.WithComponent("api"))
}

func TestHealthz(t *testing.T) {
	sched := &fakeScheduler{snap: dispatch.Snapshot{Depth: 2, ToggleInFlight: true}}
	srv := newTestServer(sched, "", nil)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthzResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.QueueDepth)
	assert.True(t, resp.ToggleInFlight)
	assert.Equal(t, "abc123", resp.ConfigFingerprint)
}

func TestSubmitAccepted(t *testing.T) {
	cmd := command.New(command.TypeShow, 1)
	sched := &fakeScheduler{submitResult: cmd}
	srv := newTestServer(sched, "", nil)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest("POST", "/command/show", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, cmd.ID, resp.ID)
	assert.Equal(t, []command.Type{command.TypeShow}, sched.submitted)
}

func TestSubmitDropped(t *testing.T) {
	sched := &fakeScheduler{submitResult: nil}
	srv := newTestServer(sched, "", nil)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest("POST", "/command/toggle", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Accepted)
	assert.Equal(t, "queue_full", resp.Reason)
	assert.Empty(t, resp.ID)
}

func TestSubmitUnknownType(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, "", nil)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest("POST", "/command/reboot", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueSnapshotAndAuth(t *testing.T) {
	sched := &fakeScheduler{snap: dispatch.Snapshot{
		GeneratedAt: time.Now().UTC(),
		Depth:       1,
		Bound:       3,
		Entries:     []dispatch.Entry{{ID: "c1", Type: command.TypeHome, Status: command.StatusProcessing}},
	}}
	srv := newTestServer(sched, "sekrit", nil)
	router := srv.setupRoutes()

	// Without a token.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/queue", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// With the wrong token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/queue", nil)
	req.Header.Set("Authorization", "Bearer wrong1")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// With the right token.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/queue", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap dispatch.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, 1, snap.Depth)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "c1", snap.Entries[0].ID)

	// Healthz stays unauthenticated.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCancelAll(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, "", nil)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest("DELETE", "/queue", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sched.cancelAllCalled)
}

func TestHead(t *testing.T) {
	sched := &fakeScheduler{headMatch: true}
	srv := newTestServer(sched, "", nil)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest("GET", "/queue/head/home", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HeadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Match)
	assert.Equal(t, "home", resp.Type)
}

func TestEventsSSE(t *testing.T) {
	hub := events.NewHub(16)
	hub.Publish("command.submitted", map[string]string{"id": "c1"})

	srv := newTestServer(&fakeScheduler{}, "", hub)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event: command.submitted")
	assert.Contains(t, body, `"id":"c1"`)
	assert.Contains(t, body, "id: 1")
}
