package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowmap/internal/scheduler"
	"flowmap/internal/store"
	"flowmap/internal/types"
)

type staticStatus struct {
	state scheduler.State
}

func (s staticStatus) Status() scheduler.State { return s.state }

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestHandleStatus(t *testing.T) {
	srv := New(":0", staticStatus{state: scheduler.State{
		Status:       scheduler.StatusRunning,
		LastRevision: "abc123",
		PollInterval: "30s",
	}}, store.NewMemoryStore(), quietLogger())

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got scheduler.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, scheduler.StatusRunning, got.Status)
	assert.Equal(t, "abc123", got.LastRevision)
	assert.Equal(t, "30s", got.PollInterval)
}

func TestHandleGraph(t *testing.T) {
	graphs := store.NewMemoryStore()
	g := types.NewGraph()
	g.Journeys = append(g.Journeys, types.Journey{
		ID: "a", Name: "A", Description: "d", Steps: []types.Step{},
	})
	require.NoError(t, graphs.Save(context.Background(), g))

	srv := New(":0", staticStatus{}, graphs, quietLogger())
	rec := httptest.NewRecorder()
	srv.handleGraph(rec, httptest.NewRequest(http.MethodGet, "/graph", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Journeys, 1)
	assert.Equal(t, "a", got.Journeys[0].ID)
	assert.Contains(t, rec.Body.String(), `"containers"`)
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(quietLogger())
	ts := httptest.NewServer(http.HandlerFunc(hub.handleWS))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The subscription is registered during the upgrade handshake; give the
	// handler goroutine a beat to store it.
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	sent := scheduler.Event{Kind: "commit", Revision: "r1", Changes: 2}
	hub.Broadcast(sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got scheduler.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "commit", got.Kind)
	assert.Equal(t, "r1", got.Revision)
	assert.Equal(t, 2, got.Changes)
}

func TestHubDropsDisconnectedClient(t *testing.T) {
	hub := NewHub(quietLogger())
	ts := httptest.NewServer(http.HandlerFunc(hub.handleWS))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 0
	}, time.Second, 10*time.Millisecond)

	// Broadcasting with no clients is a no-op.
	hub.Broadcast(scheduler.Event{Kind: "noop"})
}

func TestPublishNil(t *testing.T) {
	var s *Server
	s.Publish(scheduler.Event{Kind: "commit"})
}
